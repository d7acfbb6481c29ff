package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is set, only a violation of that constraint matches.
// Postgres errors are inspected through pgconn or lib/pq; other drivers
// (sqlite in tests) fall back to message matching.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && matchesConstraint(pgErr.ConstraintName, constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && matchesConstraint(pqErr.Constraint, constraintName)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if constraintName == "" {
		return true
	}
	return strings.Contains(msg, constraintName) || sqliteColumnsMatch(msg, constraintName)
}

func matchesConstraint(actual, expected string) bool {
	return expected == "" || actual == expected
}

// Unique indexes callers check for by name.
const (
	UniqueUsersEmail       = "uq_users_email"
	UniquePendingRequest   = "uq_asset_requests_pending"
	UniqueDirectAssignment = "uq_assignments_direct_active"
	UniqueAffiliation      = "uq_affiliations_employee_company"
	UniquePaymentSession   = "uq_payments_session_id"
)

// sqlite reports "UNIQUE constraint failed: table.col, ..." instead of the index name.
var sqliteUniqueColumns = map[string]string{
	UniqueUsersEmail:       "users.email",
	UniquePendingRequest:   "asset_requests.asset_id, asset_requests.requester_email",
	UniqueDirectAssignment: "assignments.asset_id, assignments.employee_email",
	UniqueAffiliation:      "affiliations.employee_email, affiliations.company_name",
	UniquePaymentSession:   "payments.session_id",
}

func sqliteColumnsMatch(msg, constraintName string) bool {
	cols, ok := sqliteUniqueColumns[constraintName]
	return ok && strings.Contains(msg, cols)
}
