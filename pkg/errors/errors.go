// Package errors defines the coded error type every layer returns and how
// each code maps onto an HTTP response.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeInvalidState            Code = "INVALID_STATE"
	CodeOutOfStock              Code = "OUT_OF_STOCK"
	CodePaymentNotCompleted     Code = "PAYMENT_NOT_COMPLETED"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeForbidden               Code = "FORBIDDEN"
	CodePackageLimit            Code = "PACKAGE_LIMIT"
	CodeNotAffiliated           Code = "NOT_AFFILIATED"
	CodeNotFound                Code = "NOT_FOUND"
	CodeMethodNotAllowed        Code = "METHOD_NOT_ALLOWED"
	CodeConflict                Code = "CONFLICT"
	CodeDuplicateRequest        Code = "DUPLICATE_REQUEST"
	CodeAlreadyAssigned         Code = "ALREADY_ASSIGNED"
	CodeAlreadyUpgraded         Code = "ALREADY_UPGRADED"
	CodePaymentAlreadyConfirmed Code = "PAYMENT_ALREADY_CONFIRMED"
	CodeEmailTaken              Code = "EMAIL_TAKEN"
	CodeIdempotency             Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit               Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal                Code = "INTERNAL_ERROR"
	CodeDependency              Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is surfaced over HTTP.
// ExposeMessage reports whether the typed message may replace PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

// exposed is the common shape: a client-facing status whose typed message is safe to show.
func exposed(status int, public string) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, ExposeMessage: true}
}

func (m Metadata) withDetails() Metadata {
	m.DetailsAllowed = true
	return m
}

func (m Metadata) retryable() Metadata {
	m.Retryable = true
	return m
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:              exposed(http.StatusBadRequest, "validation failed").withDetails(),
	CodeInvalidState:            exposed(http.StatusBadRequest, "invalid state transition").withDetails(),
	CodeOutOfStock:              exposed(http.StatusBadRequest, "asset is out of stock"),
	CodePaymentNotCompleted:     exposed(http.StatusBadRequest, "payment not completed"),
	CodeUnauthorized:            exposed(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:               exposed(http.StatusForbidden, "access denied"),
	CodePackageLimit:            exposed(http.StatusForbidden, "employee limit reached for current package"),
	CodeNotAffiliated:           exposed(http.StatusForbidden, "employee is not affiliated with this company"),
	CodeNotFound:                exposed(http.StatusNotFound, "resource not found"),
	CodeMethodNotAllowed:        exposed(http.StatusMethodNotAllowed, "method not allowed"),
	CodeConflict:                exposed(http.StatusConflict, "conflict detected"),
	CodeDuplicateRequest:        exposed(http.StatusConflict, "a pending request for this asset already exists"),
	CodeAlreadyAssigned:         exposed(http.StatusConflict, "asset already assigned to employee"),
	CodeAlreadyUpgraded:         exposed(http.StatusConflict, "package already upgraded"),
	CodePaymentAlreadyConfirmed: exposed(http.StatusConflict, "payment already confirmed"),
	CodeEmailTaken:              exposed(http.StatusConflict, "email already registered"),
	CodeIdempotency:             exposed(http.StatusConflict, "idempotency key reused").withDetails(),
	CodeRateLimit:               exposed(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeDependency:              exposed(http.StatusInternalServerError, "dependency unavailable").withDetails().retryable(),
	// internal errors never expose their message
	CodeInternal: Metadata{HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error"}.retryable(),
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
