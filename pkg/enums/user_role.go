package enums

import (
	"fmt"
	"strings"
)

type UserRole string

const (
	UserRoleHR       UserRole = "hr"
	UserRoleEmployee UserRole = "employee"
)

var validUserRoles = []UserRole{UserRoleHR, UserRoleEmployee}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	return oneOf(r, validUserRoles)
}

// ParseUserRole accepts any casing.
func ParseUserRole(value string) (UserRole, error) {
	role, err := parse("user role", strings.ToLower(strings.TrimSpace(value)), validUserRoles)
	if err != nil {
		return "", fmt.Errorf("invalid user role %q", value)
	}
	return role, nil
}
