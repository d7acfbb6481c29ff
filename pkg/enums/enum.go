// Package enums holds the string-backed value sets persisted in Postgres
// columns and carried on outbox events.
package enums

import (
	"fmt"
	"slices"
)

func oneOf[T ~string](value T, set []T) bool {
	return slices.Contains(set, value)
}

// parse maps raw onto a member of set; kind names the set in the error.
func parse[T ~string](kind, raw string, set []T) (T, error) {
	if v := T(raw); oneOf(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
