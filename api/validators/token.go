package validators

import (
	"errors"
	"strings"
)

var ErrMissingToken = errors.New("missing bearer token")

// BearerToken pulls the token out of an Authorization header. The scheme is
// matched case-insensitively and may be omitted.
func BearerToken(header string) (string, error) {
	token := strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(token, " "); ok && strings.EqualFold(scheme, "bearer") {
		token = strings.TrimSpace(rest)
	} else if strings.EqualFold(token, "bearer") {
		token = ""
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
