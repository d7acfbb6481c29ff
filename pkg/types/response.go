package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the flat error body every failing route returns.
type ErrorEnvelope struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode"`
	Details    any    `json:"details,omitempty"`
}

// Page is the list payload wrapped inside SuccessEnvelope.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// NewPage guarantees items serialize as [] rather than null.
func NewPage[T any](items []T, nextCursor string) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, NextCursor: nextCursor}
}
