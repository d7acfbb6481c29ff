// Package pagination implements keyset paging over (created_at, id), newest
// first, with opaque cursors.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorSep = "~"
)

// Params are the raw limit and cursor taken from the query string.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (created_at, id) key of the last row on a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer asks for one extra row so a following page can be detected.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders base64url("<unix nanos>~<id>") without padding.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + cursorSep + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for a blank value.
func ParseCursor(value string) (*Cursor, error) {
	if value = strings.TrimSpace(value); value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, id, ok := strings.Cut(string(raw), cursorSep)
	if !ok {
		return nil, errors.New("invalid cursor format")
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: parsedID}, nil
}

// Scope orders newest first on (created_at, id) of the given table and seeks
// past the cursor. It fetches one extra row so Trim can detect a next page.
func Scope(table string, params Params) (func(*gorm.DB) *gorm.DB, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	createdAt := table + ".created_at"
	id := table + ".id"
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where(
				fmt.Sprintf("(%s < ?) OR (%s = ? AND %s < ?)", createdAt, createdAt, id),
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
			)
		}
		return db.
			Order(createdAt + " DESC").
			Order(id + " DESC").
			Limit(LimitWithBuffer(params.Limit))
	}, nil
}

// Trim cuts the buffered row and returns the cursor for the next page, or ""
// when rows holds the last page.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, string) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, ""
	}
	page := rows[:size]
	return page, EncodeCursor(cursorOf(page[size-1]))
}
