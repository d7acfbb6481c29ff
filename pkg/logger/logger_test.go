package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	return entry
}

func TestErrorCarriesScopedFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithActor(ctx, "hr@acme.io", "hr")
	log.Error(ctx, "approve failed", errors.New("db down"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "hr@acme.io", entry["user_email"])
	assert.Equal(t, "hr", entry["actor_role"])
	assert.Equal(t, "db down", entry["error"])
	assert.NotEmpty(t, entry["stack"])
}

func TestScopesDoNotLeakIntoParents(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithCompany(context.Background(), "Acme")
	_ = log.WithFields(parent, map[string]any{"asset_id": "a-1"})
	log.Info(parent, "listing")

	entry := decodeLine(t, buf)
	assert.Equal(t, "Acme", entry["company"])
	assert.NotContains(t, entry, "asset_id")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "slow")
	assert.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "slow")
	assert.NotContains(t, decodeLine(t, buf), "stack")
}

func TestLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, Format: "Console"}).Info(context.Background(), "hello")
	assert.True(t, strings.Contains(buf.String(), "hello"))
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}
