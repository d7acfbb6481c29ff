// Package migrate wraps goose for the schema under migrations/.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/assetflow-backend/pkg/migrate/migrations"
)

// SourceDir is where new migrations are scaffolded, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

const dialect = "postgres"

type Command string

const (
	Up      Command = "up"
	Down    Command = "down"
	Status  Command = "status"
	Version Command = "version"
	Redo    Command = "redo"
	Reset   Command = "reset"
)

var dbCommands = []Command{Up, Down, Status, Version, Redo, Reset}

// ParseCommand accepts the goose commands that need a database.
func ParseCommand(value string) (Command, bool) {
	cmd := Command(value)
	return cmd, slices.Contains(dbCommands, cmd)
}

// Embedded returns the migrations built into the binary.
func Embedded() fs.FS {
	return migrations.FS
}

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func withGoose(fsys fs.FS, fn func() error) error {
	if fsys == nil {
		return fmt.Errorf("migrations fs is required")
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}

// Apply runs cmd against db using the migrations in fsys.
func Apply(ctx context.Context, db *sql.DB, fsys fs.FS, cmd Command) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if !slices.Contains(dbCommands, cmd) {
		return fmt.Errorf("unsupported migrate command %q", cmd)
	}
	return withGoose(fsys, func() error {
		if err := goose.RunContext(ctx, string(cmd), db, "."); err != nil {
			return fmt.Errorf("goose %s: %w", cmd, err)
		}
		return nil
	})
}

// ApplyTo moves the schema up or down until it sits at target.
func ApplyTo(ctx context.Context, db *sql.DB, fsys fs.FS, target int64) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if target < 0 {
		return fmt.Errorf("target version must be non-negative")
	}
	return withGoose(fsys, func() error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("read db version: %w", err)
		}
		switch {
		case current < target:
			err = goose.UpToContext(ctx, db, ".", target)
		case current > target:
			err = goose.DownToContext(ctx, db, ".", target)
		}
		if err != nil {
			return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
		}
		return nil
	})
}
