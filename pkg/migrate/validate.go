package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Validate checks every .sql file in fsys and reports all problems at once.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	var (
		problems error
		versions = map[string]string{}
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		match := migrationName.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: want YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if first, dup := versions[match[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, match[1], first))
			continue
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		problems = multierr.Append(problems, checkAnnotations(name, string(body)))
	}

	if len(versions) == 0 && problems == nil {
		return fmt.Errorf("no migrations found")
	}
	return problems
}

func checkAnnotations(name, body string) error {
	var err error
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, marker) {
			err = multierr.Append(err, fmt.Errorf("%s: missing %q", name, marker))
		}
	}
	if begin, end := strings.Count(body, "-- +goose StatementBegin"), strings.Count(body, "-- +goose StatementEnd"); begin != end {
		err = multierr.Append(err, fmt.Errorf("%s: %d StatementBegin vs %d StatementEnd", name, begin, end))
	}
	return err
}
