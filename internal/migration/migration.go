package migration

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"recolookup/domain/table"
	"recolookup/internal/errors"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Options controls how a table is written
type Options struct {
	// Replace drops an existing table of the same name first
	Replace bool
}

// TableImporter copies a loaded table into a SQL database as all-TEXT columns,
// so it can be served back through a sqlite:// or postgres:// location
type TableImporter struct {
	db *sqlx.DB
}

// NewTableImporter creates a new importer
func NewTableImporter(db *sqlx.DB) *TableImporter {
	return &TableImporter{db: db}
}

// Import writes t into name inside one transaction and returns the row count
func (i *TableImporter) Import(ctx context.Context, name string, t *table.Table, opts Options) (int, error) {
	if !tableNamePattern.MatchString(name) {
		return 0, errors.InvalidInput(fmt.Sprintf("invalid table name %q", name))
	}
	if t == nil || len(t.Headers) == 0 {
		return 0, errors.InvalidInput("table has no columns")
	}

	columns := columnNames(t.Headers)

	tx, err := i.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if opts.Replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return 0, errors.Wrap(err, "failed to drop table "+name)
		}
	}

	if _, err := tx.ExecContext(ctx, createStatement(name, columns)); err != nil {
		return 0, errors.Wrap(err, "failed to create table "+name)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(insertStatement(name, columns)))
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for n, r := range t.Records {
		values := r.Values()
		args := make([]interface{}, len(values))
		for j, v := range values {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, errors.Wrapf(err, "failed to insert row %d", n+1)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit import")
	}
	return t.Len(), nil
}

// columnNames makes headers usable as SQL columns: blanks become column_N and
// repeats get the first free numeric suffix, keeping the original order.
// Names compare case-insensitively, and a header's own name is reserved so a
// generated name never takes it.
func columnNames(headers []string) []string {
	reserved := make(map[string]bool, len(headers))
	for _, h := range headers {
		if name := strings.TrimSpace(h); name != "" {
			reserved[strings.ToLower(name)] = true
		}
	}

	used := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		blank := name == ""
		base, n := name, 1
		if blank {
			base, n = "column", i
			name = fmt.Sprintf("column_%d", i+1)
		}
		if used[strings.ToLower(name)] || (blank && reserved[strings.ToLower(name)]) {
			for {
				n++
				name = fmt.Sprintf("%s_%d", base, n)
				key := strings.ToLower(name)
				if !used[key] && !reserved[key] {
					break
				}
			}
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createStatement(name string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
}

func insertStatement(name string, columns []string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(quoted, ", "), strings.Join(marks, ", "))
}
