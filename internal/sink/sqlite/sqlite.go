// Package sqlite is the embedded warehouse sink backend (modernc.org/sqlite,
// no cgo). Useful for local analysis of the star schema without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"faoetl/internal/sink"
)

func init() {
	sink.Register("sqlite", func(_ context.Context, cfg sink.Config) (sink.Writer, error) {
		return NewWriter(cfg)
	})
}

const defaultBatchSize = 5000

// Writer loads tables into a SQLite database file.
type Writer struct {
	db        *sql.DB
	prefix    string
	batchSize int
}

// NewWriter opens (or creates) the database at cfg.DSN.
func NewWriter(cfg sink.Config) (*Writer, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite: DSN (file path) required")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.DSN, err)
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Writer{db: db, prefix: cfg.TablePrefix, batchSize: batch}, nil
}

// WriteTable drops, recreates, and batch-inserts one table inside a single
// transaction.
func (w *Writer) WriteTable(ctx context.Context, t sink.Table) (string, error) {
	name := w.prefix + t.Name

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS "`+name+`"`); err != nil {
		return "", fmt.Errorf("sqlite: drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, createStmt(name, t.Columns)); err != nil {
		return "", fmt.Errorf("sqlite: create %s: %w", name, err)
	}

	insert := insertStmt(name, t.Columns)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return "", fmt.Errorf("sqlite: prepare %s: %w", name, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if i%w.batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return "", fmt.Errorf("sqlite: insert %s row %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("sqlite: commit %s: %w", name, err)
	}
	return name, nil
}

func (w *Writer) Close() error { return w.db.Close() }

func createStmt(name string, cols []sink.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = `"` + c.Name + `" ` + sqliteType(c.SQLType)
	}
	return fmt.Sprintf(`CREATE TABLE "%s" (%s)`, name, strings.Join(defs, ", "))
}

func insertStmt(name string, cols []sink.Column) string {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = `"` + c.Name + `"`
		marks[i] = "?"
	}
	return fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
		name, strings.Join(names, ", "), strings.Join(marks, ", "))
}

// sqliteType maps the portable column types to SQLite storage classes.
func sqliteType(t string) string {
	switch t {
	case "bigint", "integer":
		return "INTEGER"
	case "double precision":
		return "REAL"
	default:
		return "TEXT"
	}
}
