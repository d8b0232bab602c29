// Package postgres is the warehouse sink backend using pgx v5. Each table
// is recreated (drop + create) and bulk-loaded via COPY, so a run fully
// replaces the previous star schema.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"faoetl/internal/sink"
)

func init() {
	sink.Register("postgres", func(ctx context.Context, cfg sink.Config) (sink.Writer, error) {
		return NewWriter(ctx, cfg)
	})
}

// Writer loads tables into Postgres via COPY.
type Writer struct {
	pool   *pgxpool.Pool
	prefix string
}

// NewWriter connects a pgx pool. BatchSize is irrelevant for COPY (pgx
// streams rows) and is ignored.
func NewWriter(ctx context.Context, cfg sink.Config) (*Writer, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DSN required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	return &Writer{pool: pool, prefix: cfg.TablePrefix}, nil
}

// WriteTable drops, recreates, and COPY-loads one table inside a single
// transaction, so readers never observe a half-replaced table.
func (w *Writer) WriteTable(ctx context.Context, t sink.Table) (string, error) {
	name := pgIdent(w.prefix + t.Name)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return "", fmt.Errorf("postgres: drop %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, createStmt(name, t.Columns)); err != nil {
		return "", fmt.Errorf("postgres: create %s: %w", name, err)
	}

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{w.prefix + t.Name}, cols, pgx.CopyFromRows(t.Rows))
	if err != nil {
		return "", fmt.Errorf("postgres: copy %s: %w", name, err)
	}
	if n != int64(len(t.Rows)) {
		return "", fmt.Errorf("postgres: copy %s: inserted %d of %d rows", name, n, len(t.Rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("postgres: commit %s: %w", name, err)
	}
	return w.prefix + t.Name, nil
}

func (w *Writer) Close() error {
	w.pool.Close()
	return nil
}

func createStmt(name string, cols []sink.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgIdent(c.Name) + " " + c.SQLType
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
}

// pgIdent quotes an identifier, doubling embedded quotes.
func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
