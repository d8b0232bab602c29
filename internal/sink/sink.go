// Package sink persists the assembled star schema. Concrete backends
// (csvfile, postgres, sqlite) register themselves with the factory here, so
// the pipeline container stays backend-agnostic; import faoetl/internal/sink/all
// (blank) to enable all built-in backends.
package sink

import (
	"context"
	"fmt"
	"sync"
)

// Column describes one output column. SQLType is used by database backends
// for table creation; file backends only need the name.
type Column struct {
	Name    string
	SQLType string // "text", "bigint", "integer", "double precision"
}

// Table is one fully rendered output table: ordered columns plus positional
// rows. Null cells are nil.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// ManifestEntry records where one table landed and how many rows it holds.
type ManifestEntry struct {
	Table    string `json:"table"`
	Rows     int64  `json:"rows"`
	Location string `json:"location"`
}

// Manifest is the hand-off to the upload collaborator: one entry per table,
// in write order.
type Manifest []ManifestEntry

// Config selects and configures a backend.
type Config struct {
	Kind        string // registered backend name
	Out         string // output directory (csvfile)
	DSN         string // connection string / file path (postgres, sqlite)
	TablePrefix string // prepended to table names (postgres, sqlite)
	BatchSize   int    // rows per bulk insert (postgres, sqlite)
}

// Writer persists tables. Implementations must be safe for sequential use;
// the pipeline writes tables one at a time.
type Writer interface {
	// WriteTable persists t and returns its storage location (file path,
	// qualified table name, ...).
	WriteTable(ctx context.Context, t Table) (string, error)
	Close() error
}

// Factory constructs a Writer for a Config.
type Factory func(ctx context.Context, cfg Config) (Writer, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind. Backends call this
// from init(); tests may override.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Writer for cfg.Kind. Unknown kinds fail with the set of
// registered backends in the message.
func New(ctx context.Context, cfg Config) (Writer, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sink: unknown kind %q (registered: %v)", cfg.Kind, kinds())
	}
	return f(ctx, cfg)
}

func kinds() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}

// WriteSchema writes every table through w and returns the manifest. The
// first failure aborts; partially written earlier tables are the backend's
// concern (csvfile leaves files behind, databases keep committed tables).
func WriteSchema(ctx context.Context, w Writer, tables []Table) (Manifest, error) {
	manifest := make(Manifest, 0, len(tables))
	for _, t := range tables {
		loc, err := w.WriteTable(ctx, t)
		if err != nil {
			return manifest, fmt.Errorf("write %s: %w", t.Name, err)
		}
		manifest = append(manifest, ManifestEntry{
			Table:    t.Name,
			Rows:     int64(len(t.Rows)),
			Location: loc,
		})
	}
	return manifest, nil
}
