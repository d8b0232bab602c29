// Package csvfile is the file-based sink backend: each table becomes one
// CSV file under the configured output directory. This matches the layout
// the downstream BI load expects (dim_*.csv / fact_production.csv) and is
// what the S3 upload collaborator syncs.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"faoetl/internal/sink"
)

func init() {
	sink.Register("csvfile", func(_ context.Context, cfg sink.Config) (sink.Writer, error) {
		return NewWriter(cfg.Out)
	})
}

// Writer writes one CSV file per table.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("csvfile: output directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvfile: create %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// WriteTable writes t to <dir>/<name>.csv with a header row. Null cells are
// written as empty strings.
func (w *Writer) WriteTable(ctx context.Context, t sink.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, t.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("csvfile: create %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("csvfile: write header: %w", err)
	}

	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		if err := cw.Write(cells); err != nil {
			f.Close()
			return "", fmt.Errorf("csvfile: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("csvfile: flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("csvfile: close %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) Close() error { return nil }

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
