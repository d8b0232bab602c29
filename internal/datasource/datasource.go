// Package datasource defines the minimal contract for byte-level inputs to
// the pipeline (extract files, archives).
package datasource

import (
	"context"
	"io"
)

// Source yields a readable stream of raw bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
