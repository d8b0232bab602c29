// Package csv provides streaming CSV reading for the extract files.
//
// The Reader emits rows aligned to a caller-declared set of canonical column
// names, using a header-derived index mapping, and never buffers the whole
// file. The production extract (millions of rows) is consumed through
// ReadChunk in bounded-size windows; the small reference extracts use Next
// directly.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"faoetl/internal/config"
)

// ErrExtractUnusable marks a structural incompatibility between an extract
// and its expected schema (missing required column, unreadable header).
// Callers treat it as fatal for the run.
var ErrExtractUnusable = errors.New("extract unusable")

// Options controls CSV reading. Build from config with OptionsFrom.
type Options struct {
	// Comma is the field delimiter. Default ','.
	Comma rune

	// TrimSpace trims each cell. Default true.
	TrimSpace bool

	// LazyQuotes tolerates unescaped quotes inside cells.
	LazyQuotes bool

	// Encoding names the byte encoding of the file. "" or "utf-8" reads raw;
	// "cp1252" decodes Windows-1252 (the FAO bulk export encoding).
	Encoding string

	// HeaderMap overrides the automatic header normalization for specific
	// raw header cells (raw name -> canonical name).
	HeaderMap map[string]string

	// StrictWidth makes a row width mismatch a fatal error instead of a
	// soft-skipped row. Enabled for the production extract, where a width
	// change means the upstream schema itself changed.
	StrictWidth bool
}

// OptionsFrom builds Options from the free-form parser option bag.
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		TrimSpace:  o.Bool("trim_space", true),
		LazyQuotes: o.Bool("lazy_quotes", true),
		HeaderMap:  o.StringMap("header_map"),
	}
}

// Row is one parsed extract row, aligned to the canonical columns the Reader
// was created with. Missing source columns yield "".
type Row struct {
	// Line is the 1-based physical line in the extract (header is line 1).
	Line int
	V    []string
}

// Reader streams rows from one extract.
type Reader struct {
	cr      *csv.Reader
	opt     Options
	columns []string
	colIx   []int // colIx[target] = source index, or -1
	line    int
}

// NewReader wraps src and reads its header, building the mapping from the
// canonical column names in columns to source indexes. Every name in
// required must be present in the header; a missing one returns an error
// wrapping ErrExtractUnusable. Columns not in required may be absent and
// simply read as "".
func NewReader(src io.Reader, columns, required []string, opt Options) (*Reader, error) {
	if opt.Comma == 0 {
		opt.Comma = ','
	}

	var r io.Reader = src
	switch strings.ToLower(opt.Encoding) {
	case "", "utf-8", "utf8":
	case "cp1252", "windows-1252":
		r = transform.NewReader(src, charmap.Windows1252.NewDecoder())
	default:
		return nil, fmt.Errorf("unsupported encoding %q", opt.Encoding)
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1 // width enforced per policy below

	rd := &Reader{cr: cr, opt: opt, columns: columns}

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrExtractUnusable, err)
	}
	rd.line = 1

	srcToIdx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF") // strip BOM
		}
		h = strings.TrimSpace(h)
		if mapped, ok := opt.HeaderMap[h]; ok && mapped != "" {
			h = mapped
		} else {
			h = CanonicalName(h)
		}
		srcToIdx[h] = i
	}

	rd.colIx = make([]int, len(columns))
	for t, target := range columns {
		si, ok := srcToIdx[target]
		if !ok {
			si = -1
		}
		rd.colIx[t] = si
	}
	for _, req := range required {
		if _, ok := srcToIdx[req]; !ok {
			return nil, fmt.Errorf("%w: required column %q not found in header", ErrExtractUnusable, req)
		}
	}
	rd.widthHint(len(hdr))

	return rd, nil
}

func (r *Reader) widthHint(n int) {
	if r.opt.StrictWidth {
		// encoding/csv enforces the pinned width and returns ErrFieldCount
		// for any deviating row.
		r.cr.FieldsPerRecord = n
	}
}

// CanonicalName converts a raw header cell to its canonical snake_case form:
// "Area Code (M49)" -> "area_code_m49".
func CanonicalName(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "(", "")
	h = strings.ReplaceAll(h, ")", "")
	return strings.Join(strings.Fields(h), "_")
}

// Next returns the next row aligned to the canonical columns.
//
// Errors:
//   - io.EOF at end of input.
//   - With StrictWidth, a width mismatch is returned as a fatal error
//     (wrapping csv.ErrFieldCount) since it indicates upstream schema drift.
//   - Other per-row parse errors are returned as *RowError; the Reader stays
//     usable and the caller decides whether to count-and-continue.
func (r *Reader) Next() (Row, error) {
	rec, err := r.cr.Read()
	r.line++
	if err == io.EOF {
		return Row{}, io.EOF
	}
	if err != nil {
		if r.opt.StrictWidth && errors.Is(err, csv.ErrFieldCount) {
			return Row{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return Row{}, &RowError{Line: r.line, Err: err}
	}

	row := Row{Line: r.line, V: make([]string, len(r.columns))}
	for t := range r.columns {
		si := r.colIx[t]
		if si < 0 || si >= len(rec) {
			continue
		}
		v := rec[si]
		if r.opt.TrimSpace {
			v = strings.TrimSpace(v)
		}
		row.V[t] = v
	}
	return row, nil
}

// ReadChunk reads up to n rows. Soft per-row errors are reported through
// onErr and the row is skipped; fatal errors (strict width mismatch) are
// returned. The second return value is false once the extract is exhausted.
func (r *Reader) ReadChunk(n int, onErr func(line int, err error)) ([]Row, bool, error) {
	rows := make([]Row, 0, n)
	for len(rows) < n {
		row, err := r.Next()
		if err == io.EOF {
			return rows, false, nil
		}
		var re *RowError
		if errors.As(err, &re) {
			if onErr != nil {
				onErr(re.Line, re.Err)
			}
			continue
		}
		if err != nil {
			return rows, false, err
		}
		rows = append(rows, row)
	}
	return rows, true, nil
}

// ReadAll drains the extract, skipping soft-failed rows via onErr. Intended
// for the small reference extracts only.
func (r *Reader) ReadAll(onErr func(line int, err error)) ([]Row, error) {
	var rows []Row
	for {
		chunk, more, err := r.ReadChunk(1024, onErr)
		rows = append(rows, chunk...)
		if err != nil {
			return rows, err
		}
		if !more {
			return rows, nil
		}
	}
}

// RowError is a recoverable, single-row parse failure.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }
