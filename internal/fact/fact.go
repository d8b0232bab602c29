// Package fact transforms the large production extract into validated fact
// rows without ever materializing the whole extract.
//
// The extract is consumed in bounded-size chunks by a single reader
// goroutine; chunks are handed to a worker pool that resolves natural keys
// against the read-only dimension lookups and parses year/value. Chunk
// results merge in any order (the fact grain carries no ordering), so the
// accepted multiset and all counters are independent of chunk size and
// worker count.
package fact

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// Columns of the production extract the transformer consumes, in positional
// order (canonical names per parser/csv.CanonicalName). The extract carries
// 13 columns; the rest are denormalized names resolved via dimensions.
var Columns = []string{
	"area_code_m49",
	"item_code",
	"element_code",
	"year",
	"unit",
	"value",
	"flag",
}

// Required columns: all of them. A production extract missing any is
// structurally incompatible (extract-unusable).
var Required = Columns

// Positional indexes into Columns.
const (
	colM49 = iota
	colItem
	colElement
	colYear
	colUnit
	colValue
	colFlag
)

// Row is one validated fact row: dimension surrogate keys plus the grain
// attributes. Value is nil when the source cell is empty or non-numeric
// (missing production values are a legitimate domain state).
type Row struct {
	CountryKey int64
	ItemKey    int64
	ElementKey int64
	UnitKey    int64
	FlagKey    int64
	Year       int
	Value      *float64

	// Line is the source line in the extract; used only to restore a
	// deterministic order before writing.
	Line int
}

// Rejection reasons. Stable strings: they key the rejection report.
const (
	ReasonCountry = "unresolved country key"
	ReasonItem    = "unresolved item key"
	ReasonElement = "unresolved element key"
	ReasonUnit    = "unresolved unit key"
	ReasonFlag    = "unresolved flag key"
	ReasonYear    = "invalid year"
)

// Counters holds cross-goroutine statistics for the transform stage. All
// fields are updated atomically.
type Counters struct {
	Processed      atomic.Int64 // rows entering key resolution
	Accepted       atomic.Int64 // rows emitted to the fact table
	Rejected       atomic.Int64 // rows excluded (see the rejection report)
	ParseErrors    atomic.Int64 // lines the CSV reader could not parse
	DuplicateGrain atomic.Int64 // data-quality: repeated (country,item,element,year)
}

// parseValue implements the null-tolerant numeric coercion: empty or
// non-numeric values become nil, never an error.
func parseValue(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseYear is strict: a fact row without a usable year has no grain and is
// rejected.
func parseYear(s string) (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

// grainKey identifies the (country, item, element, year) fact grain for the
// duplicate-grain data-quality counter.
type grainKey struct {
	country, item, element int64
	year                   int
}
