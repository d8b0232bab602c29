// Package dimension builds the star-schema dimension tables from the FAO
// reference extracts.
//
// Each builder deduplicates raw extract rows by the entity's natural key
// (keep-first; a duplicate with differing attributes is a data-quality
// warning, never a failure), assigns a deterministic surrogate key, and
// returns a natural-key -> surrogate-key lookup for the fact stage.
//
// Surrogate keys are derived by hashing the natural key rather than by a
// run-order counter, so re-running the pipeline over unchanged extracts
// produces identical tables.
package dimension

import (
	"errors"
	"strings"

	"github.com/zeebo/xxh3"
)

// ErrNoUsableRows is returned when an extract yields no row with a usable
// natural key; the extract is unusable and the run must abort.
var ErrNoUsableRows = errors.New("no rows with a usable natural key")

// Key derives the surrogate key for an entity from its natural key parts.
// The entity name is folded in so equal natural keys in different dimensions
// never collide to the same key space.
func Key(entity string, parts ...string) int64 {
	h := xxh3.HashString(entity + "\x1f" + strings.Join(parts, "\x1f"))
	return int64(h >> 1) // keep it positive for BI tools and SQL sinks
}

// Lookup maps a natural key (joined with joinKey when composite) to the
// surrogate key of its dimension row. Lookups are built once by the builders
// and are read-only afterwards, so the fact workers share them without
// locking.
type Lookup map[string]int64

// JoinKey builds the map key for composite natural keys.
func JoinKey(parts ...string) string { return strings.Join(parts, "\x1f") }

// Stats counts what happened while building one dimension.
type Stats struct {
	RowsRead      int // raw extract rows seen
	Malformed     int // rows skipped for a missing/empty natural key
	DuplicateKeys int // data-quality warnings: natural key seen more than once
}

// Warnings reports the data-quality warning count for this dimension.
func (s Stats) Warnings() int { return s.DuplicateKeys }

// dedup tracks first-occurrence semantics for natural keys.
type dedup struct {
	seen  map[string]struct{}
	stats Stats
}

func newDedup() *dedup { return &dedup{seen: map[string]struct{}{}} }

// admit reports whether key is new. A repeat increments the duplicate
// counter (keep-first policy).
func (d *dedup) admit(key string) bool {
	if _, ok := d.seen[key]; ok {
		d.stats.DuplicateKeys++
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// NormalizeM49 strips the leading apostrophe the FAO export puts on M49
// codes ("'004" -> "004"). Empty input stays empty.
func NormalizeM49(code string) string {
	return strings.TrimPrefix(strings.TrimSpace(code), "'")
}
