package fact

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"faoetl/internal/dimension"
	"faoetl/internal/parser/csv"
)

// DefaultChunkSize keeps one chunk plus the dimension lookups comfortably
// under a few hundred MB.
const DefaultChunkSize = 100_000

// approxRowBytes is the rough in-flight footprint of one raw extract row
// (strings + slice headers), used only to honor the memory ceiling hint.
const approxRowBytes = 512

// Lookups are the read-only natural-key resolution maps built by the
// dimension stage. They are shared by all chunk workers without locking;
// nothing may mutate them while the transformer runs.
type Lookups struct {
	CountryByM49  dimension.Lookup
	ItemByCode    dimension.Lookup
	ElementByCode dimension.Lookup
	UnitByName    dimension.Lookup
	FlagBySymbol  dimension.Lookup
}

// Transformer streams the production extract into validated fact rows.
type Transformer struct {
	Lookups   Lookups
	ChunkSize int // rows per window; 0 selects DefaultChunkSize
	Workers   int // chunk worker pool size; 0 selects NumCPU

	Counters Counters
	Rejects  *RejectReport
}

// NewTransformer builds a Transformer honoring the memory ceiling hint:
// the chunk size is capped so workers*chunk*approxRowBytes stays under the
// ceiling.
func NewTransformer(lookups Lookups, chunkSize, workers, memoryCeilingMB int) *Transformer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if memoryCeilingMB > 0 {
		maxRows := memoryCeilingMB * 1024 * 1024 / approxRowBytes / workers
		if maxRows < 1 {
			maxRows = 1
		}
		if chunkSize > maxRows {
			log.Printf("fact: chunk_size capped %d -> %d by memory ceiling %dMB", chunkSize, maxRows, memoryCeilingMB)
			chunkSize = maxRows
		}
	}
	return &Transformer{
		Lookups:   lookups,
		ChunkSize: chunkSize,
		Workers:   workers,
		Rejects:   NewRejectReport(),
	}
}

// Run consumes the extract reader chunk by chunk and returns the accepted
// fact rows. Row-level problems are counted and reported, never fatal; a
// structural failure from the reader (width mismatch means upstream schema
// drift) aborts. Cancellation is honored at chunk granularity: in-flight
// chunks finish, no new chunk starts, and ctx.Err() is returned so the
// caller skips assembly.
func (t *Transformer) Run(ctx context.Context, r *csv.Reader) ([]Row, error) {
	chunkCh := make(chan []csv.Row, t.Workers)

	var (
		mu       sync.Mutex
		accepted []Row
		grains   = make(map[grainKey]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)

	// Reader: single sequential pass, bounded by the channel capacity.
	g.Go(func() error {
		defer close(chunkCh)
		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunk, more, err := r.ReadChunk(t.ChunkSize, func(line int, err error) {
				t.Counters.ParseErrors.Add(1)
				log.Printf("fact: line %d: %v", line, err)
			})
			if err != nil {
				return fmt.Errorf("read fact chunk: %w", err)
			}
			if len(chunk) > 0 {
				select {
				case chunkCh <- chunk:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if !more {
				return nil
			}
		}
	})

	// Workers: transform chunks independently, merge under one lock.
	for i := 0; i < t.Workers; i++ {
		g.Go(func() error {
			for chunk := range chunkCh {
				rows, chunkGrains := t.transformChunk(chunk)

				mu.Lock()
				for _, gk := range chunkGrains {
					if _, dup := grains[gk]; dup {
						t.Counters.DuplicateGrain.Add(1)
					} else {
						grains[gk] = struct{}{}
					}
				}
				accepted = append(accepted, rows...)
				mu.Unlock()

				if err := gctx.Err(); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("fact: processed=%d accepted=%d rejected=%d parse_errors=%d duplicate_grain=%d",
		t.Counters.Processed.Load(),
		t.Counters.Accepted.Load(),
		t.Counters.Rejected.Load(),
		t.Counters.ParseErrors.Load(),
		t.Counters.DuplicateGrain.Load(),
	)
	return accepted, nil
}

// transformChunk resolves and validates one chunk. It touches only the
// read-only lookups and its own slices, so chunks are safe to process in
// parallel. Grain keys of accepted rows are returned (in order) for the
// duplicate-grain counter, which the caller merges globally.
func (t *Transformer) transformChunk(chunk []csv.Row) ([]Row, []grainKey) {
	rows := make([]Row, 0, len(chunk))
	chunkGrains := make([]grainKey, 0, len(chunk))

	for _, raw := range chunk {
		t.Counters.Processed.Add(1)

		row, reason, ok := t.resolve(raw)
		if !ok {
			t.Counters.Rejected.Add(1)
			t.Rejects.Add(reason, raw.Line, renderKeys(raw))
			continue
		}

		t.Counters.Accepted.Add(1)
		rows = append(rows, row)
		chunkGrains = append(chunkGrains, grainKey{
			country: row.CountryKey,
			item:    row.ItemKey,
			element: row.ElementKey,
			year:    row.Year,
		})
	}
	return rows, chunkGrains
}

// resolve maps one raw extract row to a fact row. The first failing
// resolution wins as the rejection reason.
func (t *Transformer) resolve(raw csv.Row) (Row, string, bool) {
	m49 := dimension.NormalizeM49(raw.V[colM49])
	countryKey, ok := t.Lookups.CountryByM49[m49]
	if !ok {
		return Row{}, ReasonCountry, false
	}
	itemKey, ok := t.Lookups.ItemByCode[raw.V[colItem]]
	if !ok {
		return Row{}, ReasonItem, false
	}
	elementKey, ok := t.Lookups.ElementByCode[raw.V[colElement]]
	if !ok {
		return Row{}, ReasonElement, false
	}
	unitKey, ok := t.Lookups.UnitByName[raw.V[colUnit]]
	if !ok {
		return Row{}, ReasonUnit, false
	}
	flagKey, ok := t.Lookups.FlagBySymbol[raw.V[colFlag]]
	if !ok {
		return Row{}, ReasonFlag, false
	}
	year, ok := parseYear(raw.V[colYear])
	if !ok {
		return Row{}, ReasonYear, false
	}

	return Row{
		CountryKey: countryKey,
		ItemKey:    itemKey,
		ElementKey: elementKey,
		UnitKey:    unitKey,
		FlagKey:    flagKey,
		Year:       year,
		Value:      parseValue(raw.V[colValue]),
		Line:       raw.Line,
	}, "", true
}

func renderKeys(raw csv.Row) string {
	return fmt.Sprintf("area=%s item=%s element=%s unit=%s flag=%s year=%s",
		raw.V[colM49], raw.V[colItem], raw.V[colElement], raw.V[colUnit], raw.V[colFlag], raw.V[colYear])
}
