package fact

import (
	"context"
	"sort"
	"strings"
	"testing"

	"faoetl/internal/dimension"
	"faoetl/internal/parser/csv"
)

/*
testLookups builds a small dimension world: one country (M49 004), two items,
one element, one unit, one flag.
*/
func testLookups() Lookups {
	return Lookups{
		CountryByM49:  dimension.Lookup{"004": dimension.Key("country", "2")},
		ItemByCode:    dimension.Lookup{"15": dimension.Key("item", "15"), "27": dimension.Key("item", "27")},
		ElementByCode: dimension.Lookup{"5510": dimension.Key("element", "5510")},
		UnitByName:    dimension.Lookup{"tonnes": dimension.Key("unit", "tonnes")},
		FlagBySymbol:  dimension.Lookup{"E": dimension.Key("flag", "E")},
	}
}

const productionHeader = "Area Code (M49),Item Code,Element Code,Year,Unit,Value,Flag\n"

func productionReader(t *testing.T, lines ...string) *csv.Reader {
	t.Helper()
	doc := productionHeader + strings.Join(lines, "\n") + "\n"
	r, err := csv.NewReader(strings.NewReader(doc), Columns, Required, csv.Options{TrimSpace: true, StrictWidth: true})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func Test_Run_AcceptAndReject(t *testing.T) {
	tr := NewTransformer(testLookups(), 0, 2, 0)
	rows, err := tr.Run(context.Background(), productionReader(t,
		"'004,15,5510,1990,tonnes,2279.0,E",
		"'004,15,5510,1991,tonnes,,E",        // empty value: accepted with null
		"'004,15,5510,1992,tonnes,n/a,E",     // non-numeric value: accepted with null
		"'999,15,5510,1990,tonnes,1.0,E",     // unknown area
		"'004,15,5510,year?,tonnes,1.0,E",    // bad year
		"'004,99,5510,1990,tonnes,1.0,E",     // unknown item
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("accepted = %d, want 3", len(rows))
	}
	if tr.Counters.Processed.Load() != 6 || tr.Counters.Accepted.Load() != 3 || tr.Counters.Rejected.Load() != 3 {
		t.Fatalf("counters: processed=%d accepted=%d rejected=%d",
			tr.Counters.Processed.Load(), tr.Counters.Accepted.Load(), tr.Counters.Rejected.Load())
	}

	byReason := tr.Rejects.ByReason()
	if byReason[ReasonCountry] != 1 || byReason[ReasonYear] != 1 || byReason[ReasonItem] != 1 {
		t.Fatalf("rejects = %v", byReason)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Line < rows[j].Line })
	if rows[0].Value == nil || *rows[0].Value != 2279.0 {
		t.Fatalf("value = %v", rows[0].Value)
	}
	if rows[1].Value != nil || rows[2].Value != nil {
		t.Fatal("empty and non-numeric values must become null")
	}
	if rows[0].CountryKey != dimension.Key("country", "2") {
		t.Fatal("country key not resolved through the M49 lookup")
	}
}

func Test_Run_DuplicateGrainCounted(t *testing.T) {
	tr := NewTransformer(testLookups(), 0, 1, 0)
	rows, err := tr.Run(context.Background(), productionReader(t,
		"'004,15,5510,1990,tonnes,1.0,E",
		"'004,15,5510,1990,tonnes,2.0,E", // same grain, different value
		"'004,27,5510,1990,tonnes,3.0,E",
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Duplicates are retained, only counted.
	if len(rows) != 3 {
		t.Fatalf("accepted = %d, want 3", len(rows))
	}
	if got := tr.Counters.DuplicateGrain.Load(); got != 1 {
		t.Fatalf("duplicate grain = %d, want 1", got)
	}
}

func Test_Run_ChunkSizeDoesNotChangeResults(t *testing.T) {
	lines := []string{
		"'004,15,5510,1990,tonnes,1.0,E",
		"'004,15,5510,1991,tonnes,2.0,E",
		"'004,27,5510,1990,tonnes,3.0,E",
		"'004,15,5510,1990,tonnes,4.0,E", // duplicate grain of line 2
		"'999,15,5510,1990,tonnes,5.0,E", // rejected
		"'004,27,5510,1991,tonnes,6.0,E",
		"'004,27,5510,1992,tonnes,,E",
	}

	type result struct {
		lines          []int
		rejected       int64
		duplicateGrain int64
	}

	run := func(chunkSize, workers int) result {
		tr := NewTransformer(testLookups(), chunkSize, workers, 0)
		rows, err := tr.Run(context.Background(), productionReader(t, lines...))
		if err != nil {
			t.Fatalf("Run(chunk=%d): %v", chunkSize, err)
		}
		accepted := make([]int, len(rows))
		for i, r := range rows {
			accepted[i] = r.Line
		}
		sort.Ints(accepted)
		return result{accepted, tr.Counters.Rejected.Load(), tr.Counters.DuplicateGrain.Load()}
	}

	base := run(100, 1)
	for _, chunk := range []int{1, 2, 3} {
		for _, workers := range []int{1, 4} {
			got := run(chunk, workers)
			if got.rejected != base.rejected || got.duplicateGrain != base.duplicateGrain {
				t.Fatalf("chunk=%d workers=%d: counters diverged: %+v vs %+v", chunk, workers, got, base)
			}
			if len(got.lines) != len(base.lines) {
				t.Fatalf("chunk=%d workers=%d: accepted set diverged", chunk, workers)
			}
			for i := range got.lines {
				if got.lines[i] != base.lines[i] {
					t.Fatalf("chunk=%d workers=%d: accepted set diverged at %d", chunk, workers, i)
				}
			}
		}
	}
}

func Test_Run_StrictWidthAborts(t *testing.T) {
	tr := NewTransformer(testLookups(), 0, 1, 0)
	_, err := tr.Run(context.Background(), productionReader(t,
		"'004,15,5510,1990,tonnes,1.0,E",
		"'004,15,5510", // truncated row: upstream schema drift
	))
	if err == nil {
		t.Fatal("expected a fatal error on width mismatch")
	}
}

func Test_Run_CancellationStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTransformer(testLookups(), 1, 1, 0)
	_, err := tr.Run(ctx, productionReader(t,
		"'004,15,5510,1990,tonnes,1.0,E",
	))
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func Test_NewTransformer_MemoryCeilingCapsChunk(t *testing.T) {
	tr := NewTransformer(testLookups(), 1_000_000, 4, 64)
	// 64MB / 512B / 4 workers = 32768 rows.
	if tr.ChunkSize != 32768 {
		t.Fatalf("chunk size = %d, want 32768", tr.ChunkSize)
	}
}
