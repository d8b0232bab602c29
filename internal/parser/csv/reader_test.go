package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

/*
makeCSV builds a CSV document in-memory with the given header and rows.
It uses encoding/csv so quoting and escaping are always correct.
*/
func makeCSV(header []string, rows [][]string) string {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.String()
}

func Test_CanonicalName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Area Code (M49)", "area_code_m49"},
		{"Item Code", "item_code"},
		{"  Flag  ", "flag"},
		{"Unit Name", "unit_name"},
		{"Year", "year"},
	}
	for _, c := range cases {
		if got := CanonicalName(c.in); got != c.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func Test_NewReader_AlignsColumnsByHeader(t *testing.T) {
	// Source column order differs from the requested order; extra columns
	// are ignored and missing optional columns read as "".
	doc := makeCSV(
		[]string{"Description", "Unit Name", "Ignored"},
		[][]string{{"metric tonnes", "tonnes", "x"}},
	)
	r, err := NewReader(strings.NewReader(doc), []string{"unit_name", "description", "absent"}, []string{"unit_name"}, Options{TrimSpace: true})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row.V[0] != "tonnes" || row.V[1] != "metric tonnes" || row.V[2] != "" {
		t.Fatalf("unexpected row: %v", row.V)
	}
	if row.Line != 2 {
		t.Fatalf("line = %d, want 2", row.Line)
	}
}

func Test_NewReader_MissingRequiredColumn(t *testing.T) {
	doc := makeCSV([]string{"Unit Name"}, nil)
	_, err := NewReader(strings.NewReader(doc), []string{"unit_name", "flag"}, []string{"flag"}, Options{})
	if err == nil {
		t.Fatal("expected error for missing required column")
	}
	if !errors.Is(err, ErrExtractUnusable) {
		t.Fatalf("error %v should wrap ErrExtractUnusable", err)
	}
}

func Test_NewReader_StripsBOM(t *testing.T) {
	doc := "\uFEFF" + "Flag,Description\nE,Estimate\n"
	r, err := NewReader(strings.NewReader(doc), []string{"flag", "description"}, []string{"flag"}, Options{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row.V[0] != "E" {
		t.Fatalf("flag = %q, want E", row.V[0])
	}
}

func Test_NewReader_HeaderMapOverride(t *testing.T) {
	doc := makeCSV([]string{"Sigla"}, [][]string{{"E"}})
	r, err := NewReader(strings.NewReader(doc), []string{"flag"}, []string{"flag"}, Options{
		HeaderMap: map[string]string{"Sigla": "flag"},
	})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row.V[0] != "E" {
		t.Fatalf("flag = %q, want E", row.V[0])
	}
}

func Test_NewReader_CP1252(t *testing.T) {
	// "Côte d'Ivoire" with ô encoded as the single Windows-1252 byte 0xF4.
	enc, err := charmap.Windows1252.NewEncoder().String("Country\nCôte d'Ivoire\n")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	r, err := NewReader(strings.NewReader(enc), []string{"country"}, []string{"country"}, Options{Encoding: "cp1252"})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row.V[0] != "Côte d'Ivoire" {
		t.Fatalf("country = %q", row.V[0])
	}
}

func Test_NewReader_UnsupportedEncoding(t *testing.T) {
	_, err := NewReader(strings.NewReader("a\n"), []string{"a"}, nil, Options{Encoding: "ebcdic"})
	if err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}

func Test_Next_StrictWidthIsFatal(t *testing.T) {
	doc := "a,b\n1,2\n3\n"
	r, err := NewReader(strings.NewReader(doc), []string{"a", "b"}, []string{"a"}, Options{StrictWidth: true})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("first row: %v", err)
	}
	_, err = r.Next()
	if err == nil {
		t.Fatal("expected width mismatch error")
	}
	var re *RowError
	if errors.As(err, &re) {
		t.Fatalf("strict width mismatch must not be a recoverable RowError: %v", err)
	}
	if !errors.Is(err, csv.ErrFieldCount) {
		t.Fatalf("error %v should wrap csv.ErrFieldCount", err)
	}
}

func Test_ReadChunk_SkipsSoftErrors(t *testing.T) {
	// A stray quote inside an unquoted cell fails the row without
	// LazyQuotes; the reader keeps going.
	doc := "a,b\n1,ok\n2,\"bad\n3,ok\n"
	r, err := NewReader(strings.NewReader(doc), []string{"a", "b"}, []string{"a"}, Options{LazyQuotes: false})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	var softLines []int
	rows, err := r.ReadAll(func(line int, err error) { softLines = append(softLines, line) })
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) < 1 {
		t.Fatalf("expected at least one surviving row, got %d", len(rows))
	}
	if len(softLines) == 0 {
		t.Fatal("expected the bad row to be reported")
	}
}

func Test_ReadChunk_WindowsAndExhaustion(t *testing.T) {
	rows := make([][]string, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, []string{"v"})
	}
	doc := makeCSV([]string{"a"}, rows)
	r, err := NewReader(strings.NewReader(doc), []string{"a"}, []string{"a"}, Options{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	chunk, more, err := r.ReadChunk(2, nil)
	if err != nil || !more || len(chunk) != 2 {
		t.Fatalf("first chunk: rows=%d more=%v err=%v", len(chunk), more, err)
	}
	chunk, more, err = r.ReadChunk(10, nil)
	if err != nil || more || len(chunk) != 3 {
		t.Fatalf("final chunk: rows=%d more=%v err=%v", len(chunk), more, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF after exhaustion, got %v", err)
	}
}
