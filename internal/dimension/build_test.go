package dimension

import (
	"errors"
	"testing"

	"faoetl/internal/parser/csv"
)

/*
rows builds aligned parser rows from raw cell slices, numbering lines from 2
the way a real extract would (line 1 is the header).
*/
func rows(cells ...[]string) []csv.Row {
	out := make([]csv.Row, len(cells))
	for i, c := range cells {
		out[i] = csv.Row{Line: i + 2, V: c}
	}
	return out
}

func Test_Key_DeterministicAndScoped(t *testing.T) {
	if Key("unit", "tonnes") != Key("unit", "tonnes") {
		t.Fatal("equal natural keys must hash to equal surrogate keys")
	}
	if Key("unit", "tonnes") == Key("flag", "tonnes") {
		t.Fatal("different entities must not share a key space")
	}
	if Key("item", "15") < 0 {
		t.Fatal("surrogate keys must be positive")
	}
}

func Test_NormalizeM49(t *testing.T) {
	cases := map[string]string{
		"'004": "004",
		"004":  "004",
		" '004 ": "004",
		"":     "",
	}
	for in, want := range cases {
		if got := NormalizeM49(in); got != want {
			t.Errorf("NormalizeM49(%q) = %q, want %q", in, got, want)
		}
	}
}

func Test_BuildUnits_KeepFirstOnDuplicate(t *testing.T) {
	// The same unit name appearing twice with different descriptions is a
	// data-quality warning; the first row wins.
	units, lookup, stats, err := BuildUnits(rows(
		[]string{"tonnes", "metric tonnes"},
		[]string{"tonnes", "1000 kg"},
		[]string{"head", "animals"},
		[]string{"", "nameless"},
	))
	if err != nil {
		t.Fatalf("BuildUnits: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}
	if units[0].Description != "metric tonnes" {
		t.Fatalf("first occurrence must win, got %q", units[0].Description)
	}
	if stats.DuplicateKeys != 1 || stats.Malformed != 1 || stats.RowsRead != 4 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Warnings() != 1 {
		t.Fatalf("warnings = %d, want 1", stats.Warnings())
	}
	if lookup["tonnes"] != units[0].Key {
		t.Fatal("lookup must resolve to the kept row")
	}
}

func Test_BuildUnits_EmptyExtractFails(t *testing.T) {
	_, _, _, err := BuildUnits(rows([]string{"", "x"}))
	if !errors.Is(err, ErrNoUsableRows) {
		t.Fatalf("err = %v, want ErrNoUsableRows", err)
	}
}

func Test_BuildFlags(t *testing.T) {
	flags, lookup, stats, err := BuildFlags(rows(
		[]string{"E", "Estimated value"},
		[]string{"M", "Missing value"},
	))
	if err != nil {
		t.Fatalf("BuildFlags: %v", err)
	}
	if len(flags) != 2 || stats.Warnings() != 0 {
		t.Fatalf("flags=%d warnings=%d", len(flags), stats.Warnings())
	}
	if lookup["M"] == 0 || lookup["M"] == lookup["E"] {
		t.Fatal("flag keys must be distinct and non-zero")
	}
}

func Test_BuildElements(t *testing.T) {
	elems, lookup, _, err := BuildElements(rows(
		[]string{"5510", "Production", "t", "Amount produced"},
	))
	if err != nil {
		t.Fatalf("BuildElements: %v", err)
	}
	if elems[0].Element != "Production" || elems[0].Unit != "t" {
		t.Fatalf("element row = %+v", elems[0])
	}
	if lookup["5510"] != elems[0].Key {
		t.Fatal("lookup mismatch")
	}
}

func Test_BuildItemGroups_ItemGrainDedup(t *testing.T) {
	// Wheat belongs to two groups: two membership rows, one dim_item row,
	// and no duplicate-key warning (repeats across groups are expected).
	items, groups, lookup, stats, err := BuildItemGroups(rows(
		[]string{"QC", "Crops", "15", "Wheat", "1", "0111", "", ""},
		[]string{"QCL", "Crops and livestock", "15", "Wheat", "1", "0111", "", ""},
		[]string{"QC", "Crops", "27", "Rice", "1", "0113", "", ""},
	))
	if err != nil {
		t.Fatalf("BuildItemGroups: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if stats.DuplicateKeys != 0 {
		t.Fatalf("cross-group repeats must not count as duplicates, got %d", stats.DuplicateKeys)
	}
	wheatKey := lookup["15"]
	for _, g := range groups {
		if g.ItemCode == "15" && g.ItemKey != wheatKey {
			t.Fatalf("group %s must reference the dim_item row", g.ItemGroupCode)
		}
	}
}

func Test_BuildItemGroups_DuplicateMembership(t *testing.T) {
	_, groups, _, stats, err := BuildItemGroups(rows(
		[]string{"QC", "Crops", "15", "Wheat", "1", "0111", "", ""},
		[]string{"QC", "Crops", "15", "Wheat", "1", "0111", "", ""},
	))
	if err != nil {
		t.Fatalf("BuildItemGroups: %v", err)
	}
	if len(groups) != 1 || stats.DuplicateKeys != 1 {
		t.Fatalf("groups=%d duplicates=%d", len(groups), stats.DuplicateKeys)
	}
}

func Test_BuildCountryGroups(t *testing.T) {
	countries, groups, byM49, stats, err := BuildCountryGroups(rows(
		[]string{"5000", "World", "2", "Afghanistan", "'004", "AF", "AFG"},
		[]string{"5300", "Asia", "2", "Afghanistan", "'004", "AF", "AFG"},
		[]string{"5000", "World", "3", "Albania", "'008", "AL", "ALB"},
	))
	if err != nil {
		t.Fatalf("BuildCountryGroups: %v", err)
	}
	if len(countries) != 2 || len(groups) != 3 {
		t.Fatalf("countries=%d groups=%d", len(countries), len(groups))
	}
	if stats.DuplicateKeys != 0 {
		t.Fatalf("duplicates = %d, want 0", stats.DuplicateKeys)
	}
	// M49 codes are normalized on the way in.
	afgKey, ok := byM49["004"]
	if !ok {
		t.Fatal("lookup must key by normalized M49")
	}
	if countries[0].M49Code != "004" {
		t.Fatalf("M49 = %q, want 004", countries[0].M49Code)
	}
	for _, g := range groups {
		if g.CountryCode == "2" && g.CountryKey != afgKey {
			t.Fatalf("group %s must reference the dim_country row", g.CountryGroupCode)
		}
	}
}
