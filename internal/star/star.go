// Package star assembles the final star schema: the dimension tables plus
// the validated fact table, with a last referential-integrity pass.
//
// Any violation found here is an internal defect (the fact transformer
// already resolved every key) and is fatal with table/key detail.
package star

import (
	"fmt"
	"sort"

	"faoetl/internal/dimension"
	"faoetl/internal/fact"
)

// Schema is the assembled output set. Table order here is the write order.
type Schema struct {
	Countries     []dimension.Country
	CountryGroups []dimension.CountryGroup
	Elements      []dimension.Element
	Flags         []dimension.Flag
	Items         []dimension.Item
	ItemGroups    []dimension.ItemGroup
	Units         []dimension.Unit
	Facts         []fact.Row
}

// IntegrityError reports a fact (or bridge) foreign key that does not
// resolve to any dimension row.
type IntegrityError struct {
	Table  string // referencing table
	Column string
	Key    int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("referential integrity violation: %s.%s=%d has no dimension row", e.Table, e.Column, e.Key)
}

// Assemble verifies every foreign key and returns the schema with all
// tables in deterministic order (dimensions by surrogate key, facts by
// source line). The input slices are sorted in place.
func Assemble(s Schema) (*Schema, error) {
	countryKeys := keySet(len(s.Countries), func(i int) int64 { return s.Countries[i].Key })
	itemKeys := keySet(len(s.Items), func(i int) int64 { return s.Items[i].Key })
	elementKeys := keySet(len(s.Elements), func(i int) int64 { return s.Elements[i].Key })
	unitKeys := keySet(len(s.Units), func(i int) int64 { return s.Units[i].Key })
	flagKeys := keySet(len(s.Flags), func(i int) int64 { return s.Flags[i].Key })

	for _, g := range s.CountryGroups {
		if _, ok := countryKeys[g.CountryKey]; !ok {
			return nil, &IntegrityError{Table: "dim_country_group", Column: "country_key", Key: g.CountryKey}
		}
	}
	for _, g := range s.ItemGroups {
		if _, ok := itemKeys[g.ItemKey]; !ok {
			return nil, &IntegrityError{Table: "dim_item_group", Column: "item_key", Key: g.ItemKey}
		}
	}
	for i := range s.Facts {
		f := &s.Facts[i]
		if _, ok := countryKeys[f.CountryKey]; !ok {
			return nil, &IntegrityError{Table: "fact_production", Column: "country_key", Key: f.CountryKey}
		}
		if _, ok := itemKeys[f.ItemKey]; !ok {
			return nil, &IntegrityError{Table: "fact_production", Column: "item_key", Key: f.ItemKey}
		}
		if _, ok := elementKeys[f.ElementKey]; !ok {
			return nil, &IntegrityError{Table: "fact_production", Column: "element_key", Key: f.ElementKey}
		}
		if _, ok := unitKeys[f.UnitKey]; !ok {
			return nil, &IntegrityError{Table: "fact_production", Column: "unit_key", Key: f.UnitKey}
		}
		if _, ok := flagKeys[f.FlagKey]; !ok {
			return nil, &IntegrityError{Table: "fact_production", Column: "flag_key", Key: f.FlagKey}
		}
	}

	sortSchema(&s)
	return &s, nil
}

// sortSchema orders every table deterministically so re-runs over unchanged
// input write byte-identical output regardless of worker scheduling.
func sortSchema(s *Schema) {
	sort.Slice(s.Countries, func(i, j int) bool { return s.Countries[i].Key < s.Countries[j].Key })
	sort.Slice(s.CountryGroups, func(i, j int) bool { return s.CountryGroups[i].Key < s.CountryGroups[j].Key })
	sort.Slice(s.Elements, func(i, j int) bool { return s.Elements[i].Key < s.Elements[j].Key })
	sort.Slice(s.Flags, func(i, j int) bool { return s.Flags[i].Key < s.Flags[j].Key })
	sort.Slice(s.Items, func(i, j int) bool { return s.Items[i].Key < s.Items[j].Key })
	sort.Slice(s.ItemGroups, func(i, j int) bool { return s.ItemGroups[i].Key < s.ItemGroups[j].Key })
	sort.Slice(s.Units, func(i, j int) bool { return s.Units[i].Key < s.Units[j].Key })
	sort.Slice(s.Facts, func(i, j int) bool { return s.Facts[i].Line < s.Facts[j].Line })
}

func keySet(n int, key func(int) int64) map[int64]struct{} {
	set := make(map[int64]struct{}, n)
	for i := 0; i < n; i++ {
		set[key(i)] = struct{}{}
	}
	return set
}
