package dimension

import (
	"fmt"

	"faoetl/internal/parser/csv"
)

// BuildUnits builds dim_unit from Units.csv rows aligned to UnitColumns.
// Returns the table, a unit-name lookup, and build stats.
func BuildUnits(rows []csv.Row) ([]Unit, Lookup, Stats, error) {
	d := newDedup()
	table := make([]Unit, 0, len(rows))
	lookup := Lookup{}

	for _, r := range rows {
		d.stats.RowsRead++
		name := r.V[0]
		if name == "" {
			d.stats.Malformed++
			continue
		}
		if !d.admit(name) {
			continue
		}
		u := Unit{Key: Key("unit", name), UnitName: name, Description: r.V[1]}
		table = append(table, u)
		lookup[name] = u.Key
	}
	if len(table) == 0 {
		return nil, nil, d.stats, fmt.Errorf("units: %w", ErrNoUsableRows)
	}
	return table, lookup, d.stats, nil
}

// BuildFlags builds dim_flag from Flags.csv rows aligned to FlagColumns.
func BuildFlags(rows []csv.Row) ([]Flag, Lookup, Stats, error) {
	d := newDedup()
	table := make([]Flag, 0, len(rows))
	lookup := Lookup{}

	for _, r := range rows {
		d.stats.RowsRead++
		sym := r.V[0]
		if sym == "" {
			d.stats.Malformed++
			continue
		}
		if !d.admit(sym) {
			continue
		}
		f := Flag{Key: Key("flag", sym), Flag: sym, Description: r.V[1]}
		table = append(table, f)
		lookup[sym] = f.Key
	}
	if len(table) == 0 {
		return nil, nil, d.stats, fmt.Errorf("flags: %w", ErrNoUsableRows)
	}
	return table, lookup, d.stats, nil
}

// BuildElements builds dim_element from Elements.csv rows aligned to
// ElementColumns.
func BuildElements(rows []csv.Row) ([]Element, Lookup, Stats, error) {
	d := newDedup()
	table := make([]Element, 0, len(rows))
	lookup := Lookup{}

	for _, r := range rows {
		d.stats.RowsRead++
		code := r.V[0]
		if code == "" {
			d.stats.Malformed++
			continue
		}
		if !d.admit(code) {
			continue
		}
		e := Element{
			Key:         Key("element", code),
			ElementCode: code,
			Element:     r.V[1],
			Unit:        r.V[2],
			Description: r.V[3],
		}
		table = append(table, e)
		lookup[code] = e.Key
	}
	if len(table) == 0 {
		return nil, nil, d.stats, fmt.Errorf("elements: %w", ErrNoUsableRows)
	}
	return table, lookup, d.stats, nil
}

// BuildItemGroups builds dim_item_group (grain: group x item) and the
// item-grain dim_item the fact table references, from ItemGroup.csv rows
// aligned to ItemGroupColumns. The returned Lookup resolves item codes to
// dim_item keys.
func BuildItemGroups(rows []csv.Row) ([]Item, []ItemGroup, Lookup, Stats, error) {
	d := newDedup()
	itemSeen := newDedup() // item-grain dedupe; repeats across groups are expected, not warnings
	var items []Item
	var groups []ItemGroup
	lookup := Lookup{}

	for _, r := range rows {
		d.stats.RowsRead++
		groupCode, itemCode := r.V[0], r.V[2]
		if groupCode == "" || itemCode == "" {
			d.stats.Malformed++
			continue
		}
		if !d.admit(JoinKey(groupCode, itemCode)) {
			continue
		}

		itemKey := Key("item", itemCode)
		if itemSeen.admit(itemCode) {
			items = append(items, Item{
				Key:      itemKey,
				ItemCode: itemCode,
				Item:     r.V[3],
				CPCCode:  r.V[5],
			})
			lookup[itemCode] = itemKey
		}

		groups = append(groups, ItemGroup{
			Key:           Key("item_group", groupCode, itemCode),
			ItemGroupCode: groupCode,
			ItemGroup:     r.V[1],
			ItemCode:      itemCode,
			Item:          r.V[3],
			Factor:        r.V[4],
			CPCCode:       r.V[5],
			HSCode:        r.V[6],
			HS12Code:      r.V[7],
			ItemKey:       itemKey,
		})
	}
	if len(groups) == 0 {
		return nil, nil, nil, d.stats, fmt.Errorf("item groups: %w", ErrNoUsableRows)
	}
	return items, groups, lookup, d.stats, nil
}

// BuildCountryGroups builds dim_country_group (grain: group x country) and
// the country-grain dim_country the fact table references, from
// CountryGroup.csv rows aligned to CountryGroupColumns. The returned Lookup
// resolves normalized M49 codes to dim_country keys (the fact extract
// identifies areas by M49).
func BuildCountryGroups(rows []csv.Row) ([]Country, []CountryGroup, Lookup, Stats, error) {
	d := newDedup()
	countrySeen := newDedup()
	var countries []Country
	var groups []CountryGroup
	byM49 := Lookup{}

	for _, r := range rows {
		d.stats.RowsRead++
		groupCode, countryCode := r.V[0], r.V[2]
		if groupCode == "" || countryCode == "" {
			d.stats.Malformed++
			continue
		}
		if !d.admit(JoinKey(groupCode, countryCode)) {
			continue
		}

		m49 := NormalizeM49(r.V[4])
		countryKey := Key("country", countryCode)
		if countrySeen.admit(countryCode) {
			countries = append(countries, Country{
				Key:         countryKey,
				CountryCode: countryCode,
				Country:     r.V[3],
				M49Code:     m49,
				ISO2Code:    r.V[5],
				ISO3Code:    r.V[6],
			})
			if m49 != "" {
				byM49[m49] = countryKey
			}
		}

		groups = append(groups, CountryGroup{
			Key:              Key("country_group", groupCode, countryCode),
			CountryGroupCode: groupCode,
			CountryGroup:     r.V[1],
			CountryCode:      countryCode,
			Country:          r.V[3],
			M49Code:          m49,
			ISO2Code:         r.V[5],
			ISO3Code:         r.V[6],
			CountryKey:       countryKey,
		})
	}
	if len(groups) == 0 {
		return nil, nil, nil, d.stats, fmt.Errorf("country groups: %w", ErrNoUsableRows)
	}
	return countries, groups, byM49, d.stats, nil
}
