package sink

import "faoetl/internal/star"

// Output table names. The csvfile backend appends ".csv"; database backends
// prepend the configured prefix.
const (
	TableCountry      = "dim_country"
	TableCountryGroup = "dim_country_group"
	TableElement      = "dim_element"
	TableFlag         = "dim_flag"
	TableItem         = "dim_item"
	TableItemGroup    = "dim_item_group"
	TableUnit         = "dim_unit"
	TableFact         = "fact_production"
)

// RenderSchema flattens the assembled schema into positional output tables,
// dimensions first so database sinks can add FK constraints later if they
// want to.
func RenderSchema(s *star.Schema) []Table {
	return []Table{
		renderCountries(s),
		renderCountryGroups(s),
		renderElements(s),
		renderFlags(s),
		renderItems(s),
		renderItemGroups(s),
		renderUnits(s),
		renderFacts(s),
	}
}

func renderCountries(s *star.Schema) Table {
	t := Table{
		Name: TableCountry,
		Columns: []Column{
			{Name: "country_key", SQLType: "bigint"},
			{Name: "country_code", SQLType: "text"},
			{Name: "country", SQLType: "text"},
			{Name: "m49_code", SQLType: "text"},
			{Name: "iso2_code", SQLType: "text"},
			{Name: "iso3_code", SQLType: "text"},
			{Name: "common_name", SQLType: "text"},
			{Name: "official_name", SQLType: "text"},
			{Name: "capital", SQLType: "text"},
			{Name: "languages", SQLType: "text"},
			{Name: "area", SQLType: "double precision"},
			{Name: "population", SQLType: "bigint"},
			{Name: "flag_png", SQLType: "text"},
			{Name: "flag_svg", SQLType: "text"},
		},
	}
	for _, c := range s.Countries {
		t.Rows = append(t.Rows, []any{
			c.Key, c.CountryCode, c.Country, c.M49Code, c.ISO2Code, c.ISO3Code,
			strOrNil(c.CommonName), strOrNil(c.OfficialName), strOrNil(c.Capital), strOrNil(c.Languages),
			floatOrNil(c.Area), intOrNil(c.Population), strOrNil(c.FlagPNG), strOrNil(c.FlagSVG),
		})
	}
	return t
}

func renderCountryGroups(s *star.Schema) Table {
	t := Table{
		Name: TableCountryGroup,
		Columns: []Column{
			{Name: "country_group_key", SQLType: "bigint"},
			{Name: "country_group_code", SQLType: "text"},
			{Name: "country_group", SQLType: "text"},
			{Name: "country_code", SQLType: "text"},
			{Name: "country", SQLType: "text"},
			{Name: "m49_code", SQLType: "text"},
			{Name: "iso2_code", SQLType: "text"},
			{Name: "iso3_code", SQLType: "text"},
			{Name: "country_key", SQLType: "bigint"},
		},
	}
	for _, g := range s.CountryGroups {
		t.Rows = append(t.Rows, []any{
			g.Key, g.CountryGroupCode, g.CountryGroup, g.CountryCode, g.Country,
			g.M49Code, g.ISO2Code, g.ISO3Code, g.CountryKey,
		})
	}
	return t
}

func renderElements(s *star.Schema) Table {
	t := Table{
		Name: TableElement,
		Columns: []Column{
			{Name: "element_key", SQLType: "bigint"},
			{Name: "element_code", SQLType: "text"},
			{Name: "element", SQLType: "text"},
			{Name: "unit", SQLType: "text"},
			{Name: "description", SQLType: "text"},
		},
	}
	for _, e := range s.Elements {
		t.Rows = append(t.Rows, []any{e.Key, e.ElementCode, e.Element, e.Unit, e.Description})
	}
	return t
}

func renderFlags(s *star.Schema) Table {
	t := Table{
		Name: TableFlag,
		Columns: []Column{
			{Name: "flag_key", SQLType: "bigint"},
			{Name: "flag", SQLType: "text"},
			{Name: "description", SQLType: "text"},
		},
	}
	for _, f := range s.Flags {
		t.Rows = append(t.Rows, []any{f.Key, f.Flag, f.Description})
	}
	return t
}

func renderItems(s *star.Schema) Table {
	t := Table{
		Name: TableItem,
		Columns: []Column{
			{Name: "item_key", SQLType: "bigint"},
			{Name: "item_code", SQLType: "text"},
			{Name: "item", SQLType: "text"},
			{Name: "cpc_code", SQLType: "text"},
		},
	}
	for _, i := range s.Items {
		t.Rows = append(t.Rows, []any{i.Key, i.ItemCode, i.Item, i.CPCCode})
	}
	return t
}

func renderItemGroups(s *star.Schema) Table {
	t := Table{
		Name: TableItemGroup,
		Columns: []Column{
			{Name: "item_group_key", SQLType: "bigint"},
			{Name: "item_group_code", SQLType: "text"},
			{Name: "item_group", SQLType: "text"},
			{Name: "item_code", SQLType: "text"},
			{Name: "item", SQLType: "text"},
			{Name: "factor", SQLType: "text"},
			{Name: "cpc_code", SQLType: "text"},
			{Name: "hs_code", SQLType: "text"},
			{Name: "hs12_code", SQLType: "text"},
			{Name: "item_key", SQLType: "bigint"},
		},
	}
	for _, g := range s.ItemGroups {
		t.Rows = append(t.Rows, []any{
			g.Key, g.ItemGroupCode, g.ItemGroup, g.ItemCode, g.Item,
			g.Factor, g.CPCCode, g.HSCode, g.HS12Code, g.ItemKey,
		})
	}
	return t
}

func renderUnits(s *star.Schema) Table {
	t := Table{
		Name: TableUnit,
		Columns: []Column{
			{Name: "unit_key", SQLType: "bigint"},
			{Name: "unit_name", SQLType: "text"},
			{Name: "description", SQLType: "text"},
		},
	}
	for _, u := range s.Units {
		t.Rows = append(t.Rows, []any{u.Key, u.UnitName, u.Description})
	}
	return t
}

func renderFacts(s *star.Schema) Table {
	t := Table{
		Name: TableFact,
		Columns: []Column{
			{Name: "country_key", SQLType: "bigint"},
			{Name: "item_key", SQLType: "bigint"},
			{Name: "element_key", SQLType: "bigint"},
			{Name: "unit_key", SQLType: "bigint"},
			{Name: "flag_key", SQLType: "bigint"},
			{Name: "year", SQLType: "integer"},
			{Name: "value", SQLType: "double precision"},
		},
	}
	t.Rows = make([][]any, 0, len(s.Facts))
	for i := range s.Facts {
		f := &s.Facts[i]
		t.Rows = append(t.Rows, []any{
			f.CountryKey, f.ItemKey, f.ElementKey, f.UnitKey, f.FlagKey, f.Year, floatOrNil(f.Value),
		})
	}
	return t
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intOrNil(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
