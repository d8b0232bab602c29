package dimension

// Canonical column sets per extract, in the order the builders expect rows
// to be aligned. Names match internal/parser/csv.CanonicalName output for
// the FAO headers.
var (
	UnitColumns         = []string{"unit_name", "description"}
	UnitRequired        = []string{"unit_name"}
	FlagColumns         = []string{"flag", "description"}
	FlagRequired        = []string{"flag"}
	ElementColumns      = []string{"element_code", "element", "unit", "description"}
	ElementRequired     = []string{"element_code"}
	ItemGroupColumns    = []string{"item_group_code", "item_group", "item_code", "item", "factor", "cpc_code", "hs_code", "hs12_code"}
	ItemGroupRequired   = []string{"item_group_code", "item_code"}
	CountryGroupColumns = []string{"country_group_code", "country_group", "country_code", "country", "m49_code", "iso2_code", "iso3_code"}
	// M49 is what the fact extract references, so it is structural.
	CountryGroupRequired = []string{"country_group_code", "country_code", "m49_code"}
)

// Unit is one row of dim_unit. Natural key: unit name.
type Unit struct {
	Key         int64
	UnitName    string
	Description string
}

// Flag is one row of dim_flag. Natural key: flag symbol. The set is a small
// enumeration of data-quality markers ("M" missing, "E" estimate, ...).
type Flag struct {
	Key         int64
	Flag        string
	Description string
}

// Element is one row of dim_element. Natural key: element code.
type Element struct {
	Key         int64
	ElementCode string
	Element     string
	Unit        string
	Description string
}

// Item is one row of dim_item, the item-grain dimension the fact table
// references. Natural key: item code. Items belonging to several groups
// still yield a single row here; group membership lives in dim_item_group.
type Item struct {
	Key      int64
	ItemCode string
	Item     string
	CPCCode  string
}

// ItemGroup is one row of dim_item_group, the (group, item) membership
// table. Natural key: (item group code, item code). ItemKey references the
// dim_item row for the member.
type ItemGroup struct {
	Key           int64
	ItemGroupCode string
	ItemGroup     string
	ItemCode      string
	Item          string
	Factor        string
	CPCCode       string
	HSCode        string
	HS12Code      string
	ItemKey       int64
}

// Country is one row of dim_country, the country-grain dimension the fact
// table references. Natural key: country code. Enrichment attributes are
// nil until the enrichment merge runs (and stay nil for unmatched
// countries).
type Country struct {
	Key         int64
	CountryCode string
	Country     string
	M49Code     string
	ISO2Code    string
	ISO3Code    string

	// Enrichment attributes (left join; nullable).
	CommonName   *string
	OfficialName *string
	Capital      *string
	Languages    *string
	Area         *float64
	Population   *int64
	FlagPNG      *string
	FlagSVG      *string
}

// CountryGroup is one row of dim_country_group, the (group, country)
// membership table. Natural key: (country group code, country code).
// CountryKey references the dim_country row for the member.
type CountryGroup struct {
	Key              int64
	CountryGroupCode string
	CountryGroup     string
	CountryCode      string
	Country          string
	M49Code          string
	ISO2Code         string
	ISO3Code         string
	CountryKey       int64
}
