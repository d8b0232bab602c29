package enrich

import (
	"log"

	"faoetl/internal/dimension"
)

// MergeStats counts join outcomes. UnmatchedRecords and Conflicts are
// data-quality warnings; UnmatchedCountries is informational (base rows are
// kept either way).
type MergeStats struct {
	Matched            int // enrichment records joined onto a country row
	UnmatchedRecords   int // enrichment records with no base country (discarded)
	Conflicts          int // second+ record matching an already-enriched country
	UnmatchedCountries int // base countries left without enrichment
}

// Warnings reports the data-quality warning count for the merge.
func (s MergeStats) Warnings() int { return s.UnmatchedRecords + s.Conflicts }

// Merge left-joins infos onto countries in place. The match key is the
// numeric M49 code against the record's ccn3; rows without an M49 code fall
// back to ISO3 against cca3. Base rows are never added or removed; a
// country with no match keeps null enrichment attributes. When several
// records match one country the first wins and the rest count as conflicts.
func Merge(countries []dimension.Country, infos []CountryInfo) MergeStats {
	var stats MergeStats

	byM49 := make(map[string]int, len(countries))
	byISO3 := make(map[string]int, len(countries))
	for i, c := range countries {
		if c.M49Code != "" {
			byM49[c.M49Code] = i
		}
		if c.ISO3Code != "" {
			byISO3[c.ISO3Code] = i
		}
	}

	enriched := make(map[int]struct{}, len(infos))
	for _, info := range infos {
		idx, ok := -1, false
		if info.CCN3 != "" {
			idx, ok = index(byM49, info.CCN3)
		}
		if !ok && info.CCA3 != "" {
			idx, ok = index(byISO3, info.CCA3)
		}
		if !ok {
			stats.UnmatchedRecords++
			log.Printf("enrich: no base country for record ccn3=%q cca3=%q name=%q",
				info.CCN3, info.CCA3, info.Name.Common)
			continue
		}
		if _, dup := enriched[idx]; dup {
			stats.Conflicts++
			continue
		}
		enriched[idx] = struct{}{}
		apply(&countries[idx], info)
		stats.Matched++
	}

	stats.UnmatchedCountries = len(countries) - len(enriched)
	return stats
}

func index(m map[string]int, key string) (int, bool) {
	idx, ok := m[key]
	if !ok {
		return -1, false
	}
	return idx, true
}

func apply(c *dimension.Country, info CountryInfo) {
	c.CommonName = strPtr(info.Name.Common)
	c.OfficialName = strPtr(info.Name.Official)
	c.Capital = strPtr(info.CapitalJoined())
	c.Languages = strPtr(info.LanguagesJoined())
	if info.Area > 0 {
		area := info.Area
		c.Area = &area
	}
	if info.Population > 0 {
		pop := info.Population
		c.Population = &pop
	}
	c.FlagPNG = strPtr(info.Flags.PNG)
	c.FlagSVG = strPtr(info.Flags.SVG)
}

// strPtr maps "" to nil so empty API fields stay null in the dimension.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
