// Package enrich fetches country metadata from the restcountries API and
// left-joins it onto the country dimension.
//
// Absence of an API record for a country is a normal condition (FAO area
// codes include regions and historical entities the API does not know); the
// base dimension row is always kept and its enrichment attributes stay null.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"faoetl/internal/config"
	"faoetl/internal/datasource/httpds"
)

// DefaultBaseURL is the public restcountries endpoint.
const DefaultBaseURL = "https://restcountries.com/v3.1"

// fetchFields keeps the response payload small; cca3 is included for the
// alpha-3 matching fallback.
const fetchFields = "ccn3,cca3,flags,name,capital,languages,area,population"

// CountryInfo is one country record from the API, reduced to the attributes
// merged into the dimension.
type CountryInfo struct {
	CCN3 string `json:"ccn3"`
	CCA3 string `json:"cca3"`
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital   []string          `json:"capital"`
	Languages map[string]string `json:"languages"`
	Area      float64           `json:"area"`
	Population int64            `json:"population"`
	Flags     struct {
		PNG string `json:"png"`
		SVG string `json:"svg"`
	} `json:"flags"`
}

// CapitalJoined flattens the capital list to a single comma-joined string.
func (c CountryInfo) CapitalJoined() string {
	return strings.Join(c.Capital, ", ")
}

// LanguagesJoined flattens the languages map to a comma-joined string,
// sorted by language code so output is deterministic across runs.
func (c CountryInfo) LanguagesJoined() string {
	if len(c.Languages) == 0 {
		return ""
	}
	codes := make([]string, 0, len(c.Languages))
	for code := range c.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	names := make([]string, 0, len(codes))
	for _, code := range codes {
		names = append(names, c.Languages[code])
	}
	return strings.Join(names, ", ")
}

// Client fetches country records by numeric (M49/ccn3) code.
type Client struct {
	http    *httpds.Client
	baseURL string
}

// NewClient builds a Client from the enrichment config, applying defaults.
func NewClient(cfg config.Enrichment) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 3
	}
	return &Client{
		http:    httpds.NewClient(httpds.Config{Timeout: timeout, MaxRetries: retries}),
		baseURL: base,
	}
}

// Fetch returns the record for one numeric country code. A 404 (or any
// other client-side status) means the API has no record: (nil, nil).
func (c *Client) Fetch(ctx context.Context, code string) (*CountryInfo, error) {
	url := fmt.Sprintf("%s/alpha/%s?fields=%s", c.baseURL, code, fetchFields)
	resp, err := c.http.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch country %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// No record for this code; normal for FAO aggregate areas.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read country %s: %w", code, err)
	}
	return decodeCountry(body)
}

// decodeCountry accepts both response shapes the API has served over time:
// a bare object and a one-element array.
func decodeCountry(body []byte) (*CountryInfo, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []CountryInfo
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode country response: %w", err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		return &list[0], nil
	}
	var one CountryInfo
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, fmt.Errorf("decode country response: %w", err)
	}
	return &one, nil
}

// fetchConcurrency bounds parallel API calls; the public endpoint rate
// limits aggressively beyond this.
const fetchConcurrency = 4

// FetchAll fetches records for every code, skipping codes without a record.
// Network-level failures abort (they would silently strip enrichment from
// the whole run otherwise).
func (c *Client) FetchAll(ctx context.Context, codes []string) ([]CountryInfo, error) {
	var (
		mu    sync.Mutex
		infos []CountryInfo
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, code := range codes {
		if code == "" {
			continue
		}
		g.Go(func() error {
			info, err := c.Fetch(ctx, code)
			if err != nil {
				return err
			}
			if info == nil {
				return nil
			}
			mu.Lock()
			infos = append(infos, *info)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic order regardless of fetch completion order.
	sort.Slice(infos, func(i, j int) bool { return infos[i].CCN3 < infos[j].CCN3 })
	log.Printf("enrich: fetched=%d requested=%d", len(infos), len(codes))
	return infos, nil
}
