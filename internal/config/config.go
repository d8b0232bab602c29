// Package config defines the JSON-serializable configuration model for the
// FAO star-schema ETL. Pipelines are described by small JSON files (see
// configs/pipelines/*.json) and decoded with the standard library only; a
// light Options helper gives typed access to free-form option bags.
package config

import "encoding/json"

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels metrics and the run summary.
	Job string `json:"job"`

	// Source locates the input extracts.
	Source Source `json:"source"`

	// Parser carries CSV parsing options shared by all extracts.
	Parser Parser `json:"parser"`

	// Enrichment configures the country-information API client.
	Enrichment Enrichment `json:"enrichment"`

	// Runtime controls chunking, concurrency, and failure policy.
	Runtime RuntimeConfig `json:"runtime"`

	// Sink selects where the assembled star schema is written.
	Sink Sink `json:"sink"`
}

// Source locates the reference extracts and the production fact extract.
// All file names are relative to Dir. When Archive is set, it is unzipped
// into Dir before anything is read.
type Source struct {
	// Archive is an optional zip holding the extracts (e.g. data/data.zip).
	Archive string `json:"archive"`

	// Dir is the directory holding (or receiving) the extract files.
	Dir string `json:"dir"`

	// Per-extract file names. Empty values fall back to the FAO bulk-download
	// defaults; see Defaults().
	Units        string `json:"units"`
	ItemGroup    string `json:"item_group"`
	Flags        string `json:"flags"`
	Elements     string `json:"elements"`
	CountryGroup string `json:"country_group"`
	Production   string `json:"production"`
}

// Parser carries CSV options. Typical keys:
//
//	comma (string), trim_space (bool), lazy_quotes (bool),
//	production_encoding (string; "cp1252" matches the FAO bulk export)
type Parser struct {
	Options Options `json:"options"`
}

// Enrichment configures the restcountries lookup for the country dimension.
type Enrichment struct {
	// Enabled toggles the API stage. When false the country dimension is
	// emitted with all enrichment attributes left null.
	Enabled bool `json:"enabled"`

	// BaseURL of the country-information API, without trailing slash.
	// Defaults to https://restcountries.com/v3.1.
	BaseURL string `json:"base_url"`

	// TimeoutSeconds is the per-request timeout. Default 10.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries for transient HTTP failures. Default 3.
	MaxRetries int `json:"max_retries"`
}

// RuntimeConfig controls the fact-transform stage.
type RuntimeConfig struct {
	// ChunkSize is the number of fact rows per processing window. Default
	// 100000; capped further when MemoryCeilingMB demands it.
	ChunkSize int `json:"chunk_size"`

	// FactWorkers is the size of the chunk worker pool. Default NumCPU.
	FactWorkers int `json:"fact_workers"`

	// MemoryCeilingMB is an advisory bound used to cap ChunkSize. 0 disables
	// the cap.
	MemoryCeilingMB int `json:"memory_ceiling_mb"`

	// Strict makes row-level rejections fatal after the transform stage
	// instead of report-only.
	Strict bool `json:"strict"`
}

// Sink selects and configures the output backend.
type Sink struct {
	// Kind selects the backend: "csvfile", "postgres", or "sqlite".
	Kind string `json:"kind"`

	// Out is the local output directory. The csvfile backend writes tables
	// here; every backend writes the run summary JSON here.
	Out string `json:"out"`

	// DB configures the postgres/sqlite backends.
	DB DBConfig `json:"db"`

	// S3 configures the upload collaborator for csvfile output.
	S3 S3Config `json:"s3"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the pgxpool connection string (postgres) or file path (sqlite).
	DSN string `json:"dsn"`

	// TablePrefix is prepended to every table name (e.g. "fao_").
	TablePrefix string `json:"table_prefix"`

	// BatchSize is the number of rows per bulk insert. Default 5000.
	BatchSize int `json:"batch_size"`
}

// S3Config configures the bucket sync for csvfile output.
type S3Config struct {
	Enabled bool   `json:"enabled"`
	Bucket  string `json:"bucket"`
	Region  string `json:"region"`
	Prefix  string `json:"prefix"`
}

// Default extract file names in the FAO bulk download.
const (
	DefaultUnitsFile        = "Units.csv"
	DefaultItemGroupFile    = "ItemGroup.csv"
	DefaultFlagsFile        = "Flags.csv"
	DefaultElementsFile     = "Elements.csv"
	DefaultCountryGroupFile = "CountryGroup.csv"
	DefaultProductionFile   = "WorldData.csv"
)

// Defaults returns a copy of s with empty file names replaced by the FAO
// bulk-download defaults.
func (s Source) Defaults() Source {
	if s.Units == "" {
		s.Units = DefaultUnitsFile
	}
	if s.ItemGroup == "" {
		s.ItemGroup = DefaultItemGroupFile
	}
	if s.Flags == "" {
		s.Flags = DefaultFlagsFile
	}
	if s.Elements == "" {
		s.Elements = DefaultElementsFile
	}
	if s.CountryGroup == "" {
		s.CountryGroup = DefaultCountryGroupFile
	}
	if s.Production == "" {
		s.Production = DefaultProductionFile
	}
	return s
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without a third-party configuration library. It performs only minimal type
// coercion and returns the provided default when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers as
// float64, so both float64 and int are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def. Used for
// single-character settings such as the CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// with string values. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON decodes a missing or null options object to a non-nil, empty
// map so call sites never need a nil check.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
