// Package report renders the machine-readable run summary. One JSON file is
// written per run, success or failure, so operators and downstream checks
// never have to scrape logs for counts.
package report

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"faoetl/internal/sink"
)

// SummaryFile is the file name written under the output directory.
const SummaryFile = "run_summary.json"

// DimensionStats summarizes one dimension build.
type DimensionStats struct {
	RowsRead      int   `json:"rows_read"`
	Malformed     int   `json:"malformed"`
	DuplicateKeys int   `json:"duplicate_keys"`
	Rows          int64 `json:"rows"`
}

// EnrichmentStats summarizes the country-information merge.
type EnrichmentStats struct {
	Enabled            bool `json:"enabled"`
	Fetched            int  `json:"fetched"`
	Matched            int  `json:"matched"`
	UnmatchedRecords   int  `json:"unmatched_records"`
	Conflicts          int  `json:"conflicts"`
	UnmatchedCountries int  `json:"unmatched_countries"`
}

// FactStats summarizes the transform stage.
type FactStats struct {
	Processed      int64            `json:"processed"`
	Accepted       int64            `json:"accepted"`
	Rejected       int64            `json:"rejected"`
	ParseErrors    int64            `json:"parse_errors"`
	DuplicateGrain int64            `json:"duplicate_grain"`
	RejectsByCause map[string]int64 `json:"rejects_by_cause,omitempty"`
}

// Summary is the full run record.
type Summary struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`

	// Fatal is true when the run aborted; Error carries the message.
	Fatal bool   `json:"fatal"`
	Error string `json:"error,omitempty"`

	Dimensions map[string]DimensionStats `json:"dimensions,omitempty"`
	Enrichment EnrichmentStats           `json:"enrichment"`
	Fact       FactStats                 `json:"fact"`

	// Warnings is the total data-quality warning count across all stages.
	Warnings int `json:"warnings"`

	Manifest sink.Manifest `json:"manifest,omitempty"`
}

// Finish stamps the end time and duration.
func (s *Summary) Finish() {
	s.FinishedAt = time.Now().UTC()
	s.DurationMS = s.FinishedAt.Sub(s.StartedAt).Milliseconds()
}

// Fail marks the summary fatal with err and stamps the end time.
func (s *Summary) Fail(err error) {
	s.Fatal = true
	if err != nil {
		s.Error = err.Error()
	}
	s.Finish()
}

// New starts a summary for job.
func New(job string) *Summary {
	return &Summary{
		Job:        job,
		StartedAt:  time.Now().UTC(),
		Dimensions: map[string]DimensionStats{},
	}
}

// Write persists the summary as indented JSON under dir, creating the
// directory if needed. The summary is also echoed to the log in one line per
// headline count.
func (s *Summary) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: mkdir %s: %w", dir, err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}

	log.Printf("report: job=%s fatal=%v processed=%d accepted=%d rejected=%d warnings=%d duration_ms=%d file=%s",
		s.Job, s.Fatal, s.Fact.Processed, s.Fact.Accepted, s.Fact.Rejected, s.Warnings, s.DurationMS, path)
	return nil
}
