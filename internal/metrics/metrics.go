// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the pipeline.
//
// The global backend defaults to a no-op implementation, so metrics are
// always safe to call even when no real backend is configured; the concrete
// Prometheus Pushgateway backend lives in the prompush subpackage and is
// installed by the CLI when requested.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration-style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes metrics if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage measures latency and success/failure for one pipeline stage
// (dimensions, enrich, fact, assemble, sink, upload).
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("fao_etl_stage_total", 1, lbls)
	backend.ObserveHistogram("fao_etl_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a record-level counter for the given job and kind.
//
// Kinds mirror the run summary fields:
//   - "processed", "accepted", "rejected", "parse_errors"
//   - "dq_duplicate_dimension_key", "dq_duplicate_grain",
//     "dq_unmatched_enrichment"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("fao_etl_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordTable records the row count written for one output table.
func RecordTable(job, table string, rows int64) {
	if rows < 0 {
		return
	}
	backend.IncCounter("fao_etl_table_rows", float64(rows), Labels{
		"job":   job,
		"table": table,
	})
}
