// Lightweight linter/validator for Pipeline values. It performs static checks
// over a decoded Pipeline and returns a list of issues (errors and warnings)
// that callers can surface in the CLI or in tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "sink.kind"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as an error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and the run summary",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateEnrichment(p.Enrichment)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateSink(p.Sink)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.dir",
			Message:  "source.dir must not be empty",
		})
	}
	if s.Archive != "" && !strings.HasSuffix(strings.ToLower(s.Archive), ".zip") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.archive",
			Message:  fmt.Sprintf("archive %q does not look like a zip file", s.Archive),
		})
	}
	return issues
}

func validateEnrichment(e Enrichment) []Issue {
	var issues []Issue

	if !e.Enabled {
		return issues
	}
	if e.BaseURL != "" && !strings.HasPrefix(e.BaseURL, "http://") && !strings.HasPrefix(e.BaseURL, "https://") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "enrichment.base_url",
			Message:  fmt.Sprintf("base URL %q must start with http:// or https://", e.BaseURL),
		})
	}
	if e.TimeoutSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "enrichment.timeout_seconds",
			Message:  "timeout_seconds must not be negative",
		})
	}
	if e.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "enrichment.max_retries",
			Message:  "max_retries must not be negative",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.ChunkSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.chunk_size",
			Message:  "chunk_size must not be negative (0 selects the default)",
		})
	}
	if r.FactWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.fact_workers",
			Message:  "fact_workers must not be negative (0 selects NumCPU)",
		})
	}
	if r.MemoryCeilingMB < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.memory_ceiling_mb",
			Message:  "memory_ceiling_mb must not be negative",
		})
	}
	if r.ChunkSize > 0 && r.ChunkSize < 100 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.chunk_size",
			Message:  fmt.Sprintf("chunk_size=%d is very small; per-chunk overhead will dominate", r.ChunkSize),
		})
	}
	return issues
}

func validateSink(s Sink) []Issue {
	var issues []Issue

	kind := strings.TrimSpace(s.Kind)
	if kind == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sink.kind",
			Message:  "sink.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"csvfile":  {},
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sink.kind",
			Message:  fmt.Sprintf("unknown sink kind %q; ensure a matching backend is registered", kind),
		})
	}

	switch kind {
	case "csvfile":
		if strings.TrimSpace(s.Out) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.out",
				Message:  "csvfile sink requires a non-empty output directory",
			})
		}
		if s.S3.Enabled && strings.TrimSpace(s.S3.Bucket) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.s3.bucket",
				Message:  "s3 upload enabled but no bucket configured",
			})
		}
	case "postgres", "sqlite":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.db.dsn",
				Message:  fmt.Sprintf("%s sink requires a non-empty DSN", kind),
			})
		}
		if s.DB.BatchSize < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.db.batch_size",
				Message:  "batch_size must not be negative (0 selects the default)",
			})
		}
		if s.S3.Enabled {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "sink.s3.enabled",
				Message:  "s3 upload applies only to the csvfile sink and will be ignored",
			})
		}
	}
	return issues
}
