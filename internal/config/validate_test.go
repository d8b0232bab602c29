package config

import "testing"

func validPipeline() Pipeline {
	return Pipeline{
		Job:    "fao_production",
		Source: Source{Dir: "data"},
		Sink:   Sink{Kind: "csvfile", Out: "out"},
	}
}

/*
issueAt returns the first issue whose path matches, or nil.
*/
func issueAt(issues []Issue, path string) *Issue {
	for i := range issues {
		if issues[i].Path == path {
			return &issues[i]
		}
	}
	return nil
}

func Test_ValidatePipeline_Valid(t *testing.T) {
	for _, iss := range ValidatePipeline(validPipeline()) {
		if iss.Severity == SeverityError {
			t.Fatalf("unexpected error: %v", iss)
		}
	}
}

func Test_ValidatePipeline_MissingJobAndDir(t *testing.T) {
	p := validPipeline()
	p.Job = ""
	p.Source.Dir = " "

	issues := ValidatePipeline(p)
	if iss := issueAt(issues, "job"); iss == nil || iss.Severity != SeverityError {
		t.Fatalf("job issue missing: %v", issues)
	}
	if iss := issueAt(issues, "source.dir"); iss == nil || iss.Severity != SeverityError {
		t.Fatalf("source.dir issue missing: %v", issues)
	}
}

func Test_ValidatePipeline_SinkRules(t *testing.T) {
	p := validPipeline()
	p.Sink = Sink{Kind: "csvfile", Out: ""}
	if iss := issueAt(ValidatePipeline(p), "sink.out"); iss == nil || iss.Severity != SeverityError {
		t.Fatal("csvfile without out must be an error")
	}

	p.Sink = Sink{Kind: "postgres"}
	if iss := issueAt(ValidatePipeline(p), "sink.db.dsn"); iss == nil || iss.Severity != SeverityError {
		t.Fatal("postgres without DSN must be an error")
	}

	p.Sink = Sink{Kind: "duckdb", Out: "out"}
	if iss := issueAt(ValidatePipeline(p), "sink.kind"); iss == nil || iss.Severity != SeverityWarning {
		t.Fatal("unknown kind must warn, not block")
	}

	p.Sink = Sink{Kind: "csvfile", Out: "out", S3: S3Config{Enabled: true}}
	if iss := issueAt(ValidatePipeline(p), "sink.s3.bucket"); iss == nil || iss.Severity != SeverityError {
		t.Fatal("s3 enabled without bucket must be an error")
	}

	p.Sink = Sink{Kind: "sqlite", DB: DBConfig{DSN: "out/fao.db"}, S3: S3Config{Enabled: true, Bucket: "b"}}
	if iss := issueAt(ValidatePipeline(p), "sink.s3.enabled"); iss == nil || iss.Severity != SeverityWarning {
		t.Fatal("s3 with a database sink must warn")
	}
}

func Test_ValidatePipeline_EnrichmentRules(t *testing.T) {
	p := validPipeline()
	p.Enrichment = Enrichment{Enabled: true, BaseURL: "restcountries.com", TimeoutSeconds: -1}

	issues := ValidatePipeline(p)
	if iss := issueAt(issues, "enrichment.base_url"); iss == nil {
		t.Fatal("scheme-less base URL must be flagged")
	}
	if iss := issueAt(issues, "enrichment.timeout_seconds"); iss == nil {
		t.Fatal("negative timeout must be flagged")
	}

	// Disabled enrichment skips the checks entirely.
	p.Enrichment.Enabled = false
	if iss := issueAt(ValidatePipeline(p), "enrichment.base_url"); iss != nil {
		t.Fatal("disabled enrichment must not be validated")
	}
}

func Test_ValidatePipeline_RuntimeRules(t *testing.T) {
	p := validPipeline()
	p.Runtime = RuntimeConfig{ChunkSize: -1, FactWorkers: -2, MemoryCeilingMB: -3}

	issues := ValidatePipeline(p)
	for _, path := range []string{"runtime.chunk_size", "runtime.fact_workers", "runtime.memory_ceiling_mb"} {
		if iss := issueAt(issues, path); iss == nil || iss.Severity != SeverityError {
			t.Fatalf("%s must be an error: %v", path, issues)
		}
	}

	p.Runtime = RuntimeConfig{ChunkSize: 10}
	if iss := issueAt(ValidatePipeline(p), "runtime.chunk_size"); iss == nil || iss.Severity != SeverityWarning {
		t.Fatal("tiny chunk size must warn")
	}
}
