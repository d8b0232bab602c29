// Pipeline wiring: extract, dimensions, enrichment, fact transform, assembly,
// sink, upload. This file keeps the CLI layer thin; it depends only on the
// sink factory and never imports database drivers or backend-specific
// packages directly.
package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"faoetl/internal/archive"
	"faoetl/internal/config"
	"faoetl/internal/datasource/file"
	"faoetl/internal/dimension"
	"faoetl/internal/enrich"
	"faoetl/internal/fact"
	"faoetl/internal/metrics"
	"faoetl/internal/report"
	"faoetl/internal/sink"
	"faoetl/internal/sink/s3"
	"faoetl/internal/star"

	csvparser "faoetl/internal/parser/csv"
)

// bucketSyncer is the minimal interface of the upload collaborator. It is
// satisfied by s3.Uploader.
type bucketSyncer interface {
	Sync(ctx context.Context, manifest sink.Manifest) error
}

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newSinkFn = sink.New

	newUploaderFn = func(bucket, region, prefix string) (bucketSyncer, error) {
		return s3.NewUploader(bucket, region, prefix)
	}

	fetchInfosFn = func(ctx context.Context, cfg config.Enrichment, codes []string) ([]enrich.CountryInfo, error) {
		return enrich.NewClient(cfg).FetchAll(ctx, codes)
	}
)

// run executes the pipeline and writes the run summary JSON whether the run
// succeeded or aborted, so operators always have a machine-readable record.
func run(ctx context.Context, p config.Pipeline) error {
	summary := report.New(p.Job)

	err := execute(ctx, p, summary)
	if err != nil {
		summary.Fail(err)
	} else {
		summary.Finish()
	}

	if p.Sink.Out != "" {
		if werr := summary.Write(p.Sink.Out); werr != nil {
			log.Printf("summary: %v", werr)
			if err == nil {
				err = werr
			}
		}
	}
	return err
}

// execute runs the stages in order. Any returned error aborts the run; row
// and record level problems are counted into summary instead.
func execute(ctx context.Context, p config.Pipeline, summary *report.Summary) error {
	src := p.Source.Defaults()

	// Extract the archive first so later stages only see plain files.
	if src.Archive != "" {
		if err := stage(p.Job, "extract", func() error {
			names, err := archive.Unzip(ctx, src.Archive, src.Dir)
			if err != nil {
				return fmt.Errorf("extract archive: %w", err)
			}
			log.Printf("extract: archive=%s files=%d", src.Archive, len(names))
			return nil
		}); err != nil {
			return err
		}
	}

	baseOpt := csvparser.OptionsFrom(p.Parser.Options)

	var d dims
	if err := stage(p.Job, "dimensions", func() error {
		return d.build(ctx, src, baseOpt, summary)
	}); err != nil {
		return err
	}

	if err := stage(p.Job, "enrich", func() error {
		return enrichCountries(ctx, p, &d, summary)
	}); err != nil {
		return err
	}

	var facts []fact.Row
	if err := stage(p.Job, "fact", func() error {
		var err error
		facts, err = transformFacts(ctx, p, src, baseOpt, &d, summary)
		return err
	}); err != nil {
		return err
	}

	if p.Runtime.Strict && summary.Fact.Rejected > 0 {
		return fmt.Errorf("strict mode: %d fact rows rejected", summary.Fact.Rejected)
	}

	var schema *star.Schema
	if err := stage(p.Job, "assemble", func() error {
		var err error
		schema, err = star.Assemble(star.Schema{
			Countries:     d.countries,
			CountryGroups: d.countryGroups,
			Elements:      d.elements,
			Flags:         d.flags,
			Items:         d.items,
			ItemGroups:    d.itemGroups,
			Units:         d.units,
			Facts:         facts,
		})
		return err
	}); err != nil {
		return err
	}

	var manifest sink.Manifest
	if err := stage(p.Job, "sink", func() error {
		var err error
		manifest, err = writeSchema(ctx, p, schema)
		return err
	}); err != nil {
		return err
	}
	summary.Manifest = manifest
	for _, entry := range manifest {
		metrics.RecordTable(p.Job, entry.Table, entry.Rows)
	}

	if p.Sink.Kind == "csvfile" && p.Sink.S3.Enabled {
		if err := stage(p.Job, "upload", func() error {
			up, err := newUploaderFn(p.Sink.S3.Bucket, p.Sink.S3.Region, p.Sink.S3.Prefix)
			if err != nil {
				return err
			}
			return up.Sync(ctx, manifest)
		}); err != nil {
			return err
		}
	}

	return nil
}

// stage times one pipeline stage and records it.
func stage(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStage(job, name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Printf("%s: done in %s", name, time.Since(start).Truncate(time.Millisecond))
	return nil
}

// dims holds the built dimension tables and the fact-stage lookups.
type dims struct {
	units         []dimension.Unit
	flags         []dimension.Flag
	elements      []dimension.Element
	items         []dimension.Item
	itemGroups    []dimension.ItemGroup
	countries     []dimension.Country
	countryGroups []dimension.CountryGroup

	lookups fact.Lookups
}

// build reads the five reference extracts and builds every dimension. A
// reference extract that cannot be read, or that yields no usable rows,
// aborts the run.
func (d *dims) build(ctx context.Context, src config.Source, opt csvparser.Options, summary *report.Summary) error {
	var err error

	rows, err := readReference(ctx, filepath.Join(src.Dir, src.Units), dimension.UnitColumns, dimension.UnitRequired, opt)
	if err != nil {
		return fmt.Errorf("units: %w", err)
	}
	var unitStats dimension.Stats
	d.units, d.lookups.UnitByName, unitStats, err = dimension.BuildUnits(rows)
	if err != nil {
		return err
	}
	recordDimension(summary, "dim_unit", unitStats, int64(len(d.units)))

	rows, err = readReference(ctx, filepath.Join(src.Dir, src.Flags), dimension.FlagColumns, dimension.FlagRequired, opt)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	var flagStats dimension.Stats
	d.flags, d.lookups.FlagBySymbol, flagStats, err = dimension.BuildFlags(rows)
	if err != nil {
		return err
	}
	recordDimension(summary, "dim_flag", flagStats, int64(len(d.flags)))

	rows, err = readReference(ctx, filepath.Join(src.Dir, src.Elements), dimension.ElementColumns, dimension.ElementRequired, opt)
	if err != nil {
		return fmt.Errorf("elements: %w", err)
	}
	var elementStats dimension.Stats
	d.elements, d.lookups.ElementByCode, elementStats, err = dimension.BuildElements(rows)
	if err != nil {
		return err
	}
	recordDimension(summary, "dim_element", elementStats, int64(len(d.elements)))

	rows, err = readReference(ctx, filepath.Join(src.Dir, src.ItemGroup), dimension.ItemGroupColumns, dimension.ItemGroupRequired, opt)
	if err != nil {
		return fmt.Errorf("item groups: %w", err)
	}
	var itemStats dimension.Stats
	d.items, d.itemGroups, d.lookups.ItemByCode, itemStats, err = dimension.BuildItemGroups(rows)
	if err != nil {
		return err
	}
	recordDimension(summary, "dim_item_group", itemStats, int64(len(d.itemGroups)))

	rows, err = readReference(ctx, filepath.Join(src.Dir, src.CountryGroup), dimension.CountryGroupColumns, dimension.CountryGroupRequired, opt)
	if err != nil {
		return fmt.Errorf("country groups: %w", err)
	}
	var countryStats dimension.Stats
	d.countries, d.countryGroups, d.lookups.CountryByM49, countryStats, err = dimension.BuildCountryGroups(rows)
	if err != nil {
		return err
	}
	recordDimension(summary, "dim_country_group", countryStats, int64(len(d.countryGroups)))

	log.Printf("dimensions: units=%d flags=%d elements=%d items=%d item_groups=%d countries=%d country_groups=%d",
		len(d.units), len(d.flags), len(d.elements), len(d.items), len(d.itemGroups), len(d.countries), len(d.countryGroups))
	return nil
}

// readReference drains one small reference extract. Soft row errors are
// logged and skipped; a structurally unusable extract fails.
func readReference(ctx context.Context, path string, columns, required []string, opt csvparser.Options) ([]csvparser.Row, error) {
	src, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	r, err := csvparser.NewReader(src, columns, required, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r.ReadAll(func(line int, err error) {
		log.Printf("%s: line %d skipped: %v", filepath.Base(path), line, err)
	})
}

func recordDimension(summary *report.Summary, name string, s dimension.Stats, rows int64) {
	summary.Dimensions[name] = report.DimensionStats{
		RowsRead:      s.RowsRead,
		Malformed:     s.Malformed,
		DuplicateKeys: s.DuplicateKeys,
		Rows:          rows,
	}
	summary.Warnings += s.Warnings()
	metrics.RecordRows(summary.Job, "dq_duplicate_dimension_key", int64(s.DuplicateKeys))
}

// enrichCountries fetches country metadata and left-joins it onto the base
// country rows. With enrichment disabled the dimension keeps null attributes.
func enrichCountries(ctx context.Context, p config.Pipeline, d *dims, summary *report.Summary) error {
	if !p.Enrichment.Enabled {
		return nil
	}
	summary.Enrichment.Enabled = true

	codes := make([]string, 0, len(d.countries))
	seen := make(map[string]struct{}, len(d.countries))
	for _, c := range d.countries {
		if c.M49Code == "" {
			continue
		}
		if _, ok := seen[c.M49Code]; ok {
			continue
		}
		seen[c.M49Code] = struct{}{}
		codes = append(codes, c.M49Code)
	}
	sort.Strings(codes)

	infos, err := fetchInfosFn(ctx, p.Enrichment, codes)
	if err != nil {
		return err
	}
	summary.Enrichment.Fetched = len(infos)

	stats := enrich.Merge(d.countries, infos)
	summary.Enrichment.Matched = stats.Matched
	summary.Enrichment.UnmatchedRecords = stats.UnmatchedRecords
	summary.Enrichment.Conflicts = stats.Conflicts
	summary.Enrichment.UnmatchedCountries = stats.UnmatchedCountries
	summary.Warnings += stats.Warnings()
	metrics.RecordRows(p.Job, "dq_unmatched_enrichment", int64(stats.UnmatchedRecords))

	log.Printf("enrich: matched=%d unmatched_records=%d conflicts=%d unmatched_countries=%d",
		stats.Matched, stats.UnmatchedRecords, stats.Conflicts, stats.UnmatchedCountries)
	return nil
}

// transformFacts streams the production extract through the chunked worker
// pool. The extract's own encoding (cp1252 in the FAO bulk export) can be
// overridden with the production_encoding parser option.
func transformFacts(ctx context.Context, p config.Pipeline, src config.Source, opt csvparser.Options, d *dims, summary *report.Summary) ([]fact.Row, error) {
	path := filepath.Join(src.Dir, src.Production)
	f, err := file.NewLocalSequential(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opt.Encoding = p.Parser.Options.String("production_encoding", "cp1252")
	opt.StrictWidth = true

	r, err := csvparser.NewReader(f, fact.Columns, fact.Required, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	t := fact.NewTransformer(d.lookups, p.Runtime.ChunkSize, p.Runtime.FactWorkers, p.Runtime.MemoryCeilingMB)
	rows, err := t.Run(ctx, r)

	summary.Fact = report.FactStats{
		Processed:      t.Counters.Processed.Load(),
		Accepted:       t.Counters.Accepted.Load(),
		Rejected:       t.Counters.Rejected.Load(),
		ParseErrors:    t.Counters.ParseErrors.Load(),
		DuplicateGrain: t.Counters.DuplicateGrain.Load(),
		RejectsByCause: t.Rejects.ByReason(),
	}
	summary.Warnings += int(summary.Fact.DuplicateGrain)
	metrics.RecordRows(p.Job, "processed", summary.Fact.Processed)
	metrics.RecordRows(p.Job, "accepted", summary.Fact.Accepted)
	metrics.RecordRows(p.Job, "rejected", summary.Fact.Rejected)
	metrics.RecordRows(p.Job, "parse_errors", summary.Fact.ParseErrors)
	metrics.RecordRows(p.Job, "dq_duplicate_grain", summary.Fact.DuplicateGrain)

	for _, line := range t.Rejects.Lines() {
		log.Printf("fact reject: %s", line)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// writeSchema renders the assembled schema and writes it through the
// configured sink backend.
func writeSchema(ctx context.Context, p config.Pipeline, schema *star.Schema) (sink.Manifest, error) {
	w, err := newSinkFn(ctx, sink.Config{
		Kind:        p.Sink.Kind,
		Out:         p.Sink.Out,
		DSN:         p.Sink.DB.DSN,
		TablePrefix: p.Sink.DB.TablePrefix,
		BatchSize:   p.Sink.DB.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	defer w.Close()

	return sink.WriteSchema(ctx, w, sink.RenderSchema(schema))
}
