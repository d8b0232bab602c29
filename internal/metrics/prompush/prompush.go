// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A batch job has nothing for Prometheus to scrape, so the
// run's collectors are pushed once at the end via the Pushgateway.
//
// All Prometheus-specific dependencies live here; the rest of the project
// depends only on metrics.Backend.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"faoetl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string // Pushgateway "job" grouping key
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // fao_etl_stage_total
	stageDuration *prometheus.SummaryVec // fao_etl_stage_duration_seconds
	rowCounter    *prometheus.CounterVec // fao_etl_rows_total
	tableRows     *prometheus.CounterVec // fao_etl_table_rows
}

// NewBackend constructs a Pushgateway backend for the given job name and
// gateway base URL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "fao_etl"
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fao_etl_stage_total",
			Help: "Pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "fao_etl_stage_duration_seconds",
			Help:       "Pipeline stage durations in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fao_etl_rows_total",
			Help: "Row-level counts per kind (processed, accepted, rejected, dq_*).",
		},
		[]string{"kind"},
	)
	tableRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fao_etl_table_rows",
			Help: "Rows written per output table.",
		},
		[]string{"table"},
	)

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, rowCounter, tableRows} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		rowCounter:    rowCounter,
		tableRows:     tableRows,
	}, nil
}

// IncCounter routes the facade's counter names onto the registered vectors.
// Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "fao_etl_stage_total":
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case "fao_etl_rows_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "fao_etl_table_rows":
		b.tableRows.WithLabelValues(labels["table"]).Add(delta)
	}
}

// ObserveHistogram routes stage durations; other names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "fao_etl_stage_duration_seconds" {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
