package fact

import (
	"fmt"
	"sort"
	"sync"
)

// maxRejectSamples caps the per-reason sample list in the report; counts are
// always exact.
const maxRejectSamples = 5

// RejectReport aggregates rejected rows: exact counts per reason plus the
// first few offending natural keys for diagnosis. Safe for concurrent use by
// the chunk workers.
type RejectReport struct {
	mu       sync.Mutex
	byReason map[string]int64
	samples  map[string][]string
}

// NewRejectReport returns an empty report.
func NewRejectReport() *RejectReport {
	return &RejectReport{
		byReason: map[string]int64{},
		samples:  map[string][]string{},
	}
}

// Add records one rejection. keys is the row's natural-key rendering, e.g.
// "area=999 item=10 element=5140 year=1990".
func (r *RejectReport) Add(reason string, line int, keys string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byReason[reason]++
	if len(r.samples[reason]) < maxRejectSamples {
		r.samples[reason] = append(r.samples[reason], fmt.Sprintf("line %d: %s", line, keys))
	}
}

// Total returns the overall rejection count.
func (r *RejectReport) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.byReason {
		n += c
	}
	return n
}

// ByReason returns a copy of the per-reason counts.
func (r *RejectReport) ByReason() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.byReason))
	for k, v := range r.byReason {
		out[k] = v
	}
	return out
}

// Lines renders the report for logging: one line per reason (sorted for
// stable output) followed by its captured samples.
func (r *RejectReport) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	reasons := make([]string, 0, len(r.byReason))
	for reason := range r.byReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	var lines []string
	for _, reason := range reasons {
		lines = append(lines, fmt.Sprintf("%s: %d (showing first %d)", reason, r.byReason[reason], len(r.samples[reason])))
		for i, s := range r.samples[reason] {
			lines = append(lines, fmt.Sprintf("  #%03d: %s", i+1, s))
		}
	}
	return lines
}
