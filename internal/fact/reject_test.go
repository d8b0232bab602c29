package fact

import (
	"fmt"
	"strings"
	"testing"
)

func Test_RejectReport_CountsAreExactSamplesAreCapped(t *testing.T) {
	r := NewRejectReport()
	for i := 0; i < 12; i++ {
		r.Add(ReasonCountry, i+2, fmt.Sprintf("area=99%d", i))
	}
	r.Add(ReasonYear, 50, "year=??")

	if r.Total() != 13 {
		t.Fatalf("total = %d, want 13", r.Total())
	}
	by := r.ByReason()
	if by[ReasonCountry] != 12 || by[ReasonYear] != 1 {
		t.Fatalf("by reason = %v", by)
	}

	lines := r.Lines()
	var samples int
	for _, l := range lines {
		if strings.HasPrefix(l, "  #") {
			samples++
		}
	}
	// maxRejectSamples per reason: 5 for country, 1 for year.
	if samples != maxRejectSamples+1 {
		t.Fatalf("samples = %d, want %d", samples, maxRejectSamples+1)
	}
}
