package experiment

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qkd-net/cascade/internal/cascade"
)

func TestMetricsObserveAndScrape(t *testing.T) {
	m := NewMetrics()
	m.Observe(Result{
		Combination: Combination{Variant: "original"},
		Stats:       cascade.Stats{RealisticEfficiency: 1.2},
		RemainingBitErrors: 0,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "cascade_runs_total") {
		t.Errorf("expected cascade_runs_total in scraped output, got: %s", body)
	}
	if !strings.Contains(body, `variant="original"`) {
		t.Errorf("expected variant label in scraped output")
	}
}
