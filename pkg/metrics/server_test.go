package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/little-explorers/storefront/pkg/config"
)

func TestHandlerServesConfiguredPath(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMaintenanceJobs(reg).ObserveRun("outbox-retention", 0, nil)
	h := Handler(reg, "/internal/metrics")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "storefront_maintenance_job_runs_total") {
		t.Fatal("expected maintenance counter in output")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 off-path, got %d", rec.Code)
	}
}

func TestServeWorkerDisabledIsNoop(t *testing.T) {
	stop := ServeWorker(t.Context(), config.MetricsConfig{Enabled: false}, prometheus.NewRegistry(), nil)
	stop()
}
