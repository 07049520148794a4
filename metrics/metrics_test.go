package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/days/{date}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "/v1/days/{date}", "418"))

	req := httptest.NewRequest(http.MethodGet, "/v1/days/2025-08-06", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "/v1/days/{date}", "418"))
	if after-before != 1 {
		t.Errorf("Expected the route pattern counter to grow by 1, got %v", after-before)
	}
	if got := testutil.ToFloat64(HTTPRequestInFlight); got != 0 {
		t.Errorf("Expected no in-flight requests, got %v", got)
	}
}

func TestSetViolationsResetsMissingKinds(t *testing.T) {
	SetViolations(map[entities.ViolationKind]int{entities.DuplicateGroupOrder: 2})
	SetViolations(map[entities.ViolationKind]int{entities.GroupOrderGap: 1})

	if got := testutil.ToFloat64(Violations.WithLabelValues(string(entities.DuplicateGroupOrder))); got != 0 {
		t.Errorf("Expected duplicate count reset to 0, got %v", got)
	}
	if got := testutil.ToFloat64(Violations.WithLabelValues(string(entities.GroupOrderGap))); got != 1 {
		t.Errorf("Expected gap count 1, got %v", got)
	}
}

func TestSetDayStatuses(t *testing.T) {
	SetDayStatuses(map[entities.Status]int{entities.Pending: 3, entities.TakenToday: 1})

	if got := testutil.ToFloat64(DayStatuses.WithLabelValues(string(entities.Pending))); got != 3 {
		t.Errorf("Expected 3 pending, got %v", got)
	}
	if got := testutil.ToFloat64(DayStatuses.WithLabelValues(string(entities.NotScheduled))); got != 0 {
		t.Errorf("Expected 0 not scheduled, got %v", got)
	}
}
