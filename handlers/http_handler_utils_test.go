package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giygas/medicament-rotations/data"
	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/normalizer"
	"github.com/giygas/medicament-rotations/status"
	"github.com/giygas/medicament-rotations/storage/memory"
	"github.com/giygas/medicament-rotations/validation"
	"github.com/go-chi/chi/v5"
)

// ============================================================================
// FIXTURES
// ============================================================================

var (
	augustSixth   = entities.NewDay(2025, 8, 6)
	augustSeventh = augustSixth.AddDays(1)
)

// testerBatch is the fragmented Tester group plus a daily medicine
func testerBatch() []entities.Medicine {
	return []entities.Medicine{
		{ID: "1", Name: "Lipetor", GroupID: "1001", GroupName: "Tester", GroupOrder: 1,
			GroupStartDate: augustSixth, Frequency: entities.RotatingEveryNDays, ScheduleAnchor: augustSixth},
		{ID: "2", Name: "Fubuxusat", GroupID: "1002", GroupName: "Tester", GroupOrder: 2,
			GroupStartDate: augustSeventh, Frequency: entities.RotatingEveryNDays, ScheduleAnchor: augustSixth},
		{ID: "3", Name: "Aspirin", Frequency: entities.Daily, ScheduleAnchor: augustSixth},
	}
}

// buildSnapshot runs the refresh pipeline in memory for day
func buildSnapshot(batch []entities.Medicine, day entities.Day) *interfaces.Snapshot {
	result := normalizer.Normalize(batch)
	validator := validation.NewDataValidator()
	violations := validator.ValidateBatch(result.Batch)

	return &interfaces.Snapshot{
		RefreshID:   "refresh-" + day.String(),
		Batch:       result.Batch,
		Patches:     result.Patches,
		Merges:      result.Merges,
		Violations:  violations,
		Report:      validator.ReportDataQuality(result.Batch, violations),
		Day:         day,
		Statuses:    status.ResolveDay(result.Batch, day, status.IntakesFromLastTaken(result.Batch, time.UTC)),
		RefreshedAt: day.In(time.UTC),
	}
}

// fakeRefresher rebuilds the snapshot from a memory store, or fails with err
type fakeRefresher struct {
	mu    sync.Mutex
	dc    *data.DataContainer
	store *memory.Store
	day   entities.Day
	err   error
	calls int
}

func (f *fakeRefresher) Start() error { return nil }
func (f *fakeRefresher) Stop()        {}

func (f *fakeRefresher) Refresh(ctx context.Context) (*interfaces.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	batch, err := f.store.LoadBatch(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := buildSnapshot(batch, f.day)
	f.dc.UpdateData(snapshot)
	return snapshot, nil
}

// historyStore is a memory store that also keeps every intake
type historyStore struct {
	*memory.Store
	records []entities.IntakeRecord
	err     error
}

func (h *historyStore) Intakes(ctx context.Context, since time.Time) ([]entities.IntakeRecord, error) {
	if h.err != nil {
		return nil, h.err
	}
	out := make([]entities.IntakeRecord, 0)
	for _, r := range h.records {
		if !r.TakenAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// MockHealthChecker returns a fixed health report
type MockHealthChecker struct {
	status     string
	details    map[string]any
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, m.details, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextRollover() time.Time {
	return augustSeventh.In(time.UTC)
}

type testEnv struct {
	router    chi.Router
	handler   *HTTPHandlerImpl
	dc        *data.DataContainer
	store     *memory.Store
	refresher *fakeRefresher
	health    *MockHealthChecker
}

// newTestEnv serves the Tester batch as refreshed on August 6 at 10:00 UTC
func newTestEnv(t testing.TB) *testEnv {
	t.Helper()

	store := memory.New(testerBatch()...)
	dc := data.NewDataContainer()
	refresher := &fakeRefresher{dc: dc, store: store, day: augustSixth}
	health := &MockHealthChecker{status: "healthy", details: map[string]any{"medicines": 3}, httpStatus: http.StatusOK}

	h := NewHTTPHandler(dc, validation.NewDataValidator(), health, refresher, store, time.UTC).(*HTTPHandlerImpl)
	h.now = func() time.Time { return augustSixth.In(time.UTC).Add(10 * time.Hour) }

	if _, err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}
	refresher.calls = 0

	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/medicines", h.ServeMedicines)
		r.Post("/medicines/{id}/intakes", h.RecordIntake)
		r.Get("/groups", h.ServeGroups)
		r.Get("/groups/{groupId}/schedule", h.ServeGroupSchedule)
		r.Get("/violations", h.ServeViolations)
		r.Get("/days/{date}", h.ServeDay)
		r.Post("/normalize", h.Normalize)
	})

	return &testEnv{router: r, handler: h, dc: dc, store: store, refresher: refresher, health: health}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rr.Body.String(), err)
	}
	return out
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("Expected status %d, got %d: %s", code, rr.Code, rr.Body.String())
	}
	body := decode[map[string]any](t, rr)
	if body["code"] != float64(code) || body["error"] != http.StatusText(code) {
		t.Errorf("Unexpected error body: %v", body)
	}
	if msg, _ := body["message"].(string); msg == "" {
		t.Error("Expected an error message")
	}
}
