package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/giygas/medicament-rotations/data"
	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/normalizer"
	"github.com/giygas/medicament-rotations/storage/memory"
	"github.com/giygas/medicament-rotations/validation"
)

var start = entities.NewDay(2025, 8, 6)

func testerBatch() []entities.Medicine {
	return []entities.Medicine{
		{ID: "1", Name: "Lipetor", GroupID: "1001", GroupName: "Tester", GroupOrder: 1,
			GroupStartDate: start, Frequency: entities.RotatingEveryNDays, ScheduleAnchor: start},
		{ID: "2", Name: "Fubuxusat", GroupID: "1002", GroupName: "Tester", GroupOrder: 2,
			GroupStartDate: start.AddDays(1), Frequency: entities.RotatingEveryNDays, ScheduleAnchor: start},
		{ID: "3", Name: "Aspirin", Frequency: entities.Daily, ScheduleAnchor: start},
	}
}

// mockRecordStore wraps the memory store and can fail on demand
type mockRecordStore struct {
	*memory.Store

	mu         sync.Mutex
	loadErr    error
	patchErr   error
	loadCount  int
	patchCount int
	history    []entities.IntakeRecord
}

func (m *mockRecordStore) LoadBatch(ctx context.Context) ([]entities.Medicine, error) {
	m.mu.Lock()
	m.loadCount++
	err := m.loadErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.Store.LoadBatch(ctx)
}

func (m *mockRecordStore) ApplyPatches(ctx context.Context, patches []entities.Patch) error {
	m.mu.Lock()
	m.patchCount++
	err := m.patchErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Store.ApplyPatches(ctx, patches)
}

// historyStore also keeps every intake
type historyStore struct {
	*mockRecordStore
}

func (h historyStore) Intakes(ctx context.Context, since time.Time) ([]entities.IntakeRecord, error) {
	out := make([]entities.IntakeRecord, 0)
	for _, r := range h.history {
		if !r.TakenAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestScheduler(store *mockRecordStore, at time.Time) (*Scheduler, *data.DataContainer) {
	dc := data.NewDataContainer()
	s := NewScheduler(dc, store, validation.NewDataValidator(), time.UTC, 0)
	s.now = func() time.Time { return at }
	return s, dc
}

func TestScheduler_RefreshNormalizesAndPersists(t *testing.T) {
	store := &mockRecordStore{Store: memory.New(testerBatch()...)}
	s, dc := newTestScheduler(store, start.In(time.UTC).Add(9*time.Hour))

	snapshot, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if len(snapshot.Patches) != 1 || snapshot.Patches[0].MedicineID != "2" {
		t.Errorf("Expected one patch for Fubuxusat, got %+v", snapshot.Patches)
	}
	if len(snapshot.Merges) != 1 || snapshot.Merges[0].CanonicalID != "1001" {
		t.Errorf("Unexpected merges: %+v", snapshot.Merges)
	}

	// The store holds the repaired records and the snapshot was re-read
	if store.loadCount != 2 || store.patchCount != 1 {
		t.Errorf("Expected load, patch, reload; got %d loads and %d patches", store.loadCount, store.patchCount)
	}
	persisted, _ := store.Store.LoadBatch(context.Background())
	if normalizer.HasFragmentation(persisted) {
		t.Error("Store still fragmented after refresh")
	}

	if len(snapshot.Violations) != 0 {
		t.Errorf("Expected no violations after normalization, got %+v", snapshot.Violations)
	}
	if snapshot.Day != start {
		t.Errorf("Expected day %s, got %s", start, snapshot.Day)
	}

	want := map[string]entities.Status{
		"1": entities.Pending,
		"2": entities.NotScheduled,
		"3": entities.Pending,
	}
	for id, st := range want {
		if snapshot.Statuses[id] != st {
			t.Errorf("Medicine %s: expected %s, got %s", id, st, snapshot.Statuses[id])
		}
	}

	if dc.GetSnapshot() != snapshot {
		t.Error("Data store should hold the new snapshot")
	}
	if snapshot.RefreshID == "" {
		t.Error("Expected a refresh id")
	}
}

func TestScheduler_SecondRefreshIsNoop(t *testing.T) {
	store := &mockRecordStore{Store: memory.New(testerBatch()...)}
	s, _ := newTestScheduler(store, start.In(time.UTC))

	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("First refresh failed: %v", err)
	}
	snapshot, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}
	if len(snapshot.Patches) != 0 {
		t.Errorf("Normalized store should need no patches, got %+v", snapshot.Patches)
	}
	if store.patchCount != 1 {
		t.Errorf("Expected no further patch calls, got %d", store.patchCount)
	}
}

func TestScheduler_RolloverSwapsStatuses(t *testing.T) {
	store := &mockRecordStore{Store: memory.New(testerBatch()...)}
	s, _ := newTestScheduler(store, start.In(time.UTC))

	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return start.AddDays(1).In(time.UTC) }
	snapshot, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.Statuses["1"] != entities.NotScheduled || snapshot.Statuses["2"] != entities.Pending {
		t.Errorf("Expected the rotation to move to Fubuxusat, got %+v", snapshot.Statuses)
	}
}

func TestScheduler_TakenToday(t *testing.T) {
	store := &mockRecordStore{Store: memory.New(testerBatch()...)}
	at := start.In(time.UTC).Add(8 * time.Hour)
	if err := store.RecordIntake(context.Background(), "1", at); err != nil {
		t.Fatal(err)
	}
	s, _ := newTestScheduler(store, at.Add(time.Hour))

	snapshot, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.Statuses["1"] != entities.TakenToday {
		t.Errorf("Expected TAKEN_TODAY, got %s", snapshot.Statuses["1"])
	}
}

func TestScheduler_IntakeHistory(t *testing.T) {
	base := &mockRecordStore{Store: memory.New(testerBatch()...)}
	base.history = []entities.IntakeRecord{
		{MedicineID: "3", TakenAt: start.In(time.UTC).Add(7 * time.Hour)},
		{MedicineID: "2", TakenAt: start.AddDays(-1).In(time.UTC)},
	}

	dc := data.NewDataContainer()
	s := NewScheduler(dc, historyStore{base}, validation.NewDataValidator(), time.UTC, 0)
	s.now = func() time.Time { return start.In(time.UTC).Add(12 * time.Hour) }

	snapshot, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.Statuses["3"] != entities.TakenToday {
		t.Errorf("Expected history intake to count, got %s", snapshot.Statuses["3"])
	}
	if snapshot.Statuses["2"] != entities.NotScheduled {
		t.Errorf("Yesterday's intake must not count, got %s", snapshot.Statuses["2"])
	}
}

func TestScheduler_RefreshFailures(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name     string
		loadErr  error
		patchErr error
	}{
		{"load failure", boom, nil},
		{"patch failure", nil, boom},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockRecordStore{Store: memory.New(testerBatch()...), loadErr: tc.loadErr, patchErr: tc.patchErr}
			s, dc := newTestScheduler(store, start.In(time.UTC))

			_, err := s.Refresh(context.Background())
			if !errors.Is(err, boom) {
				t.Fatalf("Expected wrapped error, got %v", err)
			}
			if !dc.GetLastUpdated().IsZero() {
				t.Error("Failed refresh must not replace the snapshot")
			}
			if dc.IsUpdating() {
				t.Error("Failed refresh must release the update flag")
			}
		})
	}
}

func TestScheduler_ConcurrentRefreshPrevention(t *testing.T) {
	store := &mockRecordStore{Store: memory.New(testerBatch()...)}
	s, dc := newTestScheduler(store, start.In(time.UTC))

	dc.BeginUpdate()
	defer dc.EndUpdate()

	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrRefreshInProgress) {
		t.Errorf("Expected ErrRefreshInProgress, got %v", err)
	}
	if store.loadCount != 0 {
		t.Errorf("Skipped refresh must not touch the store, got %d loads", store.loadCount)
	}

	// Start tolerates an in-flight refresh
	if err := s.Start(); err != nil {
		t.Errorf("Unexpected error during start with concurrent refresh: %v", err)
	}
	s.Stop()
}

func TestScheduler_StartAndStop(t *testing.T) {
	store := &mockRecordStore{Store: memory.New(testerBatch()...)}
	s, dc := newTestScheduler(store, start.In(time.UTC))
	s.refreshInterval = time.Hour
	s.monitorTick = time.Millisecond

	if err := s.Start(); err != nil {
		t.Fatalf("Unexpected error during start: %v", err)
	}
	if dc.GetLastUpdated().IsZero() {
		t.Error("Start should perform the initial refresh")
	}

	time.Sleep(5 * time.Millisecond)
	s.Stop()
	// Stopping twice is harmless
	s.Stop()
}

func TestScheduler_StartFailure(t *testing.T) {
	store := &mockRecordStore{Store: memory.New(), loadErr: errors.New("unreachable")}
	s, _ := newTestScheduler(store, start.In(time.UTC))

	if err := s.Start(); err == nil {
		t.Error("Expected error during start but got none")
	}
}

func TestNewSchedulerDefaultsLocation(t *testing.T) {
	s := NewScheduler(data.NewDataContainer(), memory.New(), validation.NewDataValidator(), nil, 0)
	if s.loc != time.Local {
		t.Errorf("Expected time.Local, got %v", s.loc)
	}
}
