package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/normalizer"
	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	testCases := []struct {
		eligible bool
		taken    bool
		want     entities.Status
	}{
		{true, true, entities.TakenToday},
		{false, true, entities.TakenToday},
		{true, false, entities.Pending},
		{false, false, entities.NotScheduled},
	}

	for _, tc := range testCases {
		if got := Resolve(tc.eligible, tc.taken); got != tc.want {
			t.Errorf("Resolve(%v, %v) = %s, want %s", tc.eligible, tc.taken, got, tc.want)
		}
	}
}

func TestIntakeSet(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	// 23:30 UTC on Aug 5 is already Aug 6 in Paris.
	taken := time.Date(2025, 8, 5, 23, 30, 0, 0, time.UTC)
	set := NewIntakeSet([]entities.IntakeRecord{{MedicineID: "a", TakenAt: taken}}, paris)

	if !set.TakenOn("a", entities.NewDay(2025, 8, 6)) {
		t.Error("Expected intake on Aug 6 in Paris")
	}
	if set.TakenOn("a", entities.NewDay(2025, 8, 5)) {
		t.Error("Unexpected intake on Aug 5")
	}
	if set.TakenOn("b", entities.NewDay(2025, 8, 6)) {
		t.Error("Unexpected intake for unknown medicine")
	}
}

func TestResolveDay_YesterdayDoesNotCarryOver(t *testing.T) {
	start := entities.NewDay(2025, 8, 6)
	batch := []entities.Medicine{
		{ID: "a", Name: "A", GroupID: "g", GroupName: "X", GroupOrder: 1, GroupStartDate: start, Frequency: entities.RotatingEveryNDays},
		{ID: "b", Name: "B", GroupID: "g", GroupName: "X", GroupOrder: 2, GroupStartDate: start, Frequency: entities.RotatingEveryNDays},
	}

	intakes := make(IntakeSet)
	intakes.Add("a", start)

	today := start.AddDays(1)
	got := ResolveDay(batch, today, intakes)
	want := map[string]entities.Status{
		"a": entities.NotScheduled,
		"b": entities.Pending,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected statuses (-want +got):\n%s", diff)
	}

	intakes.Add("b", today)
	if s := ResolveDay(batch, today, intakes)["b"]; s != entities.TakenToday {
		t.Errorf("Expected TAKEN_TODAY after intake, got %s", s)
	}
}

func TestResolveDay_TakenWhileNotScheduled(t *testing.T) {
	start := entities.NewDay(2025, 8, 6)
	batch := []entities.Medicine{
		{ID: "a", Name: "A", GroupID: "g", GroupName: "X", GroupOrder: 1, GroupStartDate: start, Frequency: entities.RotatingEveryNDays},
		{ID: "b", Name: "B", GroupID: "g", GroupName: "X", GroupOrder: 2, GroupStartDate: start, Frequency: entities.RotatingEveryNDays},
	}

	intakes := make(IntakeSet)
	intakes.Add("b", start)

	got := ResolveDay(batch, start, intakes)
	if got["b"] != entities.TakenToday {
		t.Errorf("Expected TAKEN_TODAY for an off-day intake, got %s", got["b"])
	}
	if got["a"] != entities.Pending {
		t.Errorf("Expected PENDING, got %s", got["a"])
	}
}

func TestResolveDay_NilLookup(t *testing.T) {
	day := entities.NewDay(2025, 8, 6)
	batch := []entities.Medicine{{ID: "a", Name: "A", Frequency: entities.Daily, ScheduleAnchor: day}}

	if s := ResolveDay(batch, day, nil)["a"]; s != entities.Pending {
		t.Errorf("Expected PENDING, got %s", s)
	}
}

func TestResolveDay_TesterScenario(t *testing.T) {
	loc := time.UTC
	t0 := time.Date(2025, 8, 6, 10, 15, 0, 0, loc)
	t1 := t0.Add(11543 * time.Millisecond)

	batch := []entities.Medicine{
		{ID: "lipetor", Name: "Lipetor", GroupID: "1001", GroupName: "Tester", GroupOrder: 1,
			GroupStartDate: entities.DayOf(t0), Frequency: entities.RotatingEveryNDays, ScheduleAnchor: entities.DayOf(t0)},
		{ID: "fubuxusat", Name: "Fubuxusat", GroupID: "1002", GroupName: "Tester", GroupOrder: 2,
			GroupStartDate: entities.DayOf(t1), Frequency: entities.RotatingEveryNDays, ScheduleAnchor: entities.DayOf(t1)},
	}

	normalized := normalizer.Normalize(batch).Batch
	today := entities.DayOf(t0)
	got := ResolveDay(normalized, today, IntakesFromLastTaken(normalized, loc))

	want := map[string]entities.Status{
		"lipetor":   entities.Pending,
		"fubuxusat": entities.NotScheduled,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected statuses (-want +got):\n%s", diff)
	}

	tomorrow := ResolveDay(normalized, today.AddDays(1), IntakeSet{})
	if tomorrow["lipetor"] != entities.NotScheduled || tomorrow["fubuxusat"] != entities.Pending {
		t.Errorf("Expected rotation to swap tomorrow, got %v", tomorrow)
	}
}

func TestIntakesFromLastTaken(t *testing.T) {
	taken := time.Date(2025, 8, 6, 8, 0, 0, 0, time.UTC)
	batch := []entities.Medicine{
		{ID: "a", LastTakenAt: &taken},
		{ID: "b"},
	}

	set := IntakesFromLastTaken(batch, time.UTC)
	if !set.TakenOn("a", entities.NewDay(2025, 8, 6)) {
		t.Error("Expected intake for a")
	}
	if len(set["b"]) != 0 {
		t.Error("Unexpected intake for b")
	}
}

type intakeLog struct {
	records []entities.IntakeRecord
	err     error
	since   time.Time
}

func (l *intakeLog) Intakes(ctx context.Context, since time.Time) ([]entities.IntakeRecord, error) {
	l.since = since
	return l.records, l.err
}

func TestCollectIntakes(t *testing.T) {
	day := entities.NewDay(2025, 8, 6)
	lastTaken := day.In(time.UTC).Add(9 * time.Hour)
	batch := []entities.Medicine{
		{ID: "a", LastTakenAt: &lastTaken},
		{ID: "b"},
	}

	set, err := CollectIntakes(context.Background(), batch, day, time.UTC, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !set.TakenOn("a", day) || set.TakenOn("b", day) {
		t.Errorf("Unexpected intakes without history: %v", set)
	}

	log := &intakeLog{records: []entities.IntakeRecord{
		{MedicineID: "b", TakenAt: day.In(time.UTC).Add(22 * time.Hour)},
	}}
	set, err = CollectIntakes(context.Background(), batch, day, time.UTC, log)
	if err != nil {
		t.Fatal(err)
	}
	if !set.TakenOn("a", day) || !set.TakenOn("b", day) {
		t.Errorf("Expected both intakes on %s: %v", day, set)
	}
	if !log.since.Equal(day.In(time.UTC)) {
		t.Errorf("Expected history from the start of %s, got %v", day, log.since)
	}

	log.err = errors.New("boom")
	if _, err := CollectIntakes(context.Background(), batch, day, time.UTC, log); err == nil {
		t.Error("Expected the history error")
	}
}

func TestHistoryOf(t *testing.T) {
	if HistoryOf(struct{}{}) != nil {
		t.Error("A store without history must yield nil")
	}
	if HistoryOf(&intakeLog{}) == nil {
		t.Error("Expected the store's history")
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(map[string]entities.Status{
		"a": entities.Pending,
		"b": entities.Pending,
		"c": entities.TakenToday,
	})
	want := map[entities.Status]int{
		entities.Pending:      2,
		entities.TakenToday:   1,
		entities.NotScheduled: 0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected summary (-want +got):\n%s", diff)
	}
}
