// Package status turns eligibility and today's intakes into the status a
// day view shows for each medicine.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/schedule"
)

// Resolve combines eligibility with today's intake. An intake recorded today
// always wins; otherwise eligible medicines are pending.
func Resolve(eligible, takenToday bool) entities.Status {
	switch {
	case takenToday:
		return entities.TakenToday
	case eligible:
		return entities.Pending
	default:
		return entities.NotScheduled
	}
}

// IntakeLookup answers whether a medicine was taken on a given day. It is
// only ever asked about the day being resolved.
type IntakeLookup interface {
	TakenOn(medicineID string, day entities.Day) bool
}

// IntakeSet is an in-memory IntakeLookup keyed by medicine and day.
type IntakeSet map[string]map[entities.Day]bool

// NewIntakeSet builds a set from intake records, bucketing each one into its
// civil day in loc.
func NewIntakeSet(records []entities.IntakeRecord, loc *time.Location) IntakeSet {
	set := make(IntakeSet)
	for _, r := range records {
		set.Add(r.MedicineID, entities.DayOf(r.TakenAt.In(loc)))
	}
	return set
}

// IntakesFromLastTaken derives intakes from each medicine's LastTakenAt.
func IntakesFromLastTaken(batch []entities.Medicine, loc *time.Location) IntakeSet {
	records := make([]entities.IntakeRecord, 0, len(batch))
	for _, m := range batch {
		if m.LastTakenAt == nil {
			continue
		}
		records = append(records, entities.IntakeRecord{MedicineID: m.ID, TakenAt: *m.LastTakenAt})
	}
	return NewIntakeSet(records, loc)
}

// IntakeHistory is implemented by record stores that keep every intake, not
// only the last one.
type IntakeHistory interface {
	Intakes(ctx context.Context, since time.Time) ([]entities.IntakeRecord, error)
}

// CollectIntakes gathers the intakes that count on day: each medicine's
// LastTakenAt plus, when history is not nil, every intake recorded since day
// began in loc.
func CollectIntakes(ctx context.Context, batch []entities.Medicine, day entities.Day, loc *time.Location, history IntakeHistory) (IntakeSet, error) {
	set := IntakesFromLastTaken(batch, loc)
	if history == nil {
		return set, nil
	}

	records, err := history.Intakes(ctx, day.In(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to load intakes: %w", err)
	}
	for _, r := range records {
		set.Add(r.MedicineID, entities.DayOf(r.TakenAt.In(loc)))
	}
	return set, nil
}

// HistoryOf returns store as an IntakeHistory, or nil when it keeps none.
func HistoryOf(store any) IntakeHistory {
	if history, ok := store.(IntakeHistory); ok {
		return history
	}
	return nil
}

// Add records an intake of medicineID on day.
func (s IntakeSet) Add(medicineID string, day entities.Day) {
	days, ok := s[medicineID]
	if !ok {
		days = make(map[entities.Day]bool)
		s[medicineID] = days
	}
	days[day] = true
}

func (s IntakeSet) TakenOn(medicineID string, day entities.Day) bool {
	return s[medicineID][day]
}

// ResolveDay returns the status of every medicine of batch on day. Only
// intakes on day itself are consulted.
func ResolveDay(batch []entities.Medicine, day entities.Day, intakes IntakeLookup) map[string]entities.Status {
	groups := entities.GroupIndex(batch)
	statuses := make(map[string]entities.Status, len(batch))
	for _, m := range batch {
		eligible := schedule.IsMedicineEligible(m, groups, day)
		taken := intakes != nil && intakes.TakenOn(m.ID, day)
		statuses[m.ID] = Resolve(eligible, taken)
	}
	return statuses
}

// Summarize counts medicines per status. Every status is present.
func Summarize(statuses map[string]entities.Status) map[entities.Status]int {
	counts := make(map[entities.Status]int, len(entities.Statuses))
	for _, s := range entities.Statuses {
		counts[s] = 0
	}
	for _, s := range statuses {
		counts[s]++
	}
	return counts
}
