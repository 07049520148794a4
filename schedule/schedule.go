// Package schedule decides which members of a rotation group are due on a
// given day. Eligibility is a pure function of the group's start date, its
// frequency, its size and the member's order: no intake history and no
// stored state take part, so "who is due today" is reproducible for any day.
package schedule

import (
	"github.com/giygas/medicament-rotations/entities"
)

// Rotation is the part of a group eligibility depends on.
type Rotation struct {
	StartDate entities.Day       `json:"startDate"`
	Frequency entities.Frequency `json:"frequency"`
	Size      int                `json:"size"`
}

// RotationOf returns the rotation of a derived group.
func RotationOf(g entities.Group) Rotation {
	return Rotation{
		StartDate: g.StartDate,
		Frequency: g.Frequency,
		Size:      g.Size(),
	}
}

// DayOffset is the number of calendar days from start to day. Days before the
// start give negative offsets.
func DayOffset(start, day entities.Day) int64 {
	return entities.DaysBetween(start, day)
}

// Phase maps an offset onto 0..n-1 with floored modulo, so the cycle extends
// backwards before the start date as well.
func Phase(offset int64, n int) int {
	size := int64(n)
	return int(((offset % size) + size) % size)
}

// rotates reports whether members of r take turns. Only rotating groups of
// two or more members do; any other frequency, the zero value included, is
// treated as daily.
func rotates(r Rotation) bool {
	return r.Frequency == entities.RotatingEveryNDays && r.Size > 1
}

// IsEligible reports whether the member at order is due on day.
//
// Non-rotating groups and rotations of at most one member are always due.
// Otherwise exactly one order per day is due: the one whose zero-based
// position equals the phase of the day. Orders outside 1..Size are never due.
func IsEligible(r Rotation, order int, day entities.Day) bool {
	if !rotates(r) {
		return true
	}
	if order < 1 || order > r.Size {
		return false
	}
	return Phase(DayOffset(r.StartDate, day), r.Size) == order-1
}

// DueOrders returns the orders due on day, ascending.
func DueOrders(r Rotation, day entities.Day) []int {
	if r.Size <= 0 {
		return []int{}
	}
	if !rotates(r) {
		orders := make([]int, r.Size)
		for i := range orders {
			orders[i] = i + 1
		}
		return orders
	}
	return []int{Phase(DayOffset(r.StartDate, day), r.Size) + 1}
}

// NextDueDay returns the first day on or after from on which order is due.
// ok is false when order can never be due.
func NextDueDay(r Rotation, order int, from entities.Day) (day entities.Day, ok bool) {
	if !rotates(r) {
		return from, true
	}
	if order < 1 || order > r.Size {
		return 0, false
	}
	phase := Phase(DayOffset(r.StartDate, from), r.Size)
	wait := Phase(int64(order-1-phase), r.Size)
	return from.AddDays(wait), true
}

// DueDay is one entry of an upcoming schedule.
type DueDay struct {
	Day    entities.Day `json:"day"`
	Orders []int        `json:"orders"`
}

// Upcoming lists the due orders for days consecutive days starting at from.
func Upcoming(r Rotation, from entities.Day, days int) []DueDay {
	if days < 0 {
		days = 0
	}
	out := make([]DueDay, 0, days)
	for i := 0; i < days; i++ {
		day := from.AddDays(i)
		out = append(out, DueDay{Day: day, Orders: DueOrders(r, day)})
	}
	return out
}

// ungroupedPeriod is the cycle of a standalone rotating medicine: every
// other day from its own anchor.
const ungroupedPeriod = 2

// IsMedicineEligible reports whether a medicine is due on day. Grouped
// medicines use their group's rotation; ungrouped medicines are due daily or
// every other day from their ScheduleAnchor.
func IsMedicineEligible(m entities.Medicine, groups map[string]entities.Group, day entities.Day) bool {
	if m.IsGrouped() {
		if g, ok := groups[m.GroupID]; ok {
			return IsEligible(RotationOf(g), m.GroupOrder, day)
		}
	}
	if m.Frequency != entities.RotatingEveryNDays {
		return true
	}
	return Phase(DayOffset(m.ScheduleAnchor, day), ungroupedPeriod) == 0
}
