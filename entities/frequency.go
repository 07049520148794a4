package entities

import (
	"fmt"
	"strings"
)

// Frequency is the recurrence pattern of a medicine or rotation group.
type Frequency string

const (
	// Daily members are due every day.
	Daily Frequency = "DAILY"
	// RotatingEveryNDays members take turns on a cycle whose length is the
	// group size. For a two-member group this is "every other day".
	RotatingEveryNDays Frequency = "ROTATING_EVERY_N_DAYS"
)

// Legacy pattern name used by the mobile application's exports.
const legacyEveryOtherDay = "EVERY_OTHER_DAY"

// ParseFrequency accepts the canonical names and the legacy EVERY_OTHER_DAY
// alias. An empty value defaults to Daily.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(Daily):
		return Daily, nil
	case string(RotatingEveryNDays), legacyEveryOtherDay:
		return RotatingEveryNDays, nil
	default:
		return "", fmt.Errorf("unsupported frequency pattern: %q", s)
	}
}

// Valid reports whether f is one of the supported patterns.
func (f Frequency) Valid() bool {
	return f == Daily || f == RotatingEveryNDays
}

// Legacy returns the name the mobile application uses for f.
func (f Frequency) Legacy() string {
	if f == RotatingEveryNDays {
		return legacyEveryOtherDay
	}
	return string(Daily)
}
