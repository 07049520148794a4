// Package handlers provides HTTP request handlers for the rotation service:
// the normalized batch, derived groups and their schedules, violations, day
// views, manual refreshes and intake recording.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/logging"
	"github.com/giygas/medicament-rotations/schedule"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// MedicineView is a medicine with its status on the snapshot day
type MedicineView struct {
	entities.Medicine
	Status entities.Status `json:"status"`
}

// GroupView is a derived group with the orders due on the snapshot day
type GroupView struct {
	ID         string       `json:"groupId"`
	Name       string       `json:"groupName"`
	StartDate  entities.Day `json:"groupStartDate"`
	Frequency  string       `json:"frequency"`
	Size       int          `json:"size"`
	DueOrders  []int        `json:"dueOrders"`
	MemberIDs  []string     `json:"memberIds"`
	Violations int          `json:"violations"`
}

// ScheduleDay is one day of a group schedule with the members due on it
type ScheduleDay struct {
	Day         entities.Day `json:"day"`
	Orders      []int        `json:"orders"`
	MedicineIDs []string     `json:"medicineIds"`
}

// ScheduleResponse is the upcoming schedule of one group
type ScheduleResponse struct {
	GroupID   string                  `json:"groupId"`
	GroupName string                  `json:"groupName"`
	Rotation  schedule.Rotation       `json:"rotation"`
	Days      []ScheduleDay           `json:"days"`
	NextDue   map[string]entities.Day `json:"nextDue"`
}

// DayEntry is one medicine of a day view
type DayEntry struct {
	MedicineID string          `json:"medicineId"`
	Name       string          `json:"name"`
	GroupID    string          `json:"groupId,omitempty"`
	GroupName  string          `json:"groupName,omitempty"`
	GroupOrder int             `json:"groupOrder,omitempty"`
	Status     entities.Status `json:"status"`
}

// DayResponse is the status of every medicine on one day
type DayResponse struct {
	Day     entities.Day            `json:"day"`
	Entries []DayEntry              `json:"entries"`
	Summary map[entities.Status]int `json:"summary"`
}

// IntakeRequest is the body of an intake recording
type IntakeRequest struct {
	TakenAt *time.Time `json:"takenAt"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime,omitempty"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}
