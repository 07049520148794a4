// Package entities holds the record shapes shared by every part of the
// rotation engine: medicines, derived rotation groups, patches, violations
// and display statuses.
package entities

import (
	"strings"
	"time"
)

// Medicine is one reminder record as read from the record store.
type Medicine struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	GroupID        string     `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	GroupName      string     `json:"groupName,omitempty" yaml:"groupName,omitempty"`
	GroupOrder     int        `json:"groupOrder,omitempty" yaml:"groupOrder,omitempty"`
	GroupStartDate Day        `json:"groupStartDate" yaml:"groupStartDate"`
	Frequency      Frequency  `json:"frequency" yaml:"frequency"`
	ScheduleAnchor Day        `json:"scheduleAnchor" yaml:"scheduleAnchor"`
	LastTakenAt    *time.Time `json:"lastTakenAt,omitempty" yaml:"lastTakenAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}

// IsGrouped reports whether the medicine belongs to a rotation group.
func (m Medicine) IsGrouped() bool {
	return m.GroupID != ""
}

// HasGroupName reports whether the medicine carries a non-blank group name.
func (m Medicine) HasGroupName() bool {
	return strings.TrimSpace(m.GroupName) != ""
}

// GroupFields returns the fields owned by group normalization.
func (m Medicine) GroupFields() GroupFields {
	return GroupFields{
		GroupID:        m.GroupID,
		GroupStartDate: m.GroupStartDate,
		GroupOrder:     m.GroupOrder,
	}
}

// WithGroupFields returns a copy of m carrying f.
func (m Medicine) WithGroupFields(f GroupFields) Medicine {
	m.GroupID = f.GroupID
	m.GroupStartDate = f.GroupStartDate
	m.GroupOrder = f.GroupOrder
	return m
}

// CloneBatch copies a batch so callers can rewrite records without aliasing
// the input. LastTakenAt pointers are copied too.
func CloneBatch(batch []Medicine) []Medicine {
	out := make([]Medicine, len(batch))
	copy(out, batch)
	for i := range out {
		if out[i].LastTakenAt != nil {
			t := *out[i].LastTakenAt
			out[i].LastTakenAt = &t
		}
	}
	return out
}

// IntakeRecord is one recorded intake, owned by the intake-recording
// collaborator.
type IntakeRecord struct {
	MedicineID string    `json:"medicineId"`
	TakenAt    time.Time `json:"takenAt"`
}
