// Package data provides thread-safe storage of the latest pipeline snapshot.
// A refresh builds a complete snapshot off to the side and swaps it in
// atomically so readers never observe a half-normalized batch.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the current snapshot and its lookup maps behind atomic
// values for zero-downtime updates
type DataContainer struct {
	snapshot        atomic.Value // *interfaces.Snapshot
	medicinesMap    atomic.Value // map[string]entities.Medicine
	groups          atomic.Value // []entities.Group
	groupsMap       atomic.Value // map[string]entities.Group
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with an empty snapshot
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.snapshot.Store(emptySnapshot())
	dc.medicinesMap.Store(make(map[string]entities.Medicine))
	dc.groups.Store(make([]entities.Group, 0))
	dc.groupsMap.Store(make(map[string]entities.Group))
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func emptySnapshot() *interfaces.Snapshot {
	return &interfaces.Snapshot{
		Batch:      make([]entities.Medicine, 0),
		Patches:    make([]entities.Patch, 0),
		Merges:     make([]entities.Merge, 0),
		Violations: make([]entities.Violation, 0),
		Statuses:   make(map[string]entities.Status),
	}
}

// GetSnapshot returns the latest snapshot. It is never nil.
func (dc *DataContainer) GetSnapshot() *interfaces.Snapshot {
	if v := dc.snapshot.Load(); v != nil {
		if snapshot, ok := v.(*interfaces.Snapshot); ok && snapshot != nil {
			return snapshot
		}
	}

	logging.Warn("Snapshot is empty or invalid")
	return emptySnapshot()
}

// GetMedicine looks a medicine of the current snapshot up by id
func (dc *DataContainer) GetMedicine(id string) (entities.Medicine, bool) {
	if v := dc.medicinesMap.Load(); v != nil {
		if medicinesMap, ok := v.(map[string]entities.Medicine); ok {
			m, found := medicinesMap[id]
			return m, found
		}
	}

	logging.Warn("MedicinesMap is empty or invalid")
	return entities.Medicine{}, false
}

// GetGroups returns the groups of the current snapshot sorted by id
func (dc *DataContainer) GetGroups() []entities.Group {
	if v := dc.groups.Load(); v != nil {
		if groups, ok := v.([]entities.Group); ok {
			return groups
		}
	}

	logging.Warn("Groups list is empty or invalid")
	return []entities.Group{}
}

// GetGroup looks a group of the current snapshot up by id
func (dc *DataContainer) GetGroup(id string) (entities.Group, bool) {
	if v := dc.groupsMap.Load(); v != nil {
		if groupsMap, ok := v.(map[string]entities.Group); ok {
			g, found := groupsMap[id]
			return g, found
		}
	}

	logging.Warn("GroupsMap is empty or invalid")
	return entities.Group{}, false
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a refresh is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically replaces the snapshot and rebuilds the lookup maps.
// A nil snapshot is ignored.
func (dc *DataContainer) UpdateData(snapshot *interfaces.Snapshot) {
	if snapshot == nil {
		logging.Warn("Ignoring nil snapshot")
		return
	}

	medicinesMap := make(map[string]entities.Medicine, len(snapshot.Batch))
	for _, m := range snapshot.Batch {
		medicinesMap[m.ID] = m
	}
	groups := entities.GroupsOf(snapshot.Batch)
	groupsMap := make(map[string]entities.Group, len(groups))
	for _, g := range groups {
		groupsMap[g.ID] = g
	}

	// Atomic swap (zero downtime replacement)
	dc.medicinesMap.Store(medicinesMap)
	dc.groups.Store(groups)
	dc.groupsMap.Store(groupsMap)
	dc.snapshot.Store(snapshot)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a refresh
// Returns true if the refresh can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
