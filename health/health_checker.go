// Package health provides health checking functionality for the rotation service.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/medicament-rotations/interfaces"
)

const (
	degradedAfter  = 25 * time.Hour
	unhealthyAfter = 48 * time.Hour
	slowRefresh    = 10 * time.Minute
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	loc       *time.Location
	now       func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies.
// Days roll over at midnight in loc.
func NewHealthChecker(dataStore interfaces.DataStore, loc *time.Location) interfaces.HealthChecker {
	if loc == nil {
		loc = time.Local
	}
	return &HealthCheckerImpl{
		dataStore: dataStore,
		loc:       loc,
		now:       time.Now,
	}
}

// HealthCheck returns HTTP-specific health data. Open violations degrade the
// service: the day view still works but some groups are unreliable.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	snapshot := h.dataStore.GetSnapshot()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := h.now().Sub(lastUpdate)

	switch {
	case lastUpdate.IsZero():
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > unhealthyAfter:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > degradedAfter:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > slowRefresh:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case len(snapshot.Violations) > 0:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"medicines":      len(snapshot.Batch),
		"groups":         len(h.dataStore.GetGroups()),
		"violations":     len(snapshot.Violations),
		"day":            snapshot.Day.String(),
		"is_updating":    isUpdating,
		"next_rollover":  h.CalculateNextRollover().Format(time.RFC3339),
	}
	if !h.dataStore.GetServerStartTime().IsZero() {
		data["uptime_seconds"] = int(h.now().Sub(h.dataStore.GetServerStartTime()).Seconds())
	}

	return status, data, httpStatus
}

// CalculateNextRollover returns the next midnight in the service timezone
func (h *HealthCheckerImpl) CalculateNextRollover() time.Time {
	now := h.now().In(h.loc)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, h.loc)
}
