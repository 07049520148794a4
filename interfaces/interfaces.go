// Package interfaces defines core abstractions for the rotation service
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/medicament-rotations/entities"
)

// DataQualityReport provides a summary of the structural state of a batch
type DataQualityReport struct {
	TotalMedicines       int                            `json:"total_medicines"`
	GroupedMedicines     int                            `json:"grouped_medicines"`
	Groups               int                            `json:"groups"`
	FragmentedNames      []string                       `json:"fragmented_names"`
	ViolationsByKind     map[entities.ViolationKind]int `json:"violations_by_kind"`
	GroupsWithViolations []string                       `json:"groups_with_violations"`
}

// Snapshot is the result of one refresh of the pipeline: the normalized batch
// and everything derived from it.
type Snapshot struct {
	RefreshID   string                     `json:"refresh_id"`
	Batch       []entities.Medicine        `json:"batch"`
	Patches     []entities.Patch           `json:"patches"`
	Merges      []entities.Merge           `json:"merges"`
	Violations  []entities.Violation       `json:"violations"`
	Report      *DataQualityReport         `json:"report"`
	Day         entities.Day               `json:"day"`
	Statuses    map[string]entities.Status `json:"statuses"`
	RefreshedAt time.Time                  `json:"refreshed_at"`
}

// RecordStore is the external store holding medicine records. The core only
// reads batches from it and hands back patches to persist.
type RecordStore interface {
	// LoadBatch returns every medicine record of the profile
	LoadBatch(ctx context.Context) ([]entities.Medicine, error)

	// ApplyPatches persists normalization patches atomically
	ApplyPatches(ctx context.Context, patches []entities.Patch) error

	// RecordIntake stores an intake as the medicine's LastTakenAt
	RecordIntake(ctx context.Context, medicineID string, takenAt time.Time) error
}

// DataStore defines the contract for the in-memory snapshot container.
// It provides thread-safe access with atomic swaps for zero-downtime updates.
type DataStore interface {
	// Data retrieval methods
	GetSnapshot() *Snapshot
	GetMedicine(id string) (entities.Medicine, bool)
	GetGroups() []entities.Group
	GetGroup(id string) (entities.Group, bool)
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(snapshot *Snapshot)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling and health monitoring.
// It manages automated refreshes at day rollover and on a fixed interval.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()

	// Refresh runs the pipeline once, outside the schedule
	Refresh(ctx context.Context) (*Snapshot, error)
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ServeMedicines(w http.ResponseWriter, r *http.Request)
	ServeGroups(w http.ResponseWriter, r *http.Request)
	ServeGroupSchedule(w http.ResponseWriter, r *http.Request)
	ServeViolations(w http.ResponseWriter, r *http.Request)
	ServeDay(w http.ResponseWriter, r *http.Request)
	Normalize(w http.ResponseWriter, r *http.Request)
	RecordIntake(w http.ResponseWriter, r *http.Request)
	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextRollover returns the next scheduled day rollover
	CalculateNextRollover() time.Time
}

// DataValidator defines the contract for validation operations.
// Structural checks report violations as data and never fail.
type DataValidator interface {
	// ValidateBatch checks every group of the batch
	ValidateBatch(batch []entities.Medicine) []entities.Violation

	// ValidateGroup checks the invariants of one derived group
	ValidateGroup(group entities.Group) []entities.Violation

	// ReportDataQuality summarises the batch and its violations
	ReportDataQuality(batch []entities.Medicine, violations []entities.Violation) *DataQualityReport

	// ValidateInput validates free-text user input
	ValidateInput(input string) error

	// ValidateMedicineID validates opaque record identifiers
	ValidateMedicineID(input string) error

	// ValidateDay parses and validates a YYYY-MM-DD day
	ValidateDay(input string) (entities.Day, error)
}
