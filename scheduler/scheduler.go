// Package scheduler runs the refresh pipeline of the rotation service on a
// schedule: at every midnight rollover of the configured timezone and on a
// fixed interval. It also monitors that refreshes keep happening.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/logging"
	"github.com/giygas/medicament-rotations/metrics"
	"github.com/giygas/medicament-rotations/normalizer"
	"github.com/giygas/medicament-rotations/status"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// ErrRefreshInProgress is returned by Refresh when another run holds the
// data store
var ErrRefreshInProgress = errors.New("refresh already in progress")

// staleAfter is how long the health monitor tolerates missing refreshes
const staleAfter = 25 * time.Hour

// Scheduler handles refreshes and health monitoring using dependency injection
type Scheduler struct {
	dataStore       interfaces.DataStore
	store           interfaces.RecordStore
	validator       interfaces.DataValidator
	loc             *time.Location
	refreshInterval time.Duration
	scheduler       *gocron.Scheduler

	now         func() time.Time
	monitorTick time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewScheduler creates a new scheduler instance with injected dependencies.
// Days roll over at midnight in loc.
func NewScheduler(
	dataStore interfaces.DataStore,
	store interfaces.RecordStore,
	validator interfaces.DataValidator,
	loc *time.Location,
	refreshInterval time.Duration,
) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		dataStore:       dataStore,
		store:           store,
		validator:       validator,
		loc:             loc,
		refreshInterval: refreshInterval,
		scheduler:       gocron.NewScheduler(loc),
		now:             time.Now,
		monitorTick:     time.Hour,
		stop:            make(chan struct{}),
	}
}

// Start performs the initial refresh, then schedules the rollover and
// interval jobs and the health monitor
func (s *Scheduler) Start() error {
	_, err := s.Refresh(context.Background())
	switch {
	case errors.Is(err, ErrRefreshInProgress):
		logging.Info("Refresh already in progress, skipping initial refresh")
	case err != nil:
		logging.Error("Failed to perform initial refresh", "error", err)
		return fmt.Errorf("initial refresh failed: %w", err)
	}

	// Midnight rollover: statuses belong to the new day
	_, err = s.scheduler.Every(1).Days().At("00:00").Do(s.runJob, "rollover")
	if err != nil {
		logging.Error("Failed to schedule rollover", "error", err)
		return fmt.Errorf("failed to schedule rollover: %w", err)
	}

	if s.refreshInterval > 0 {
		_, err = s.scheduler.Every(s.refreshInterval).WaitForSchedule().Do(s.runJob, "interval")
		if err != nil {
			logging.Error("Failed to schedule refreshes", "error", err)
			return fmt.Errorf("failed to schedule refreshes: %w", err)
		}
	}

	s.scheduler.StartAsync()

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduled jobs and the health monitor
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) runJob(trigger string) {
	if _, err := s.Refresh(context.Background()); err != nil {
		if errors.Is(err, ErrRefreshInProgress) {
			logging.Info("Refresh already in progress, skipping...", "trigger", trigger)
			return
		}
		logging.Error("Scheduled refresh failed", "trigger", trigger, "error", err)
	}
}

// Refresh runs the pipeline once: load the batch, normalize it, persist the
// patches, re-read, validate, resolve today and swap the snapshot in
func (s *Scheduler) Refresh(ctx context.Context) (*interfaces.Snapshot, error) {
	// Prevent concurrent refreshes
	if !s.dataStore.BeginUpdate() {
		return nil, ErrRefreshInProgress
	}
	defer s.dataStore.EndUpdate()

	refreshID := uuid.NewString()
	start := time.Now()
	logging.Debug("Starting refresh", "refresh_id", refreshID)

	snapshot, err := s.buildSnapshot(ctx, refreshID)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RefreshDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		logging.Error("Refresh failed", "refresh_id", refreshID, "error", err)
		return nil, err
	}
	metrics.RefreshDuration.WithLabelValues("success").Observe(elapsed.Seconds())

	// Atomic update using injected data store
	s.dataStore.UpdateData(snapshot)

	logging.Info("Refresh completed",
		"refresh_id", refreshID,
		"duration", elapsed.String(),
		"medicine_count", len(snapshot.Batch),
		"patches", len(snapshot.Patches),
		"violations", len(snapshot.Violations),
		"day", snapshot.Day.String(),
	)

	return snapshot, nil
}

func (s *Scheduler) buildSnapshot(ctx context.Context, refreshID string) (*interfaces.Snapshot, error) {
	batch, err := s.store.LoadBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	result := normalizer.Normalize(batch)
	if result.Changed() {
		if err := s.store.ApplyPatches(ctx, result.Patches); err != nil {
			return nil, fmt.Errorf("failed to persist patches: %w", err)
		}
		metrics.PatchesTotal.Add(float64(len(result.Patches)))
		metrics.GroupMergesTotal.Add(float64(len(result.Merges)))

		for _, m := range result.Merges {
			logging.Info("Merged fragmented group",
				"refresh_id", refreshID,
				"group_name", m.GroupName,
				"merged_ids", m.MergedIDs,
				"canonical_id", m.CanonicalID,
				"canonical_start", m.CanonicalStart.String(),
			)
		}

		// Statuses are derived from what the store holds after the write
		batch, err = s.store.LoadBatch(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reload batch: %w", err)
		}
		if normalizer.HasFragmentation(batch) {
			logging.Warn("Batch still fragmented after persisting patches", "refresh_id", refreshID)
		}
	}

	violations := s.validator.ValidateBatch(batch)
	report := s.validator.ReportDataQuality(batch, violations)
	metrics.SetViolations(report.ViolationsByKind)

	if len(violations) > 0 {
		logging.Warn("Group violations detected",
			"refresh_id", refreshID,
			"total", len(violations),
			"groups", report.GroupsWithViolations,
		)
	}

	now := s.now().In(s.loc)
	today := entities.DayOf(now)

	intakes, err := status.CollectIntakes(ctx, batch, today, s.loc, status.HistoryOf(s.store))
	if err != nil {
		return nil, err
	}
	statuses := status.ResolveDay(batch, today, intakes)
	metrics.SetDayStatuses(status.Summarize(statuses))

	return &interfaces.Snapshot{
		RefreshID:   refreshID,
		Batch:       batch,
		Patches:     result.Patches,
		Merges:      result.Merges,
		Violations:  violations,
		Report:      report,
		Day:         today,
		Statuses:    statuses,
		RefreshedAt: now,
	}, nil
}

// startHealthMonitoring warns when refreshes stop happening
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.monitorTick)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > staleAfter {
					logging.Warn("Data hasn't been refreshed in over 25 hours", "last_update", lastUpdate)
				}
			}
		}
	}()
}
