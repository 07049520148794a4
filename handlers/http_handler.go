package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/logging"
	"github.com/giygas/medicament-rotations/schedule"
	"github.com/giygas/medicament-rotations/scheduler"
	"github.com/giygas/medicament-rotations/status"
	"github.com/giygas/medicament-rotations/storage"
	"github.com/go-chi/chi/v5"
)

const (
	defaultScheduleDays = 14
	maxScheduleDays     = 366
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
	refresher     interfaces.Scheduler
	store         interfaces.RecordStore
	loc           *time.Location
	now           func() time.Time
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	dataStore interfaces.DataStore,
	validator interfaces.DataValidator,
	healthChecker interfaces.HealthChecker,
	refresher interfaces.Scheduler,
	store interfaces.RecordStore,
	loc *time.Location,
) interfaces.HTTPHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
		refresher:     refresher,
		store:         store,
		loc:           loc,
		now:           time.Now,
	}
}

func (h *HTTPHandlerImpl) today() entities.Day {
	return entities.DayOf(h.now().In(h.loc))
}

// ServeMedicines returns the normalized batch with each medicine's status
func (h *HTTPHandlerImpl) ServeMedicines(w http.ResponseWriter, r *http.Request) {
	snapshot := h.dataStore.GetSnapshot()

	views := make([]MedicineView, 0, len(snapshot.Batch))
	for _, m := range snapshot.Batch {
		views = append(views, MedicineView{Medicine: m, Status: snapshot.Statuses[m.ID]})
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"day":       snapshot.Day,
		"medicines": views,
	})
}

// ServeGroups returns the derived groups, optionally filtered by name
// (case-insensitive partial match)
func (h *HTTPHandlerImpl) ServeGroups(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name != "" {
		if err := h.validator.ValidateInput(name); err != nil {
			logging.Warn("Unusual user input", "name", name)
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	needle := strings.ToLower(name)

	snapshot := h.dataStore.GetSnapshot()
	violationsByGroup := make(map[string]int)
	for _, v := range snapshot.Violations {
		if v.GroupID != "" {
			violationsByGroup[v.GroupID]++
		}
	}

	views := make([]GroupView, 0)
	for _, g := range h.dataStore.GetGroups() {
		if needle != "" && !strings.Contains(strings.ToLower(g.Name), needle) {
			continue
		}
		memberIDs := make([]string, 0, g.Size())
		for _, m := range g.Members {
			memberIDs = append(memberIDs, m.ID)
		}
		views = append(views, GroupView{
			ID:         g.ID,
			Name:       g.Name,
			StartDate:  g.StartDate,
			Frequency:  string(g.Frequency),
			Size:       g.Size(),
			DueOrders:  schedule.DueOrders(schedule.RotationOf(g), snapshot.Day),
			MemberIDs:  memberIDs,
			Violations: violationsByGroup[g.ID],
		})
	}

	RespondWithJSON(w, http.StatusOK, views)
}

// ServeGroupSchedule returns the upcoming due days of one group
func (h *HTTPHandlerImpl) ServeGroupSchedule(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if err := h.validator.ValidateMedicineID(groupID); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	from := h.today()
	if raw := r.URL.Query().Get("from"); raw != "" {
		day, err := h.validator.ValidateDay(raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		from = day
	}

	days := defaultScheduleDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxScheduleDays {
			logging.Warn("Unusual user input", "days", raw)
			RespondWithError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	g, ok := h.dataStore.GetGroup(groupID)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Group not found")
		return
	}

	rotation := schedule.RotationOf(g)
	byOrder := make(map[int][]string)
	for _, m := range g.Members {
		byOrder[m.GroupOrder] = append(byOrder[m.GroupOrder], m.ID)
	}

	upcoming := schedule.Upcoming(rotation, from, days)
	scheduleDays := make([]ScheduleDay, 0, len(upcoming))
	for _, d := range upcoming {
		ids := make([]string, 0)
		for _, order := range d.Orders {
			ids = append(ids, byOrder[order]...)
		}
		scheduleDays = append(scheduleDays, ScheduleDay{Day: d.Day, Orders: d.Orders, MedicineIDs: ids})
	}

	nextDue := make(map[string]entities.Day)
	for _, m := range g.Members {
		if day, ok := schedule.NextDueDay(rotation, m.GroupOrder, from); ok {
			nextDue[m.ID] = day
		}
	}

	RespondWithJSON(w, http.StatusOK, ScheduleResponse{
		GroupID:   g.ID,
		GroupName: g.Name,
		Rotation:  rotation,
		Days:      scheduleDays,
		NextDue:   nextDue,
	})
}

// ServeViolations returns the violations and quality report of the last refresh
func (h *HTTPHandlerImpl) ServeViolations(w http.ResponseWriter, r *http.Request) {
	snapshot := h.dataStore.GetSnapshot()

	violations := snapshot.Violations
	if violations == nil {
		violations = []entities.Violation{}
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"refreshId":  snapshot.RefreshID,
		"violations": violations,
		"report":     snapshot.Report,
	})
}

// ServeDay returns the status of every medicine on a day. "today" resolves
// to the current day in the service timezone.
func (h *HTTPHandlerImpl) ServeDay(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")

	var day entities.Day
	if raw == "today" {
		day = h.today()
	} else {
		parsed, err := h.validator.ValidateDay(raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		day = parsed
	}

	snapshot := h.dataStore.GetSnapshot()
	statuses := snapshot.Statuses
	if day != snapshot.Day || statuses == nil {
		intakes, err := status.CollectIntakes(r.Context(), snapshot.Batch, day, h.loc, status.HistoryOf(h.store))
		if err != nil {
			logging.Error("Failed to load intakes", "day", day.String(), "error", err)
			RespondWithError(w, http.StatusBadGateway, "Failed to load intakes")
			return
		}
		statuses = status.ResolveDay(snapshot.Batch, day, intakes)
	}

	entries := make([]DayEntry, 0, len(snapshot.Batch))
	for _, m := range snapshot.Batch {
		entries = append(entries, DayEntry{
			MedicineID: m.ID,
			Name:       m.Name,
			GroupID:    m.GroupID,
			GroupName:  m.GroupName,
			GroupOrder: m.GroupOrder,
			Status:     statuses[m.ID],
		})
	}

	RespondWithJSON(w, http.StatusOK, DayResponse{
		Day:     day,
		Entries: entries,
		Summary: status.Summarize(statuses),
	})
}

// Normalize runs a refresh now and returns what it changed
func (h *HTTPHandlerImpl) Normalize(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.refresher.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrRefreshInProgress) {
			RespondWithError(w, http.StatusConflict, "A refresh is already in progress")
			return
		}
		logging.Error("Manual refresh failed", "error", err)
		RespondWithError(w, http.StatusBadGateway, "Record store refresh failed")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"refreshId":  snapshot.RefreshID,
		"patches":    snapshot.Patches,
		"merges":     snapshot.Merges,
		"violations": len(snapshot.Violations),
	})
}

// RecordIntake stores an intake for a medicine and refreshes the snapshot.
// An empty body records the intake at the current time.
func (h *HTTPHandlerImpl) RecordIntake(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateMedicineID(id); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	var req IntakeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	takenAt := h.now()
	if req.TakenAt != nil {
		takenAt = *req.TakenAt
	}
	if takenAt.After(h.now().Add(time.Minute)) {
		RespondWithError(w, http.StatusBadRequest, "takenAt is in the future")
		return
	}

	if err := h.store.RecordIntake(r.Context(), id, takenAt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Medicine not found")
			return
		}
		logging.Error("Failed to record intake", "medicine_id", id, "error", err)
		RespondWithError(w, http.StatusBadGateway, "Failed to record intake")
		return
	}

	response := map[string]any{
		"medicineId": id,
		"takenAt":    takenAt,
	}

	snapshot, err := h.refresher.Refresh(r.Context())
	switch {
	case err == nil:
		response["status"] = snapshot.Statuses[id]
	case errors.Is(err, scheduler.ErrRefreshInProgress):
		logging.Info("Intake recorded during a refresh", "medicine_id", id)
	default:
		logging.Warn("Refresh after intake failed", "medicine_id", id, "error", err)
	}

	RespondWithJSON(w, http.StatusCreated, response)
}

// HealthCheck returns service health and runtime statistics
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	healthStatus, data, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status: healthStatus,
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}
	if started := h.dataStore.GetServerStartTime(); !started.IsZero() {
		response.Uptime = formatUptimeHuman(h.now().Sub(started))
	}

	RespondWithJSON(w, httpStatus, response)
}
