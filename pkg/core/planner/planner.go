// Package planner owns the fetch/filter/optimistic-update lifecycle of
// the scheduling timeline. The Planner holds the authoritative schedule
// collection for the visible window; every other component reads it or
// requests changes through callbacks, never by direct mutation.
package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/hwells-dev/careplanner/pkg/core/drag"
	"github.com/hwells-dev/careplanner/pkg/core/model"
	"github.com/hwells-dev/careplanner/pkg/core/timeline"
)

// ScheduleService is the backend boundary the planner loads from and
// commits to. Implemented by scheduleclient.Client.
type ScheduleService interface {
	ListWindow(ctx context.Context, start, end time.Time, serviceUserID string, page, limit int) ([]model.Schedule, error)
	PatchTimes(ctx context.Context, scheduleID, startTime, endTime string) error
	Create(ctx context.Context, s model.Schedule) (string, error)
}

// RescheduleRecord is the audit entry written after each drag commit
type RescheduleRecord struct {
	ScheduleID string
	DayKey     string
	OldStart   string
	OldEnd     string
	NewStart   string
	NewEnd     string
	Outcome    string // "committed" or "rolled_back"
}

// Reschedule outcome values recorded to history
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
)

// HistoryRecorder persists reschedule audit entries. Optional; a nil
// recorder disables auditing.
type HistoryRecorder interface {
	RecordReschedule(ctx context.Context, rec RescheduleRecord) error
}

// NoticeLevel classifies a user-visible notice
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a non-blocking, user-visible message. Network-boundary
// errors surface as notices rather than propagating to the surface.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// NoticeFunc receives notices for display by the UI shell
type NoticeFunc func(Notice)

// Config tunes the planner's window and paging behavior
type Config struct {
	// WindowRadiusDays is N in "selected date +/- N days"
	WindowRadiusDays int
	// PageSize is the backend page size for window loads
	PageSize int
	// ClosureRules mark agency closure days on the timeline
	ClosureRules []*rrule.RRule
}

// DayRow is the ephemeral view-model for one calendar date in the
// visible window. Rebuilt from the authoritative collection on demand.
type DayRow struct {
	Date      time.Time
	Key       string // "2006-01-02"
	Label     string
	IsToday   bool
	IsClosed  bool
	Schedules []model.Schedule
}

// DayStats aggregates one visible day's allocation counts
type DayStats struct {
	Allocated   int
	Unallocated int
	Total       int
}

// Planner orchestrates loading, filtering and rescheduling for the
// timeline. Methods are safe for use from the UI event loop plus the
// goroutines that complete network calls.
type Planner struct {
	svc     ScheduleService
	history HistoryRecorder
	cfg     Config
	logger  *zap.Logger
	notify  NoticeFunc

	mu            sync.Mutex
	schedules     []model.Schedule
	selectedDate  time.Time
	serviceUserID string
	filter        model.StatusFilter
	zoom          int
	generation    uint64
	inflight      map[string]bool
	quarantined   int

	now func() time.Time
}

// New creates a planner. history and notify may be nil.
func New(svc ScheduleService, history HistoryRecorder, cfg Config, logger *zap.Logger, notify NoticeFunc) *Planner {
	if cfg.WindowRadiusDays <= 0 {
		cfg.WindowRadiusDays = 3
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	p := &Planner{
		svc:      svc,
		history:  history,
		cfg:      cfg,
		logger:   logger,
		notify:   notify,
		filter:   model.FilterAll,
		zoom:     4,
		inflight: make(map[string]bool),
		now:      time.Now,
	}
	p.selectedDate = p.today()
	return p
}

func (p *Planner) today() time.Time {
	year, month, day := p.now().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SetSelectedDate moves the window center. Callers follow up with Load.
func (p *Planner) SetSelectedDate(date time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selectedDate = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// SetServiceUser scopes loads to one care recipient; empty clears it
func (p *Planner) SetServiceUser(serviceUserID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serviceUserID = serviceUserID
}

// SetFilter switches the status filter. Filtering is a pure view over
// the authoritative collection.
func (p *Planner) SetFilter(filter model.StatusFilter) error {
	if !filter.IsValid() {
		return fmt.Errorf("invalid status filter %q", filter)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = filter
	return nil
}

// SetZoom updates the zoom level, clamped to the supported range
func (p *Planner) SetZoom(zoom int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zoom = timeline.ClampZoom(zoom)
}

// Zoom returns the current zoom level
func (p *Planner) Zoom() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.zoom
}

// Window returns the inclusive date range of the visible window
func (p *Planner) Window() (time.Time, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windowLocked()
}

func (p *Planner) windowLocked() (time.Time, time.Time) {
	radius := p.cfg.WindowRadiusDays
	return p.selectedDate.AddDate(0, 0, -radius), p.selectedDate.AddDate(0, 0, radius)
}

// Load fetches the visible window from the backend and replaces the
// authoritative collection. On failure the previous collection stays in
// place and an error notice is emitted. A load superseded by a newer one
// discards its result instead of applying stale data.
func (p *Planner) Load(ctx context.Context) error {
	p.mu.Lock()
	p.generation++
	generation := p.generation
	start, end := p.windowLocked()
	serviceUserID := p.serviceUserID
	pageSize := p.cfg.PageSize
	p.mu.Unlock()

	p.logger.Debug("Loading schedule window",
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
		zap.Uint64("generation", generation))

	fetched, err := p.svc.ListWindow(ctx, start, end, serviceUserID, 1, pageSize)
	if err != nil {
		p.logger.Warn("Schedule load failed, keeping previous collection", zap.Error(err))
		p.sendNotice(NoticeError, "Could not load schedules. Showing previous data.")
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	valid, rejected := p.validateIngest(fetched)

	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		p.logger.Debug("Discarding stale load result",
			zap.Uint64("generation", generation),
			zap.Uint64("current", p.generation))
		return nil
	}
	p.schedules = valid
	p.quarantined = rejected
	p.logger.Info("Schedule window loaded",
		zap.Int("count", len(valid)),
		zap.Int("quarantined", rejected))
	return nil
}

// validateIngest drops schedules whose time fields would produce
// degenerate geometry, counting and logging the rejects
func (p *Planner) validateIngest(schedules []model.Schedule) ([]model.Schedule, int) {
	valid := make([]model.Schedule, 0, len(schedules))
	rejected := 0
	for _, s := range schedules {
		if _, err := timeline.Duration(s.StartTime, s.EndTime); err != nil {
			p.logger.Warn("Quarantining schedule with invalid time range",
				zap.String("schedule_id", s.ID),
				zap.Error(err))
			rejected++
			continue
		}
		valid = append(valid, s)
	}
	return valid, rejected
}

// Schedules returns a copy of the authoritative collection
func (p *Planner) Schedules() []model.Schedule {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Schedule, len(p.schedules))
	copy(out, p.schedules)
	return out
}

// Filtered returns the schedules matching the current status filter.
// The authoritative collection is never mutated by filtering.
func (p *Planner) Filtered() []model.Schedule {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.Schedule, 0, len(p.schedules))
	for _, s := range p.schedules {
		switch p.filter {
		case model.FilterAllocated:
			if !s.Allocated() {
				continue
			}
		case model.FilterUnallocated:
			if s.Allocated() {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// QuarantinedCount reports how many fetched schedules the last load
// excluded for malformed time data
func (p *Planner) QuarantinedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quarantined
}

// DayRows builds the per-date view-models for the visible window,
// applying the current status filter to each row's schedules
func (p *Planner) DayRows() []DayRow {
	filtered := p.Filtered()

	p.mu.Lock()
	start, end := p.windowLocked()
	rules := p.cfg.ClosureRules
	p.mu.Unlock()
	today := p.today().Format("2006-01-02")

	byDay := make(map[string][]model.Schedule)
	for _, s := range filtered {
		byDay[s.DayKey()] = append(byDay[s.DayKey()], s)
	}

	var rows []DayRow
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		key := date.Format("2006-01-02")
		rows = append(rows, DayRow{
			Date:      date,
			Key:       key,
			Label:     date.Format("Mon 02 Jan"),
			IsToday:   key == today,
			IsClosed:  dayIsClosed(date, rules),
			Schedules: byDay[key],
		})
	}
	return rows
}

// dayIsClosed reports whether any closure rule has an occurrence on the
// given day. Rules are read-only here; each keeps the anchor it was
// parsed with, which fixes the phase of interval rules.
func dayIsClosed(date time.Time, rules []*rrule.RRule) bool {
	dayEnd := date.AddDate(0, 0, 1).Add(-time.Second)
	for _, rule := range rules {
		if len(rule.Between(date, dayEnd, true)) > 0 {
			return true
		}
	}
	return false
}

// Stats computes per-day allocation counts from the authoritative
// collection, keyed by day key
func (p *Planner) Stats() map[string]DayStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]DayStats)
	for _, s := range p.schedules {
		day := stats[s.DayKey()]
		if s.Allocated() {
			day.Allocated++
		} else {
			day.Unallocated++
		}
		day.Total++
		stats[s.DayKey()] = day
	}
	return stats
}

// CanDrag reports whether a schedule may start a new drag. Wired into
// the drag controller so a schedule with an outstanding commit cannot be
// picked up again.
func (p *Planner) CanDrag(scheduleID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.inflight[scheduleID]
}

// Reschedule applies a drag-drop intent: the local collection is updated
// optimistically before the patch is issued, and a failed commit rolls
// back by reloading the whole window from the backend.
func (p *Planner) Reschedule(ctx context.Context, intent drag.Reschedule) error {
	p.mu.Lock()
	if p.inflight[intent.ScheduleID] {
		p.mu.Unlock()
		p.sendNotice(NoticeError, "This schedule is still being saved. Try again in a moment.")
		return fmt.Errorf("reschedule already in flight for schedule %s", intent.ScheduleID)
	}

	index := -1
	for i, s := range p.schedules {
		if s.ID == intent.ScheduleID && s.DayKey() == intent.DayKey {
			index = i
			break
		}
	}
	if index < 0 {
		p.mu.Unlock()
		return fmt.Errorf("schedule %s not found on day %s", intent.ScheduleID, intent.DayKey)
	}

	oldStart := p.schedules[index].StartTime
	oldEnd := p.schedules[index].EndTime

	// Optimistic update: the UI reflects the move before the network
	// call resolves.
	p.schedules[index].StartTime = intent.StartTime
	p.schedules[index].EndTime = intent.EndTime
	p.inflight[intent.ScheduleID] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inflight, intent.ScheduleID)
		p.mu.Unlock()
	}()

	p.logger.Debug("Committing reschedule",
		zap.String("schedule_id", intent.ScheduleID),
		zap.String("new_start", intent.StartTime),
		zap.String("new_end", intent.EndTime))

	record := RescheduleRecord{
		ScheduleID: intent.ScheduleID,
		DayKey:     intent.DayKey,
		OldStart:   oldStart,
		OldEnd:     oldEnd,
		NewStart:   intent.StartTime,
		NewEnd:     intent.EndTime,
	}

	if err := p.svc.PatchTimes(ctx, intent.ScheduleID, intent.StartTime, intent.EndTime); err != nil {
		p.logger.Warn("Reschedule commit failed, reloading window",
			zap.String("schedule_id", intent.ScheduleID),
			zap.Error(err))
		p.sendNotice(NoticeError, "Could not save the new time. The schedule has been restored.")

		record.Outcome = OutcomeRolledBack
		p.recordHistory(ctx, record)

		// Full reload rather than manual rollback: coarser, but it
		// guarantees the collection matches the server.
		if reloadErr := p.Load(ctx); reloadErr != nil {
			return fmt.Errorf("failed to reload after rejected commit: %w", reloadErr)
		}
		return fmt.Errorf("failed to commit reschedule: %w", err)
	}

	p.logger.Info("Reschedule committed",
		zap.String("schedule_id", intent.ScheduleID),
		zap.String("start", intent.StartTime),
		zap.String("end", intent.EndTime))
	p.sendNotice(NoticeInfo, "Schedule updated.")

	record.Outcome = OutcomeCommitted
	p.recordHistory(ctx, record)
	return nil
}

// CreateExtraCall creates an ad-hoc schedule via the backend and reloads
// the window so the new entry appears in its authoritative form
func (p *Planner) CreateExtraCall(ctx context.Context, s model.Schedule) (string, error) {
	if _, err := timeline.Duration(s.StartTime, s.EndTime); err != nil {
		return "", fmt.Errorf("invalid extra call times: %w", err)
	}
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		return "", fmt.Errorf("invalid extra call date: %w", err)
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	id, err := p.svc.Create(ctx, s)
	if err != nil {
		p.sendNotice(NoticeError, "Could not create the extra call.")
		return "", fmt.Errorf("failed to create extra call: %w", err)
	}
	if id == "" {
		id = s.ID
	}

	p.logger.Info("Extra call created", zap.String("schedule_id", id))
	p.sendNotice(NoticeInfo, "Extra call created.")

	if err := p.Load(ctx); err != nil {
		return id, fmt.Errorf("extra call created but reload failed: %w", err)
	}
	return id, nil
}

func (p *Planner) recordHistory(ctx context.Context, record RescheduleRecord) {
	if p.history == nil {
		return
	}
	if err := p.history.RecordReschedule(ctx, record); err != nil {
		// Auditing is best-effort; a failed write never blocks the UI
		p.logger.Warn("Failed to record reschedule history",
			zap.String("schedule_id", record.ScheduleID),
			zap.Error(err))
	}
}

func (p *Planner) sendNotice(level NoticeLevel, message string) {
	if p.notify == nil {
		return
	}
	p.notify(Notice{Level: level, Message: message})
}
