// Package drag implements the gesture-to-reschedule state machine for the
// planner timeline. It is deliberately independent of any drag-and-drop
// library: the UI shell feeds it payloads and pixel deltas, and it answers
// with clamped reschedule intents. All time math goes through the
// timeline package so the controller stays purely about gesture policy.
package drag

import (
	"fmt"

	"github.com/hwells-dev/careplanner/pkg/core/timeline"
)

// clickThresholdPixels separates a click from a drag. A drop whose total
// displacement stays inside this threshold is reported as a click so the
// shell can open the detail view instead of rescheduling.
const clickThresholdPixels = 3.0

// Payload is the transient state captured at drag start. It exists only
// between Begin and Drop/Cancel.
type Payload struct {
	ScheduleID      string
	StartTime       string // "HH:MM" at pick-up
	EndTime         string // "HH:MM" at pick-up
	DurationMinutes int
	DayKey          string // row the block was picked up from
}

// Reschedule is the intent emitted after a valid drop: move the schedule
// to the new time range within its original day.
type Reschedule struct {
	ScheduleID string
	StartTime  string
	EndTime    string
	DayKey     string
}

// RescheduleFunc receives the reschedule intent for a valid drop
type RescheduleFunc func(Reschedule)

// CanDragFunc lets the owner veto a drag before it starts, e.g. while a
// previous commit for the same schedule is still in flight.
type CanDragFunc func(scheduleID string) bool

// Outcome describes how a drop resolved
type Outcome int

const (
	// OutcomeRescheduled means a reschedule intent was emitted
	OutcomeRescheduled Outcome = iota
	// OutcomeClick means the pointer barely moved; treat as a click
	OutcomeClick
	// OutcomeRejected means the drop target refused the payload
	OutcomeRejected
)

type state int

const (
	stateIdle state = iota
	stateDragging
)

// Controller is the drag state machine: Idle -> Dragging -> Idle.
// It is owned by the planner surface and driven by pointer events.
type Controller struct {
	state        state
	payload      Payload
	slotWidth    float64
	pixelsPerRem float64
	onReschedule RescheduleFunc
	canDrag      CanDragFunc
}

// NewController creates a controller for the given horizontal scale.
// slotWidth is the rem width of one hour (timeline.SlotWidth), and
// pixelsPerRem is the pixel size of one rem on the rendering surface.
func NewController(slotWidth, pixelsPerRem float64, onReschedule RescheduleFunc) *Controller {
	return &Controller{
		slotWidth:    slotWidth,
		pixelsPerRem: pixelsPerRem,
		onReschedule: onReschedule,
	}
}

// SetCanDrag installs a veto hook consulted at drag start
func (c *Controller) SetCanDrag(canDrag CanDragFunc) {
	c.canDrag = canDrag
}

// SetSlotWidth updates the horizontal scale when the zoom level changes.
// Changing zoom mid-drag is not supported; the active drag is cancelled.
func (c *Controller) SetSlotWidth(slotWidth float64) {
	if c.state == stateDragging {
		c.Cancel()
	}
	c.slotWidth = slotWidth
}

// Dragging reports whether a drag gesture is in progress
func (c *Controller) Dragging() bool {
	return c.state == stateDragging
}

// ActivePayload returns the in-flight payload. The second return is false
// when no drag is active. Renderers use this to dim the dragged block at
// its original position.
func (c *Controller) ActivePayload() (Payload, bool) {
	if c.state != stateDragging {
		return Payload{}, false
	}
	return c.payload, true
}

// Begin starts a drag from a schedule block. The payload's duration is
// derived from its time range; a range that fails to parse refuses the
// drag since the delta math would be meaningless.
func (c *Controller) Begin(payload Payload) error {
	if c.state == stateDragging {
		return fmt.Errorf("drag already in progress for schedule %s", c.payload.ScheduleID)
	}
	if c.canDrag != nil && !c.canDrag(payload.ScheduleID) {
		return fmt.Errorf("schedule %s cannot be dragged right now", payload.ScheduleID)
	}

	duration, err := timeline.Duration(payload.StartTime, payload.EndTime)
	if err != nil {
		return fmt.Errorf("failed to start drag for schedule %s: %w", payload.ScheduleID, err)
	}
	payload.DurationMinutes = duration

	c.payload = payload
	c.state = stateDragging
	return nil
}

// CanDrop reports whether the row identified by dayKey accepts the active
// payload. Only the origin row accepts: repositioning is time-only, and
// cross-day moves are refused before any state changes.
func (c *Controller) CanDrop(dayKey string) bool {
	return c.state == stateDragging && c.payload.DayKey == dayKey
}

// Drop completes the gesture on the row identified by dayKey with the
// given total horizontal displacement in pixels. On a valid drop the new
// time range is clamped to the day window, the reschedule callback fires,
// and the controller returns to idle. The dropped payload is returned for
// the shell's benefit (e.g. opening details on OutcomeClick).
func (c *Controller) Drop(dayKey string, pixelDelta float64) (Outcome, Payload, error) {
	if c.state != stateDragging {
		return OutcomeRejected, Payload{}, fmt.Errorf("no drag in progress")
	}

	payload := c.payload
	c.state = stateIdle
	c.payload = Payload{}

	if payload.DayKey != dayKey {
		return OutcomeRejected, payload, nil
	}

	if pixelDelta > -clickThresholdPixels && pixelDelta < clickThresholdPixels {
		return OutcomeClick, payload, nil
	}

	minutesDelta := timeline.MinutesForPixels(pixelDelta, c.slotWidth, c.pixelsPerRem)

	originalStart, err := timeline.TimeToMinutes(payload.StartTime)
	if err != nil {
		return OutcomeRejected, payload, fmt.Errorf("failed to parse dragged start time: %w", err)
	}

	newStart := originalStart + minutesDelta
	newEnd := newStart + payload.DurationMinutes

	// Keep the block inside the 24-hour window, preserving its duration
	if newStart < 0 {
		newStart = 0
		newEnd = payload.DurationMinutes
	}
	if newEnd > timeline.MinutesPerDay {
		newEnd = timeline.MinutesPerDay
		newStart = timeline.MinutesPerDay - payload.DurationMinutes
	}

	intent := Reschedule{
		ScheduleID: payload.ScheduleID,
		StartTime:  timeline.MinutesToTime(newStart),
		EndTime:    timeline.MinutesToTime(newEnd),
		DayKey:     dayKey,
	}
	if c.onReschedule != nil {
		c.onReschedule(intent)
	}

	return OutcomeRescheduled, payload, nil
}

// Cancel abandons the active drag without emitting anything. The block
// stays at its original position.
func (c *Controller) Cancel() {
	c.state = stateIdle
	c.payload = Payload{}
}
