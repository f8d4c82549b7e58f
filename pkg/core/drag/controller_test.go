package drag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwells-dev/careplanner/pkg/core/timeline"
)

const testPixelsPerRem = 16.0

// at zoom 4 the slot width is 10rem, so one hour is 160px
var testSlotWidth = timeline.SlotWidth(4)

type capturedReschedule struct {
	intents []Reschedule
}

func (c *capturedReschedule) callback(r Reschedule) {
	c.intents = append(c.intents, r)
}

func newTestController() (*Controller, *capturedReschedule) {
	captured := &capturedReschedule{}
	return NewController(testSlotWidth, testPixelsPerRem, captured.callback), captured
}

func beginDrag(t *testing.T, c *Controller, start, end, dayKey string) {
	t.Helper()
	err := c.Begin(Payload{
		ScheduleID: "sched-1",
		StartTime:  start,
		EndTime:    end,
		DayKey:     dayKey,
	})
	require.NoError(t, err)
}

func TestDrop_MovesByPixelDelta(t *testing.T) {
	c, captured := newTestController()
	beginDrag(t, c, "09:00", "10:00", "2026-03-02")

	// +160px at 160px/hour moves the block one hour right
	outcome, _, err := c.Drop("2026-03-02", 160)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRescheduled, outcome)

	require.Len(t, captured.intents, 1)
	intent := captured.intents[0]
	assert.Equal(t, "sched-1", intent.ScheduleID)
	assert.Equal(t, "10:00", intent.StartTime)
	assert.Equal(t, "11:00", intent.EndTime)
	assert.Equal(t, "2026-03-02", intent.DayKey)
	assert.False(t, c.Dragging())
}

func TestDrop_PreservesDuration(t *testing.T) {
	deltas := []float64{-500, -160, -40, 40, 80, 160, 1000, -10000, 10000}

	for _, delta := range deltas {
		c, captured := newTestController()
		beginDrag(t, c, "09:15", "10:45", "2026-03-02")

		outcome, _, err := c.Drop("2026-03-02", delta)
		require.NoError(t, err)
		require.Equal(t, OutcomeRescheduled, outcome)

		require.Len(t, captured.intents, 1)
		duration, err := timeline.Duration(captured.intents[0].StartTime, captured.intents[0].EndTime)
		require.NoError(t, err)
		assert.Equal(t, 90, duration, "delta %.0fpx must not resize the block", delta)
	}
}

func TestDrop_ClampsToStartOfDay(t *testing.T) {
	c, captured := newTestController()
	beginDrag(t, c, "09:00", "10:30", "2026-03-02")

	// Far past the left edge
	outcome, _, err := c.Drop("2026-03-02", -100000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRescheduled, outcome)

	require.Len(t, captured.intents, 1)
	assert.Equal(t, "00:00", captured.intents[0].StartTime)
	assert.Equal(t, "01:30", captured.intents[0].EndTime)
}

func TestDrop_ClampsToEndOfDay(t *testing.T) {
	c, captured := newTestController()
	beginDrag(t, c, "09:00", "10:30", "2026-03-02")

	outcome, _, err := c.Drop("2026-03-02", 100000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRescheduled, outcome)

	require.Len(t, captured.intents, 1)
	assert.Equal(t, "22:30", captured.intents[0].StartTime)
	assert.Equal(t, "24:00", captured.intents[0].EndTime)
}

func TestDrop_RejectsCrossDay(t *testing.T) {
	c, captured := newTestController()
	beginDrag(t, c, "09:00", "10:00", "2026-03-02")

	assert.False(t, c.CanDrop("2026-03-03"))
	assert.True(t, c.CanDrop("2026-03-02"))

	outcome, payload, err := c.Drop("2026-03-03", 160)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Equal(t, "sched-1", payload.ScheduleID)

	// No intent reaches the orchestrator, and the gesture is over
	assert.Empty(t, captured.intents)
	assert.False(t, c.Dragging())
}

func TestDrop_SmallDisplacementIsClick(t *testing.T) {
	c, captured := newTestController()
	beginDrag(t, c, "09:00", "10:00", "2026-03-02")

	outcome, payload, err := c.Drop("2026-03-02", 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClick, outcome)
	assert.Equal(t, "sched-1", payload.ScheduleID)
	assert.Empty(t, captured.intents, "a click must never reschedule")
}

func TestCancel(t *testing.T) {
	c, captured := newTestController()
	beginDrag(t, c, "09:00", "10:00", "2026-03-02")

	c.Cancel()

	assert.False(t, c.Dragging())
	assert.Empty(t, captured.intents)

	_, _, err := c.Drop("2026-03-02", 160)
	assert.Error(t, err, "drop after cancel has no payload to act on")
}

func TestBegin_RefusesSecondDrag(t *testing.T) {
	c, _ := newTestController()
	beginDrag(t, c, "09:00", "10:00", "2026-03-02")

	err := c.Begin(Payload{ScheduleID: "sched-2", StartTime: "11:00", EndTime: "12:00", DayKey: "2026-03-02"})
	assert.Error(t, err)
}

func TestBegin_RefusesDegenerateRange(t *testing.T) {
	c, _ := newTestController()

	err := c.Begin(Payload{ScheduleID: "sched-1", StartTime: "10:00", EndTime: "10:00", DayKey: "2026-03-02"})
	assert.Error(t, err)
	assert.False(t, c.Dragging())
}

func TestBegin_ConsultsCanDragHook(t *testing.T) {
	c, _ := newTestController()
	c.SetCanDrag(func(scheduleID string) bool { return scheduleID != "locked" })

	err := c.Begin(Payload{ScheduleID: "locked", StartTime: "09:00", EndTime: "10:00", DayKey: "2026-03-02"})
	assert.Error(t, err)

	err = c.Begin(Payload{ScheduleID: "free", StartTime: "09:00", EndTime: "10:00", DayKey: "2026-03-02"})
	assert.NoError(t, err)
}

func TestActivePayload(t *testing.T) {
	c, _ := newTestController()

	_, active := c.ActivePayload()
	assert.False(t, active)

	beginDrag(t, c, "09:00", "10:00", "2026-03-02")

	payload, active := c.ActivePayload()
	require.True(t, active)
	assert.Equal(t, "sched-1", payload.ScheduleID)
	assert.Equal(t, 60, payload.DurationMinutes)
}

func TestSetSlotWidth_CancelsActiveDrag(t *testing.T) {
	c, captured := newTestController()
	beginDrag(t, c, "09:00", "10:00", "2026-03-02")

	c.SetSlotWidth(timeline.SlotWidth(8))

	assert.False(t, c.Dragging())
	assert.Empty(t, captured.intents)
}
