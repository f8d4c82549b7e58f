// Package render maps schedule entities to the view-models the planner
// surface draws: positioned blocks with status-dependent styling and the
// hover popover detail.
package render

import (
	"fmt"
	"time"

	"github.com/hwells-dev/careplanner/pkg/core/model"
	"github.com/hwells-dev/careplanner/pkg/core/timeline"
)

// StatusClass is the mutually exclusive style class of a block.
// Priority order: cancelled beats allocated beats unallocated.
type StatusClass string

const (
	StatusCancelled   StatusClass = "cancelled"
	StatusAllocated   StatusClass = "allocated"
	StatusUnallocated StatusClass = "unallocated"
)

// UnallocatedLabel is shown when a schedule has no assigned employee
const UnallocatedLabel = "Unallocated"

// Block is one schedule positioned on the timeline
type Block struct {
	ScheduleID string
	Left       float64 // rem
	Width      float64 // rem
	Status     StatusClass
	Label      string
	// Dimmed marks the placeholder rendered at the original position
	// while the block is being dragged.
	Dimmed bool
}

// Popover carries the hover detail for one block
type Popover struct {
	ServiceType     string
	DateLabel       string
	TimeRange       string
	DurationMinutes int
	Allocated       bool
	EmployeeName    string
	Location        string
}

// BuildBlock computes the visual element for a schedule at the given zoom
// level. The second return is false when the schedule's time range is
// degenerate and must not be rendered. activeDragID identifies the
// schedule currently being dragged, if any.
func BuildBlock(s model.Schedule, zoom int, activeDragID string) (Block, bool) {
	pos, err := timeline.PositionFor(s.StartTime, s.EndTime, timeline.SlotWidth(zoom))
	if err != nil || !pos.Renderable() {
		return Block{}, false
	}

	return Block{
		ScheduleID: s.ID,
		Left:       pos.Left,
		Width:      pos.Width,
		Status:     StatusFor(s),
		Label:      LabelFor(s),
		Dimmed:     activeDragID != "" && activeDragID == s.ID,
	}, true
}

// StatusFor resolves the style class for a schedule
func StatusFor(s model.Schedule) StatusClass {
	switch {
	case s.Cancelled:
		return StatusCancelled
	case s.Allocated():
		return StatusAllocated
	default:
		return StatusUnallocated
	}
}

// LabelFor returns the block's primary label. On the service-user-centric
// planner that is the assigned employee's name.
func LabelFor(s model.Schedule) string {
	if s.Employee == nil {
		return UnallocatedLabel
	}
	return s.Employee.FullName()
}

// BuildPopover assembles the hover detail for a schedule
func BuildPopover(s model.Schedule) Popover {
	duration, err := timeline.Duration(s.StartTime, s.EndTime)
	if err != nil {
		duration = 0
	}

	popover := Popover{
		ServiceType:     s.ServiceType,
		DateLabel:       formatDate(s.Date),
		TimeRange:       fmt.Sprintf("%s - %s", s.StartTime, s.EndTime),
		DurationMinutes: duration,
		Allocated:       s.Allocated(),
		EmployeeName:    UnallocatedLabel,
		Location:        formatLocation(s.Branch, s.Area),
	}
	if s.Employee != nil {
		popover.EmployeeName = s.Employee.FullName()
	}
	return popover
}

func formatDate(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return parsed.Format("Mon 2 Jan 2006")
}

func formatLocation(branch, area string) string {
	switch {
	case branch != "" && area != "":
		return branch + " / " + area
	case branch != "":
		return branch
	default:
		return area
	}
}
