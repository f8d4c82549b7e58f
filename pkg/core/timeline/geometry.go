// Package timeline holds the pure geometry of the planner: conversions
// between clock time, minute offsets and horizontal positions on the
// zoomable axis. Everything here is a pure function of its arguments so
// the rest of the planner can be tested without a rendering surface.
package timeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay bounds every position on the axis; a schedule never
	// crosses midnight.
	MinutesPerDay = 24 * 60

	// remPerZoomStep is the rem width of one hour at zoom level 1.
	remPerZoomStep = 2.5

	// roundingMinutes is the scheduling granularity used when formatting
	// minute offsets back into clock time.
	roundingMinutes = 5

	// MinZoom and MaxZoom bound the zoom level the UI shell can request.
	MinZoom = 2
	MaxZoom = 8
)

// ClampZoom bounds a requested zoom level to the supported range
func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// SlotWidth returns the rem width allotted to one hour at the given zoom
// level. Every horizontal measurement on the timeline derives from this.
func SlotWidth(zoom int) float64 {
	return float64(ClampZoom(zoom)) * remPerZoomStep
}

// TimeToMinutes parses a 24-hour "HH:MM" string into minutes since
// midnight. "24:00" is accepted as the end-of-day boundary.
func TimeToMinutes(t string) (int, error) {
	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", t)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", t, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", t, err)
	}
	if hours < 0 || hours > 24 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", t)
	}
	total := hours*60 + minutes
	if total > MinutesPerDay {
		return 0, fmt.Errorf("invalid time %q: past end of day", t)
	}
	return total, nil
}

// MinutesToTime formats a minute offset as zero-padded "HH:MM", rounding
// to the nearest 5-minute increment first. Offsets are clamped to the day
// so the inverse of TimeToMinutes always yields a valid clock string.
func MinutesToTime(minutes int) string {
	rounded := int(math.Round(float64(minutes)/roundingMinutes)) * roundingMinutes
	if rounded < 0 {
		rounded = 0
	}
	if rounded > MinutesPerDay {
		rounded = MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", rounded/60, rounded%60)
}

// Position is a horizontal placement on the timeline axis, expressed in
// the same linear unit as the slot width (rem).
type Position struct {
	Left  float64
	Width float64
}

// Renderable reports whether the position describes a drawable block.
// A zero or negative width means the underlying time range is degenerate
// and the block must not be rendered.
func (p Position) Renderable() bool {
	return p.Width > 0
}

// PositionFor computes the left offset and width for a schedule spanning
// startTime to endTime, given the slot width for the current zoom level.
func PositionFor(startTime, endTime string, slotWidth float64) (Position, error) {
	startMinutes, err := TimeToMinutes(startTime)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse start time: %w", err)
	}
	endMinutes, err := TimeToMinutes(endTime)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse end time: %w", err)
	}
	return Position{
		Left:  float64(startMinutes) / 60 * slotWidth,
		Width: float64(endMinutes-startMinutes) / 60 * slotWidth,
	}, nil
}

// MinutesForPixels converts a horizontal pixel displacement into a minute
// delta, given the slot width in rem and the pixel size of one rem.
func MinutesForPixels(pixelDelta, slotWidth, pixelsPerRem float64) int {
	pixelsPerHour := slotWidth * pixelsPerRem
	if pixelsPerHour <= 0 {
		return 0
	}
	return int(math.Round(pixelDelta / pixelsPerHour * 60))
}

// Duration returns the span of a valid schedule time range in minutes.
// An error is returned when either bound fails to parse or the range is
// empty or inverted.
func Duration(startTime, endTime string) (int, error) {
	startMinutes, err := TimeToMinutes(startTime)
	if err != nil {
		return 0, err
	}
	endMinutes, err := TimeToMinutes(endTime)
	if err != nil {
		return 0, err
	}
	duration := endMinutes - startMinutes
	if duration <= 0 {
		return 0, fmt.Errorf("invalid time range %s-%s: end must be after start", startTime, endTime)
	}
	return duration, nil
}
