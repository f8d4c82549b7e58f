package timeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		time    string
		minutes int
	}{
		{"00:00", 0},
		{"00:05", 5},
		{"09:30", 570},
		{"12:00", 720},
		{"23:55", 1435},
		{"24:00", 1440},
	}

	for _, tt := range tests {
		t.Run(tt.time, func(t *testing.T) {
			minutes, err := TimeToMinutes(tt.time)
			require.NoError(t, err)
			assert.Equal(t, tt.minutes, minutes)
		})
	}
}

func TestTimeToMinutes_Invalid(t *testing.T) {
	tests := []string{"", "0900", "9:3:0", "ab:cd", "25:00", "10:60", "-1:00", "24:01"}

	for _, input := range tests {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			_, err := TimeToMinutes(input)
			assert.Error(t, err)
		})
	}
}

func TestMinutesToTime_RoundsToFiveMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{2, "00:00"},
		{3, "00:05"},
		{570, "09:30"},
		{572, "09:30"},
		{573, "09:35"},
		{1440, "24:00"},
		{-10, "00:00"},
		{1500, "24:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, MinutesToTime(tt.minutes))
		})
	}
}

// Any time on a 5-minute boundary must survive a full round trip.
func TestRoundTrip(t *testing.T) {
	for minutes := 0; minutes <= MinutesPerDay; minutes += 5 {
		formatted := fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
		parsed, err := TimeToMinutes(formatted)
		require.NoError(t, err)
		assert.Equal(t, formatted, MinutesToTime(parsed))
	}
}

func TestSlotWidth(t *testing.T) {
	assert.Equal(t, 5.0, SlotWidth(2))
	assert.Equal(t, 10.0, SlotWidth(4))
	assert.Equal(t, 20.0, SlotWidth(8))

	// Out-of-range zoom is clamped, never extrapolated
	assert.Equal(t, SlotWidth(MinZoom), SlotWidth(0))
	assert.Equal(t, SlotWidth(MaxZoom), SlotWidth(100))
}

func TestPositionFor_ZoomScaling(t *testing.T) {
	// A one-hour block spans exactly one slot width at any zoom level
	atZoom2, err := PositionFor("09:00", "10:00", SlotWidth(2))
	require.NoError(t, err)
	assert.Equal(t, 5.0, atZoom2.Width)
	assert.Equal(t, 45.0, atZoom2.Left)

	atZoom4, err := PositionFor("09:00", "10:00", SlotWidth(4))
	require.NoError(t, err)
	assert.Equal(t, 10.0, atZoom4.Width)
	assert.Equal(t, 90.0, atZoom4.Left)
}

func TestPositionFor_Monotonicity(t *testing.T) {
	slotWidth := SlotWidth(4)
	starts := []string{"00:00", "06:15", "09:00", "09:05", "13:30", "22:45"}

	var previous float64 = -1
	for _, start := range starts {
		pos, err := PositionFor(start, "23:00", slotWidth)
		require.NoError(t, err)
		assert.Greater(t, pos.Left, previous, "left offset must grow with start time")
		previous = pos.Left
	}
}

func TestPositionFor_DegenerateRange(t *testing.T) {
	pos, err := PositionFor("10:00", "10:00", SlotWidth(4))
	require.NoError(t, err)
	assert.False(t, pos.Renderable())

	pos, err = PositionFor("11:00", "10:00", SlotWidth(4))
	require.NoError(t, err)
	assert.False(t, pos.Renderable())
	assert.Negative(t, pos.Width)
}

func TestPositionFor_InvalidTime(t *testing.T) {
	_, err := PositionFor("bad", "10:00", SlotWidth(4))
	assert.Error(t, err)

	_, err = PositionFor("10:00", "bad", SlotWidth(4))
	assert.Error(t, err)
}

func TestMinutesForPixels(t *testing.T) {
	// zoom 4 => 10rem per hour; at 16px per rem that is 160px per hour
	slotWidth := SlotWidth(4)

	assert.Equal(t, 60, MinutesForPixels(160, slotWidth, 16))
	assert.Equal(t, -60, MinutesForPixels(-160, slotWidth, 16))
	assert.Equal(t, 30, MinutesForPixels(80, slotWidth, 16))
	assert.Equal(t, 0, MinutesForPixels(0, slotWidth, 16))

	// Degenerate scale never divides by zero
	assert.Equal(t, 0, MinutesForPixels(100, 0, 16))
}

func TestDuration(t *testing.T) {
	duration, err := Duration("09:00", "10:30")
	require.NoError(t, err)
	assert.Equal(t, 90, duration)

	_, err = Duration("10:00", "10:00")
	assert.Error(t, err)

	_, err = Duration("11:00", "10:00")
	assert.Error(t, err)

	_, err = Duration("oops", "10:00")
	assert.Error(t, err)
}
