package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 10, 21, h, m, 0, 0, time.UTC)
}

func TestAvailable_EmptyDayHasEighteenSlots(t *testing.T) {
	slots := DefaultWindow.Available(day, nil, time.Minute)

	require.Len(t, slots, 18)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "16:30", slots[len(slots)-1])

	for i := 1; i < len(slots); i++ {
		prev, _ := time.Parse(SlotLayout, slots[i-1])
		cur, _ := time.Parse(SlotLayout, slots[i])
		assert.Equal(t, 30*time.Minute, cur.Sub(prev))
	}
}

func TestAvailable_RemovesSlotContainingBooking(t *testing.T) {
	booked := []time.Time{at(9, 0), at(10, 15), at(16, 59)}

	slots := DefaultWindow.Available(day, booked, time.Minute)

	assert.Len(t, slots, 15)
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "10:00")
	assert.NotContains(t, slots, "16:30")
	assert.Contains(t, slots, "09:30")
	assert.Contains(t, slots, "10:30")
}

func TestAvailable_WiderSpanBlocksFollowingSlot(t *testing.T) {
	slots := DefaultWindow.Available(day, []time.Time{at(10, 15)}, 30*time.Minute)

	assert.NotContains(t, slots, "10:00")
	assert.NotContains(t, slots, "10:30")
	assert.Contains(t, slots, "11:00")
}

func TestAvailable_IgnoresTimeOfDayInput(t *testing.T) {
	slots := DefaultWindow.Available(at(13, 45), nil, time.Minute)
	assert.Len(t, slots, 18)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		span time.Duration
		want bool
	}{
		{name: "same minute", a: at(9, 0), b: at(9, 0), span: time.Minute, want: true},
		{name: "one minute apart", a: at(9, 0), b: at(9, 1), span: time.Minute, want: false},
		{name: "one minute apart wide span", a: at(9, 0), b: at(9, 1), span: 30 * time.Minute, want: true},
		{name: "touching intervals", a: at(9, 0), b: at(9, 30), span: 30 * time.Minute, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.span, tt.b, tt.span))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.span, tt.a, tt.span))
		})
	}
}

func TestParseStartTime(t *testing.T) {
	got, err := ParseStartTime("21/10/2026 09:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, at(9, 30), got)

	for _, bad := range []string{"2026-10-21 09:30", "21/10/2026", "21/10/2026 9:30am", "32/10/2026 09:30", ""} {
		_, err := ParseStartTime(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestWeekBounds_StartsMonday(t *testing.T) {
	// 2026-10-21 is a Wednesday.
	start, end := WeekBounds(at(15, 0))
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))

	sunday := time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC)
	s, _ := WeekBounds(sunday)
	assert.Equal(t, start, s)
}

func TestConflictRange(t *testing.T) {
	from, to := ConflictRange(at(9, 0), time.Minute)
	assert.Equal(t, at(8, 59), from)
	assert.Equal(t, at(9, 1), to)
}
