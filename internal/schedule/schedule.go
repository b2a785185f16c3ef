// Package schedule holds the clinic's time arithmetic: the daily slot grid,
// booking time parsing and the interval-overlap rule shared by slot listing
// and booking conflict detection.
package schedule

import (
	"time"
)

// Layouts used on the wire.
const (
	StartTimeLayout = "02/01/2006 15:04"
	DateLayout      = "2006-01-02"
	SlotLayout      = "15:04"
)

// Window is a daily opening window split into fixed steps. Open and Close
// are offsets from midnight; Close is exclusive.
type Window struct {
	Open  time.Duration
	Close time.Duration
	Step  time.Duration
}

// DefaultWindow is 08:00 to 17:00 in half-hour slots.
var DefaultWindow = Window{
	Open:  8 * time.Hour,
	Close: 17 * time.Hour,
	Step:  30 * time.Minute,
}

// ParseStartTime parses a booking time in the exact dd/MM/yyyy HH:mm format.
func ParseStartTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(StartTimeLayout, s, loc)
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// Midnight returns the start of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns the half-open range [start, end) of t's calendar day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := Midnight(t)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds returns the Monday-based week containing t as [start, end).
func WeekBounds(t time.Time) (time.Time, time.Time) {
	start := Midnight(t)
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// Overlaps reports whether [aStart, aStart+aLen) and [bStart, bStart+bLen)
// intersect.
func Overlaps(aStart time.Time, aLen time.Duration, bStart time.Time, bLen time.Duration) bool {
	return aStart.Before(bStart.Add(bLen)) && bStart.Before(aStart.Add(aLen))
}

// ConflictRange is the open interval (from, to) of start times whose
// appointments of length span would overlap one starting at start.
func ConflictRange(start time.Time, span time.Duration) (time.Time, time.Time) {
	return start.Add(-span), start.Add(span)
}

// Slots lists the slot start instants of day in chronological order.
func (w Window) Slots(day time.Time) []time.Time {
	midnight := Midnight(day)
	end := midnight.Add(w.Close)

	var slots []time.Time
	for t := midnight.Add(w.Open); t.Before(end); t = t.Add(w.Step) {
		slots = append(slots, t)
	}
	return slots
}

// Available returns the HH:mm labels of slots on day that no booked
// appointment (each occupying span) overlaps.
func (w Window) Available(day time.Time, booked []time.Time, span time.Duration) []string {
	slots := w.Slots(day)
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		taken := false
		for _, b := range booked {
			if Overlaps(slot, w.Step, b, span) {
				taken = true
				break
			}
		}
		if !taken {
			out = append(out, slot.Format(SlotLayout))
		}
	}
	return out
}
