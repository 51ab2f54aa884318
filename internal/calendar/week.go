// Package calendar lays reservations out on the weekly booking grid shown to
// users and exports them as iCalendar feeds.
package calendar

import (
	"time"

	"github.com/example/training-reservations/internal/admission"
)

// Grid bounds. Rows start at FirstHour and the last row starts at LastHour.
const (
	FirstHour  = 8
	LastHour   = 18
	DaysOnGrid = 5
)

// Week is a Monday-anchored booking week in a display location.
type Week struct {
	Start    time.Time
	Location *time.Location
}

// WeekOf returns the week containing t. A nil loc means UTC.
func WeekOf(t time.Time, loc *time.Location) Week {
	if loc == nil {
		loc = time.UTC
	}
	return Week{Start: admission.StartOfWeek(t, loc), Location: loc}
}

// Next returns the following week.
func (w Week) Next() Week {
	return Week{Start: w.Start.AddDate(0, 0, 7), Location: w.Location}
}

// Prev returns the preceding week.
func (w Week) Prev() Week {
	return Week{Start: w.Start.AddDate(0, 0, -7), Location: w.Location}
}

// End returns the exclusive end of the displayed days (Saturday 00:00).
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, DaysOnGrid)
}

// Days returns midnight of Monday through Friday.
func (w Week) Days() []time.Time {
	days := make([]time.Time, DaysOnGrid)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

// Hours returns the row start hours.
func Hours() []int {
	hours := make([]int, 0, LastHour-FirstHour+1)
	for h := FirstHour; h <= LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Cell returns the start of the slot at hour on day (0 = Monday).
func (w Week) Cell(day, hour int) time.Time {
	d := w.Start.AddDate(0, 0, day)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, w.Start.Location())
}

// Label renders the week range as "May 18 - May 22, 2026".
func (w Week) Label() string {
	last := w.Start.AddDate(0, 0, DaysOnGrid-1)
	if last.Year() != w.Start.Year() {
		return w.Start.Format("Jan 2, 2006") + " - " + last.Format("Jan 2, 2006")
	}
	return w.Start.Format("Jan 2") + " - " + last.Format("Jan 2, 2006")
}
