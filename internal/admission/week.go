package admission

import "time"

// Window is the half-open booking week [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// StartOfWeek returns Monday 00:00 of the week containing t in loc.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	// Monday == 1, Sunday == 0.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// CurrentWeek returns the booking week that contains now.
func CurrentWeek(now time.Time, loc *time.Location) Window {
	start := StartOfWeek(now, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}
