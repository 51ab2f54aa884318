package calendar

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//training-reservations//reservations feed//EN"

// FeedOptions tunes the exported calendar.
type FeedOptions struct {
	Name     string
	Location string
	Now      time.Time
}

// WriteICS serializes entries as a VCALENDAR with one VEVENT per entry.
func WriteICS(w io.Writer, entries []Entry, opts FeedOptions) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}

	for _, e := range entries {
		event := cal.AddEvent(e.ID + "@training-reservations")
		event.SetDtStampTime(now.UTC())
		event.SetStartAt(e.Start.UTC())
		event.SetEndAt(e.End.UTC())
		event.SetSummary(Summary(e))
		if e.UserID != "" {
			event.SetDescription("Reserved by user " + e.UserID)
		}
		if opts.Location != "" {
			event.SetLocation(opts.Location)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// Summary is the display title of an entry.
func Summary(e Entry) string {
	title := "Training"
	if e.Kind == KindEvent {
		title = "Event"
	}
	if e.Username != "" {
		title += " (" + e.Username + ")"
	}
	return title
}
