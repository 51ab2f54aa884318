package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/training-reservations/internal/calendar"
	"github.com/example/training-reservations/internal/client"
)

// cellText renders one grid cell: "." when free, otherwise the kinds present
// and, when names is set, who booked them.
func cellText(occ calendar.Occupancy, names bool) string {
	if !occ.Booked() {
		return "."
	}
	kinds := make([]string, 0, 2)
	if occ.Training {
		kinds = append(kinds, "T")
	}
	if occ.Event {
		kinds = append(kinds, "E")
	}
	text := strings.Join(kinds, "+")
	if !names {
		return text
	}
	who := make([]string, 0, len(occ.Entries))
	for _, e := range occ.Entries {
		if e.Username != "" {
			who = append(who, e.Username)
		}
	}
	if len(who) == 0 {
		return text
	}
	return text + " " + strings.Join(who, ",")
}

func renderWeek(w io.Writer, grid calendar.Grid, names bool) error {
	if _, err := fmt.Fprintf(w, "Week of %s (%s)\n", grid.Week.Label(), grid.Week.Location); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"Hour"}
	for _, day := range grid.Week.Days() {
		header = append(header, day.Format("Mon 01/02"))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, hour := range calendar.Hours() {
		row := []string{fmt.Sprintf("%02d:00", hour)}
		for day := 0; day < calendar.DaysOnGrid; day++ {
			row = append(row, cellText(grid.At(day, hour), names))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "T = training, E = event, . = free")
	return err
}

func renderUsers(w io.Writer, users []client.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Username, u.Role)
	}
	return tw.Flush()
}

func describeReservation(r client.Reservation, loc *time.Location) string {
	kind := "training"
	if r.Type == calendar.KindEvent {
		kind = "event"
	}
	start, end := r.StartTime.In(loc), r.EndTime.In(loc)
	return fmt.Sprintf("%s %s %s-%s %s", r.ID, kind, start.Format("Mon 2006-01-02 15:04"), end.Format("15:04"), loc)
}
