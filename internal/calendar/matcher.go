package calendar

import (
	"sort"
	"time"
)

// Kind mirrors the reservation type carried on the wire.
type Kind int

const (
	KindTraining Kind = 0
	KindEvent    Kind = 1
)

// Entry is a reservation as the calendar sees it.
type Entry struct {
	ID       string
	UserID   string
	Username string
	Start    time.Time
	End      time.Time
	Kind     Kind
}

// Occupancy describes one grid cell. Training and Event are computed
// independently, so both can be set.
type Occupancy struct {
	Training bool
	Event    bool
	Entries  []Entry
}

// Booked reports whether anything occupies the cell.
func (o Occupancy) Booked() bool {
	return o.Training || o.Event
}

// Matcher decides whether a reservation belongs to a grid cell by comparing
// month, day and hour of the reservation start in the display location. The
// year is ignored unless MatchYear is set.
type Matcher struct {
	Location  *time.Location
	MatchYear bool
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// MatchYear also requires the years to agree.
func MatchYear() MatcherOption {
	return func(m *Matcher) { m.MatchYear = true }
}

// NewMatcher returns a Matcher for loc. A nil loc means UTC.
func NewMatcher(loc *time.Location, opts ...MatcherOption) Matcher {
	if loc == nil {
		loc = time.UTC
	}
	m := Matcher{Location: loc}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Matches reports whether a reservation starting at start falls in the cell
// starting at cell.
func (m Matcher) Matches(start, cell time.Time) bool {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	s, c := start.In(loc), cell.In(loc)
	if m.MatchYear && s.Year() != c.Year() {
		return false
	}
	return s.Month() == c.Month() && s.Day() == c.Day() && s.Hour() == c.Hour()
}

// Occupancy evaluates one cell against entries.
func (m Matcher) Occupancy(entries []Entry, cell time.Time) Occupancy {
	var occ Occupancy
	for _, e := range entries {
		if !m.Matches(e.Start, cell) {
			continue
		}
		occ.Entries = append(occ.Entries, e)
		switch e.Kind {
		case KindTraining:
			occ.Training = true
		case KindEvent:
			occ.Event = true
		}
	}
	return occ
}

// Grid holds the occupancy of a week, indexed [day][hour-FirstHour].
type Grid struct {
	Week  Week
	Cells [DaysOnGrid][LastHour - FirstHour + 1]Occupancy
}

// At returns the occupancy of the cell at hour on day (0 = Monday).
func (g Grid) At(day, hour int) Occupancy {
	if day < 0 || day >= DaysOnGrid || hour < FirstHour || hour > LastHour {
		return Occupancy{}
	}
	return g.Cells[day][hour-FirstHour]
}

// Build lays entries out on week.
func (m Matcher) Build(week Week, entries []Entry) Grid {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	grid := Grid{Week: week}
	for day := 0; day < DaysOnGrid; day++ {
		for hour := FirstHour; hour <= LastHour; hour++ {
			grid.Cells[day][hour-FirstHour] = m.Occupancy(sorted, week.Cell(day, hour))
		}
	}
	return grid
}
