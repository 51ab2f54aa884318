package admission

import (
	"errors"
	"sort"
	"time"
)

// SlotLength is the only reservation length the facility accepts.
const SlotLength = time.Hour

// ErrInvalidDuration is returned when an interval is not exactly one slot long.
var ErrInvalidDuration = errors.New("admission: reservation must be exactly one hour")

// Interval is a half-open time range [Start, End).
type Interval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two half-open intervals share any instant.
// Touching boundaries do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Duration returns End minus Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// UTC returns a copy with both bounds normalized to UTC.
func (i Interval) UTC() Interval {
	return Interval{ID: i.ID, Start: i.Start.UTC(), End: i.End.UTC()}
}

// CheckDuration rejects anything other than a one hour interval. Zero and
// negative lengths are rejected too.
func CheckDuration(start, end time.Time) error {
	if end.Sub(start) != SlotLength {
		return ErrInvalidDuration
	}
	return nil
}

// DetectConflicts returns the existing intervals that overlap the candidate,
// ordered by start time.
func DetectConflicts(existing []Interval, candidate Interval) []Interval {
	var conflicts []Interval
	for _, item := range existing {
		if item.Overlaps(candidate) {
			conflicts = append(conflicts, item)
		}
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Start.Equal(conflicts[j].Start) {
			return conflicts[i].ID < conflicts[j].ID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})
	return conflicts
}
