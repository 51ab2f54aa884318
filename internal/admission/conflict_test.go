package admission

import (
	"errors"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.May, 18, hour, minute, 0, 0, time.UTC)
}

func TestIntervalOverlaps(t *testing.T) {
	t.Parallel()

	base := Interval{Start: at(10, 0), End: at(11, 0)}

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{name: "identical", other: Interval{Start: at(10, 0), End: at(11, 0)}, want: true},
		{name: "starts inside", other: Interval{Start: at(10, 30), End: at(11, 30)}, want: true},
		{name: "ends inside", other: Interval{Start: at(9, 30), End: at(10, 30)}, want: true},
		{name: "contains", other: Interval{Start: at(9, 0), End: at(12, 0)}, want: true},
		{name: "touches end", other: Interval{Start: at(11, 0), End: at(12, 0)}, want: false},
		{name: "touches start", other: Interval{Start: at(9, 0), End: at(10, 0)}, want: false},
		{name: "disjoint", other: Interval{Start: at(14, 0), End: at(15, 0)}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := base.Overlaps(tc.other); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
			if got := tc.other.Overlaps(base); got != tc.want {
				t.Fatalf("Overlaps is not symmetric")
			}
		})
	}
}

func TestCheckDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{name: "exactly one hour", start: at(10, 0), end: at(11, 0)},
		{name: "ninety minutes", start: at(10, 0), end: at(11, 30), wantErr: true},
		{name: "thirty minutes", start: at(10, 0), end: at(10, 30), wantErr: true},
		{name: "zero length", start: at(10, 0), end: at(10, 0), wantErr: true},
		{name: "negative", start: at(11, 0), end: at(10, 0), wantErr: true},
		{name: "one hour and a nanosecond", start: at(10, 0), end: at(11, 0).Add(time.Nanosecond), wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := CheckDuration(tc.start, tc.end)
			if tc.wantErr && !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("expected ErrInvalidDuration, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	t.Run("overlapping intervals are reported in start order", func(t *testing.T) {
		t.Parallel()

		existing := []Interval{
			{ID: "late", Start: at(11, 0), End: at(12, 0)},
			{ID: "early", Start: at(10, 0), End: at(11, 0)},
			{ID: "far", Start: at(15, 0), End: at(16, 0)},
		}
		got := DetectConflicts(existing, Interval{Start: at(10, 30), End: at(11, 30)})
		if len(got) != 2 {
			t.Fatalf("expected 2 conflicts, got %d", len(got))
		}
		if got[0].ID != "early" || got[1].ID != "late" {
			t.Fatalf("unexpected order: %+v", got)
		}
	})

	t.Run("adjacent intervals yield no conflicts", func(t *testing.T) {
		t.Parallel()

		existing := []Interval{{ID: "a", Start: at(10, 0), End: at(11, 0)}}
		if got := DetectConflicts(existing, Interval{Start: at(11, 0), End: at(12, 0)}); len(got) != 0 {
			t.Fatalf("expected no conflicts, got %+v", got)
		}
	})

	t.Run("comparison is instant based across zones", func(t *testing.T) {
		t.Parallel()

		plus3 := time.FixedZone("UTC+3", 3*60*60)
		existing := []Interval{{ID: "a", Start: at(10, 0), End: at(11, 0)}}
		candidate := Interval{
			Start: time.Date(2026, time.May, 18, 13, 30, 0, 0, plus3),
			End:   time.Date(2026, time.May, 18, 14, 30, 0, 0, plus3),
		}
		if got := DetectConflicts(existing, candidate); len(got) != 1 {
			t.Fatalf("expected a conflict for 10:30Z, got %+v", got)
		}
	})
}
