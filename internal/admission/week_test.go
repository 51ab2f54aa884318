package admission

import (
	"testing"
	"time"
)

func TestStartOfWeek(t *testing.T) {
	t.Parallel()

	monday := time.Date(2026, time.May, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
	}{
		{name: "monday midnight", now: monday},
		{name: "wednesday afternoon", now: time.Date(2026, time.May, 20, 15, 4, 5, 0, time.UTC)},
		{name: "sunday late evening", now: time.Date(2026, time.May, 24, 23, 59, 59, 0, time.UTC)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := StartOfWeek(tc.now, time.UTC); !got.Equal(monday) {
				t.Fatalf("StartOfWeek(%s) = %s, want %s", tc.now, got, monday)
			}
		})
	}

	t.Run("respects the supplied location", func(t *testing.T) {
		t.Parallel()

		istanbul := time.FixedZone("TRT", 3*60*60)
		// Sunday 22:00 UTC is already Monday 01:00 at UTC+3.
		now := time.Date(2026, time.May, 24, 22, 0, 0, 0, time.UTC)
		got := StartOfWeek(now, istanbul)
		want := time.Date(2026, time.May, 25, 0, 0, 0, 0, istanbul)
		if !got.Equal(want) {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestCurrentWeek(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.May, 21, 9, 0, 0, 0, time.UTC)
	window := CurrentWeek(now, nil)

	if !window.Start.Equal(time.Date(2026, time.May, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", window.Start)
	}
	if !window.End.Equal(time.Date(2026, time.May, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", window.End)
	}
	if !window.Contains(window.Start) {
		t.Fatalf("window must include its start")
	}
	if window.Contains(window.End) {
		t.Fatalf("window must exclude its end")
	}
}
