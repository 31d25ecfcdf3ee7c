package program

import (
	"testing"
	"time"

	"github.com/wrc-program/attendance/internal/clock"
)

func newTestSchedule(t *testing.T, now time.Time) *Schedule {
	t.Helper()
	s, err := NewSchedule(DefaultDates, time.UTC, clock.Fake(now))
	if err != nil {
		t.Fatalf("new schedule: %v", err)
	}
	return s
}

func TestScheduleIsReachedIgnoresTimeOfDay(t *testing.T) {
	s := newTestSchedule(t, time.Date(2025, 12, 12, 0, 0, 1, 0, time.UTC))

	if !s.IsReached(1) || !s.IsReached(2) {
		t.Fatalf("expected days 1 and 2 reached")
	}
	if s.IsReached(3) || s.IsReached(4) {
		t.Fatalf("expected days 3 and 4 not reached")
	}
	if day, ok := s.Today(); !ok || day != 2 {
		t.Fatalf("expected today to be day 2, got %d (%v)", day, ok)
	}
}

func TestScheduleBeforeProgram(t *testing.T) {
	s := newTestSchedule(t, time.Date(2025, 12, 10, 23, 59, 0, 0, time.UTC))
	if s.IsReached(1) {
		t.Fatalf("day 1 should not be reached the evening before")
	}
	if _, ok := s.Today(); ok {
		t.Fatalf("no program day expected")
	}
	if got := len(s.ReachedDays()); got != 0 {
		t.Fatalf("expected no reached days, got %d", got)
	}
}

func TestScheduleUsesLocation(t *testing.T) {
	lagos := time.FixedZone("WAT", 1*60*60)
	// 23:30 UTC on the 10th is already 00:30 on the 11th in WAT.
	fc := clock.Fake(time.Date(2025, 12, 10, 23, 30, 0, 0, time.UTC))
	s, err := NewSchedule(DefaultDates, lagos, fc)
	if err != nil {
		t.Fatalf("new schedule: %v", err)
	}
	if !s.IsReached(1) {
		t.Fatalf("expected day 1 reached in WAT")
	}
}

func TestNewScheduleRejectsBadDates(t *testing.T) {
	if _, err := NewSchedule([]string{"2025-12-11"}, time.UTC, nil); err == nil {
		t.Fatalf("expected error for short schedule")
	}
	if _, err := NewSchedule([]string{"2025-12-11", "2025-12-11", "2025-12-13", "2025-12-14"}, time.UTC, nil); err == nil {
		t.Fatalf("expected error for repeated date")
	}
	if _, err := NewSchedule([]string{"2025-12-11", "nope", "2025-12-13", "2025-12-14"}, time.UTC, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDayNames(t *testing.T) {
	s := newTestSchedule(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	if got := s.DayName(1); got != "Thursday" {
		t.Fatalf("expected Thursday, got %s", got)
	}
	if got := s.FormatDate(4); got != "December 14, 2025" {
		t.Fatalf("unexpected date %q", got)
	}
}

func TestParseDaySet(t *testing.T) {
	set := ParseDaySet("3, 1,9,x,3")
	if set.String() != "1,3" {
		t.Fatalf("expected 1,3 got %s", set.String())
	}
	if !set.Contains(3) || set.Contains(2) {
		t.Fatalf("contains mismatch for %v", set)
	}
	if len(ParseDaySet("")) != 0 {
		t.Fatalf("expected empty set")
	}
	flags := set.Flags()
	if !flags[0] || flags[1] || !flags[2] || flags[3] {
		t.Fatalf("unexpected flags %v", flags)
	}
}

func TestParseDay(t *testing.T) {
	if d, err := ParseDay("4"); err != nil || d != 4 {
		t.Fatalf("expected day 4, got %d %v", d, err)
	}
	for _, raw := range []string{"0", "5", "", "two"} {
		if _, err := ParseDay(raw); err != ErrInvalidDay {
			t.Fatalf("ParseDay(%q): expected ErrInvalidDay, got %v", raw, err)
		}
	}
}
