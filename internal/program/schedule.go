package program

import (
	"fmt"
	"strings"
	"time"

	"github.com/wrc-program/attendance/internal/clock"
)

const dateLayout = "2006-01-02"

// DefaultDates is the calendar of the December 2025 program.
var DefaultDates = []string{"2025-12-11", "2025-12-12", "2025-12-13", "2025-12-14"}

// Schedule maps program days onto calendar dates in a single time zone.
//
// Day windows are whole-day: a day is reached from 00:00 local time on its
// date onwards, whatever the time of day.
type Schedule struct {
	dates [NumDays]time.Time
	loc   *time.Location
	clock clock.Clock
}

// NewSchedule parses exactly NumDays dates (YYYY-MM-DD) in loc. Dates must be
// strictly increasing.
func NewSchedule(dates []string, loc *time.Location, clk clock.Clock) (*Schedule, error) {
	if len(dates) != NumDays {
		return nil, fmt.Errorf("program schedule needs %d dates, got %d", NumDays, len(dates))
	}
	if loc == nil {
		loc = time.Local
	}
	if clk == nil {
		clk = clock.Real()
	}
	s := &Schedule{loc: loc, clock: clk}
	for i, raw := range dates {
		t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
		if err != nil {
			return nil, fmt.Errorf("parse program date %q: %w", raw, err)
		}
		if i > 0 && !t.After(s.dates[i-1]) {
			return nil, fmt.Errorf("program date %q is not after %s", raw, s.dates[i-1].Format(dateLayout))
		}
		s.dates[i] = t
	}
	return s, nil
}

// Location returns the schedule's time zone.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// DateOf returns midnight of the given day's date.
func (s *Schedule) DateOf(d Day) time.Time {
	if !d.Valid() {
		return time.Time{}
	}
	return s.dates[d.Index()]
}

// IsReached reports whether today's date is on or after d's date.
func (s *Schedule) IsReached(d Day) bool {
	if !d.Valid() {
		return false
	}
	return !s.today().Before(s.dates[d.Index()])
}

// Today returns the program day whose date is today, if any.
func (s *Schedule) Today() (Day, bool) {
	today := s.today()
	for i, date := range s.dates {
		if date.Equal(today) {
			return Day(i + 1), true
		}
	}
	return 0, false
}

// ReachedDays lists the days whose date has come.
func (s *Schedule) ReachedDays() DaySet {
	var days []Day
	for _, d := range AllDays() {
		if s.IsReached(d) {
			days = append(days, d)
		}
	}
	return NewDaySet(days...)
}

// DayName is the weekday of d, e.g. "Thursday".
func (s *Schedule) DayName(d Day) string {
	if !d.Valid() {
		return d.String()
	}
	return s.dates[d.Index()].Weekday().String()
}

// FormatDate renders d's date as "December 11, 2025".
func (s *Schedule) FormatDate(d Day) string {
	if !d.Valid() {
		return ""
	}
	return s.dates[d.Index()].Format("January 2, 2006")
}

func (s *Schedule) today() time.Time {
	now := s.clock.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}
