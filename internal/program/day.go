package program

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NumDays is the length of the program.
const NumDays = 4

// Day is a 1-based program day number.
type Day int

const (
	FirstDay Day = 1
	LastDay  Day = NumDays
)

// ErrInvalidDay indicates a day outside 1..NumDays.
var ErrInvalidDay = errors.New("invalid day (must be 1-4)")

// Valid reports whether d is within the program.
func (d Day) Valid() bool {
	return d >= FirstDay && d <= LastDay
}

// Index returns the zero-based slot for d. Callers must check Valid first.
func (d Day) Index() int {
	return int(d) - 1
}

func (d Day) String() string {
	return fmt.Sprintf("Day %d", int(d))
}

// ParseDay parses a single day number strictly.
func ParseDay(s string) (Day, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidDay
	}
	d := Day(n)
	if !d.Valid() {
		return 0, ErrInvalidDay
	}
	return d, nil
}

// AllDays lists every program day in order.
func AllDays() []Day {
	days := make([]Day, 0, NumDays)
	for d := FirstDay; d <= LastDay; d++ {
		days = append(days, d)
	}
	return days
}

// DaySet is a sorted, duplicate-free set of days.
type DaySet []Day

// NewDaySet builds a DaySet from arbitrary days, dropping invalid entries.
func NewDaySet(days ...Day) DaySet {
	var seen [NumDays]bool
	for _, d := range days {
		if d.Valid() {
			seen[d.Index()] = true
		}
	}
	set := DaySet{}
	for i, ok := range seen {
		if ok {
			set = append(set, Day(i+1))
		}
	}
	return set
}

// ParseDaySet parses a comma separated list such as "1,3". Entries that are
// not valid days are ignored, so "1,9,x" yields {1}.
func ParseDaySet(csv string) DaySet {
	var days []Day
	for _, part := range strings.Split(csv, ",") {
		if d, err := ParseDay(part); err == nil {
			days = append(days, d)
		}
	}
	return NewDaySet(days...)
}

// Contains reports whether d is in the set.
func (s DaySet) Contains(d Day) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= d })
	return i < len(s) && s[i] == d
}

// Flags expands the set into one boolean per program day.
func (s DaySet) Flags() [NumDays]bool {
	var flags [NumDays]bool
	for _, d := range s {
		if d.Valid() {
			flags[d.Index()] = true
		}
	}
	return flags
}

func (s DaySet) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}
