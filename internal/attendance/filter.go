package attendance

import (
	"context"
	"fmt"
	"sort"

	"github.com/wrc-program/attendance/internal/program"
)

// Match is the outcome of a day-set filter. When All is set no filtering
// applies and every attendee qualifies.
type Match struct {
	All bool
	ids map[string]struct{}
}

// Contains reports whether the attendee qualifies.
func (m Match) Contains(attendeeID string) bool {
	if m.All {
		return true
	}
	_, ok := m.ids[attendeeID]
	return ok
}

// Empty reports whether no attendee can qualify.
func (m Match) Empty() bool {
	return !m.All && len(m.ids) == 0
}

// IDs returns the qualifying attendee ids in sorted order. It is nil when All is set.
func (m Match) IDs() []string {
	if m.All {
		return nil
	}
	ids := make([]string, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Filter computes which attendees were present on every day of a set.
type Filter struct {
	store Store
}

// NewFilter builds a Filter over store.
func NewFilter(store Store) *Filter {
	return &Filter{store: store}
}

// FilterByDays intersects the per-day present sets of days. An empty set
// matches everyone.
func (f *Filter) FilterByDays(ctx context.Context, days program.DaySet) (Match, error) {
	if len(days) == 0 {
		return Match{All: true}, nil
	}

	var result map[string]struct{}
	for _, day := range days {
		ids, err := f.store.AttendeesPresentOn(ctx, day)
		if err != nil {
			return Match{}, fmt.Errorf("attendees present on day %d: %w", day, err)
		}
		present := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if result == nil {
				present[id] = struct{}{}
				continue
			}
			if _, ok := result[id]; ok {
				present[id] = struct{}{}
			}
		}
		result = present
		if len(result) == 0 {
			break
		}
	}
	return Match{ids: result}, nil
}
