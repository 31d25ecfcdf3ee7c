package attendance

import (
	"context"
	"sort"
	"sync"

	"github.com/wrc-program/attendance/internal/program"
)

type logKey struct {
	attendeeID string
	day        program.Day
}

type inMemoryStore struct {
	mu   sync.RWMutex
	logs map[logKey]Log
}

// NewInMemory creates a concurrency-safe in-memory store for development and tests.
func NewInMemory() Store {
	return &inMemoryStore{logs: make(map[logKey]Log)}
}

func (s *inMemoryStore) Insert(_ context.Context, log Log) (Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := logKey{attendeeID: log.AttendeeID, day: log.Day}
	if existing, ok := s.logs[key]; ok {
		return existing, ErrAlreadyRecorded
	}
	s.logs[key] = log
	return log, nil
}

func (s *inMemoryStore) Find(_ context.Context, attendeeID string, day program.Day) (Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[logKey{attendeeID: attendeeID, day: day}]
	if !ok || log.Status != StatusPresent {
		return Log{}, ErrNotFound
	}
	return log, nil
}

func (s *inMemoryStore) ListForAttendee(_ context.Context, attendeeID string) ([]Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Log
	for _, day := range program.AllDays() {
		if log, ok := s.logs[logKey{attendeeID: attendeeID, day: day}]; ok && log.Status == StatusPresent {
			out = append(out, log)
		}
	}
	return out, nil
}

func (s *inMemoryStore) AttendeesPresentOn(_ context.Context, day program.Day) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for key, log := range s.logs {
		if key.day == day && log.Status == StatusPresent {
			ids = append(ids, key.attendeeID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *inMemoryStore) PresentDays(_ context.Context, attendeeIDs []string) (map[string]program.DaySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]program.DaySet, len(attendeeIDs))
	for _, id := range attendeeIDs {
		var days []program.Day
		for _, day := range program.AllDays() {
			if log, ok := s.logs[logKey{attendeeID: id, day: day}]; ok && log.Status == StatusPresent {
				days = append(days, day)
			}
		}
		if len(days) > 0 {
			out[id] = program.NewDaySet(days...)
		}
	}
	return out, nil
}

func (s *inMemoryStore) CountByDay(_ context.Context) (map[program.Day]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[program.Day]int, program.NumDays)
	for key, log := range s.logs {
		if log.Status == StatusPresent {
			counts[key.day]++
		}
	}
	return counts, nil
}
