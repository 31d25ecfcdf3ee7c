package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/wrc-program/attendance/internal/clock"
)

// Decision is the outcome of a single Allow call. RetryAfter is set only
// when the request was denied.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter admits at most Limit requests per key within each fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

const pruneEvery = 1024

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a fixed-window limiter held in process memory. It suits a single
// instance; use Redis when several instances share traffic.
type Memory struct {
	limit  int
	period time.Duration
	clock  clock.Clock

	mu      sync.Mutex
	windows map[string]*window
	calls   int
}

func NewMemory(limit int, period time.Duration, clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real()
	}
	return &Memory{limit: limit, period: period, clock: clk, windows: make(map[string]*window)}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls%pruneEvery == 0 {
		m.prune(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.period)}
		m.windows[key] = w
	}
	if w.count >= m.limit {
		return Decision{Limit: m.limit, ResetAt: w.resetAt, RetryAfter: w.resetAt.Sub(now)}, nil
	}
	w.count++
	return Decision{Allowed: true, Limit: m.limit, Remaining: m.limit - w.count, ResetAt: w.resetAt}, nil
}

func (m *Memory) prune(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
