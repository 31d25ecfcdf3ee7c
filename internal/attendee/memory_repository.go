package attendee

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wrc-program/attendance/internal/program"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Attendee
	byPhone map[string]string
	byUID   map[string]string
}

// NewMemoryRepository builds an in-memory attendee store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:    make(map[string]Attendee),
		byPhone: make(map[string]string),
		byUID:   make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, a Attendee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPhone[a.Phone]; exists {
		return ErrPhoneTaken
	}
	if _, exists := r.byUID[a.UID]; exists {
		return ErrUIDTaken
	}
	r.byID[a.ID] = a
	r.byPhone[a.Phone] = a.ID
	r.byUID[a.UID] = a.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Attendee{}, ErrNotFound
	}
	return a, nil
}

func (r *memoryRepository) FindByUID(_ context.Context, uid string) (Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUID[uid]
	if !ok {
		return Attendee{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return Attendee{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) List(_ context.Context, q ListQuery) ([]Attendee, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var allowed map[string]struct{}
	if q.Restricted {
		allowed = make(map[string]struct{}, len(q.RestrictTo))
		for _, id := range q.RestrictTo {
			allowed[id] = struct{}{}
		}
	}
	needle := strings.ToLower(q.Search)

	var matched []Attendee
	for _, a := range r.byID {
		if allowed != nil {
			if _, ok := allowed[a.ID]; !ok {
				continue
			}
		}
		if needle != "" && !strings.Contains(strings.ToLower(a.Name), needle) && !strings.Contains(a.Phone, needle) {
			continue
		}
		matched = append(matched, a)
	}
	sortNewestFirst(matched)

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < total {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

func (r *memoryRepository) ListByIDs(_ context.Context, ids []string) ([]Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Attendee
	for _, id := range ids {
		if a, ok := r.byID[id]; ok {
			out = append(out, a)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *memoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *memoryRepository) SetVoucher(_ context.Context, id string, collected bool, at *time.Time) (Attendee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return Attendee{}, ErrNotFound
	}
	a.VoucherCollected = collected
	a.VoucherCollectedAt = at
	r.byID[id] = a
	return a, nil
}

func (r *memoryRepository) SetImageURLs(_ context.Context, id string, urls [program.NumDays]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.DayImageURLs = urls
	r.byID[id] = a
	return nil
}

func sortNewestFirst(list []Attendee) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
