package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/habithub/internal/domain/habit"
)

type HabitsRepo struct {
	mu    sync.RWMutex
	items map[string]habit.Habit // {"id": habit}
}

func NewHabitsRepo() *HabitsRepo {
	return &HabitsRepo{
		items: make(map[string]habit.Habit),
	}
}

func (r *HabitsRepo) Create(_ context.Context, h habit.Habit) (habit.Habit, error) {
	r.mu.Lock()
	r.items[h.ID] = h
	r.mu.Unlock()

	return h, nil
}

func (r *HabitsRepo) GetByID(_ context.Context, id string) (habit.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.items[id]
	if !ok {
		return habit.Habit{}, habit.ErrNotFound
	}
	return h, nil
}

// List returns the owner's habits newest first, id desc on ties.
func (r *HabitsRepo) List(_ context.Context, ownerID string, filter habit.ListFilter) ([]habit.Habit, error) {
	r.mu.RLock()
	out := make([]habit.Habit, 0)
	for _, h := range r.items {
		if h.UserID == ownerID && filter.Matches(h) {
			out = append(out, h)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// Update writes the mutable fields; id, owner and createdAt are kept.
func (r *HabitsRepo) Update(_ context.Context, h habit.Habit) (habit.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[h.ID]
	if !ok {
		return habit.Habit{}, habit.ErrNotFound
	}

	cur.Name = h.Name
	cur.Description = h.Description
	cur.Frequency = h.Frequency
	cur.IsActive = h.IsActive
	cur.UpdatedAt = h.UpdatedAt
	r.items[h.ID] = cur

	return cur, nil
}

func (r *HabitsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return habit.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
