package templates

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string]Template
	now    func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byUser: make(map[string]Template),
		now:    time.Now,
	}
}

func (r *MemoryRepo) Save(_ context.Context, t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Resume = t.Resume.Clone()
	t.UpdatedAt = r.now().UTC()
	r.byUser[t.UserID] = t
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, userID string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byUser[userID]
	if !ok {
		return Template{}, ErrNotFound
	}
	t.Resume = t.Resume.Clone()
	return t, nil
}

func (r *MemoryRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[userID]; !ok {
		return ErrNotFound
	}
	delete(r.byUser, userID)
	return nil
}
