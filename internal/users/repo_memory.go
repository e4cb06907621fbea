package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users: make(map[string]User),
		now:   time.Now,
	}
}

func (r *MemoryRepo) Upsert(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.LastLoginAt = now
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, userID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}
