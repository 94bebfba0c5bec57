// Package memory holds in-process repositories used for STORAGE=memory and
// in tests. They honour the same contracts as the postgres repos.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/habithub/internal/domain/user"
	"github.com/google/uuid"
)

type UsersRepo struct {
	mu      sync.RWMutex
	byEmail map[string]user.User // normalized email -> user
	now     func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byEmail: make(map[string]user.User),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FindByEmail never returns the password hash.
func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := r.FindByEmailWithPassword(ctx, email)
	if err != nil {
		return user.User{}, err
	}
	return u.WithoutPassword(), nil
}

func (r *UsersRepo) FindByEmailWithPassword(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// Create enforces email uniqueness under the write lock, so concurrent
// registrations for one address yield exactly one user.
func (r *UsersRepo) Create(_ context.Context, name, email, passwordHash string) (user.User, error) {
	key := user.NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return user.User{}, user.ErrEmailTaken
	}

	now := r.now()
	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        key,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byEmail[key] = u

	return u.WithoutPassword(), nil
}

func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}
