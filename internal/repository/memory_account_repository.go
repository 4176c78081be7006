package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// MemoryAccountRepository is an in-process AccountRepository. It enforces the
// same uniqueness rules as the Postgres schema and is used when no database
// is configured.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	byID     map[string]domain.Account
	byEmail  map[string]string
	byAPIKey map[string]string
	now      func() time.Time
}

// NewMemoryAccountRepository returns an empty store.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:     make(map[string]domain.Account),
		byEmail:  make(map[string]string),
		byAPIKey: make(map[string]string),
		now:      time.Now,
	}
}

func (r *MemoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return ErrDuplicateEmail
	}
	if _, exists := r.byAPIKey[account.APIKey]; exists {
		return ErrDuplicateAPIKey
	}

	now := r.now().UTC()
	account.Balance = 0
	account.CreatedAt = now
	account.UpdatedAt = now

	r.byID[account.ID] = *account
	r.byEmail[account.Email] = account.ID
	r.byAPIKey[account.APIKey] = account.ID
	return nil
}

func (r *MemoryAccountRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[id]
	return ok, nil
}

func (r *MemoryAccountRepository) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (r *MemoryAccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	account := r.byID[id]
	return &account, nil
}

// Delete removes an account. Only tests use it.
func (r *MemoryAccountRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byEmail, account.Email)
	delete(r.byAPIKey, account.APIKey)
}

// Len returns the number of stored accounts.
func (r *MemoryAccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
