package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/domain"
)

const accountCacheKeyPrefix = "identity:account:"

// cachedAccount is the Redis representation. It has no password digest
// field; only the token guard reads through the cache.
type cachedAccount struct {
	ID         string                `json:"id"`
	Email      string                `json:"email"`
	Username   string                `json:"username"`
	APIKey     string                `json:"api_key"`
	Membership domain.MembershipTier `json:"membership"`
	Balance    float64               `json:"balance"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// CachedAccountRepository serves FindByID from Redis and falls through to the
// wrapped repository on miss or cache error. Accounts returned from the cache
// have an empty PasswordHash. Exists is never cached; a negative answer
// evicts the cached entry.
type CachedAccountRepository struct {
	next   AccountRepository
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAccountRepository wraps next with a read-through cache.
func NewCachedAccountRepository(next AccountRepository, client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedAccountRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedAccountRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (r *CachedAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.next.Create(ctx, account)
}

func (r *CachedAccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := r.next.Exists(ctx, id)
	if err != nil || exists {
		return exists, err
	}
	if delErr := r.client.Del(ctx, accountCacheKeyPrefix+id).Err(); delErr != nil {
		r.logger.Warn("account cache evict failed", zap.String("account_id", id), zap.Error(delErr))
	}
	return false, nil
}

func (r *CachedAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *CachedAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	key := accountCacheKeyPrefix + id

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedAccount
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached.toDomain(), nil
		}
		r.logger.Warn("discarding undecodable cached account", zap.String("account_id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("account cache read failed", zap.String("account_id", id), zap.Error(err))
	}

	account, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(fromDomain(account))
	if err == nil {
		err = r.client.Set(ctx, key, payload, r.ttl).Err()
	}
	if err != nil {
		r.logger.Warn("account cache write failed", zap.String("account_id", id), zap.Error(err))
	}
	return account, nil
}

func fromDomain(a *domain.Account) cachedAccount {
	return cachedAccount{
		ID:         a.ID,
		Email:      a.Email,
		Username:   a.Username,
		APIKey:     a.APIKey,
		Membership: a.Membership,
		Balance:    a.Balance,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func (c cachedAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:         c.ID,
		Email:      c.Email,
		Username:   c.Username,
		APIKey:     c.APIKey,
		Membership: c.Membership,
		Balance:    c.Balance,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
