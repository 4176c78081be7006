package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/spec-kit/identity-service/internal/domain"
)

// Unique constraint names from the accounts migration.
const (
	emailConstraint  = "accounts_email_key"
	apiKeyConstraint = "accounts_api_key_key"
)

// AccountRepository is the credential store contract. Create must enforce
// email and api key uniqueness itself and report violations with
// ErrDuplicateEmail or ErrDuplicateAPIKey. Exists always answers from the
// authoritative store, even behind a cache.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// DBTX is the subset of pgxpool.Pool used by the Postgres repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type accountRepository struct {
	db DBTX
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (id, email, password_hash, username, api_key, membership)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING balance, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Username,
		account.APIKey,
		string(account.Membership),
	).Scan(&account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case emailConstraint:
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("account_id", account.ID).
				Wrap(ErrDuplicateEmail)
		case apiKeyConstraint:
			return oops.Code("ACCOUNT_DUPLICATE_API_KEY").
				With("account_id", account.ID).
				Wrap(ErrDuplicateAPIKey)
		}
	}
	return oops.Code("ACCOUNT_CREATE_FAILED").
		With("operation", "insert account").
		With("account_id", account.ID).
		Wrap(err)
}

func (r *accountRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_CHECK_FAILED").
			With("account_id", id).
			Wrap(err)
	}
	return exists, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, email, password_hash, username, api_key, membership, balance, created_at, updated_at
        FROM accounts WHERE id=$1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("account_id", id).
			Wrap(err)
	}
	return account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
        SELECT id, email, password_hash, username, api_key, membership, balance, created_at, updated_at
        FROM accounts WHERE email=$1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account    domain.Account
		membership string
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Username,
		&account.APIKey,
		&membership,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Membership = domain.MembershipTier(membership)
	return &account, nil
}
