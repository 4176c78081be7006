package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

const (
	opRegister     = "register"
	opLogin        = "login"
	opAuthenticate = "authenticate"
	opProfile      = "profile"

	// maxAPIKeyAttempts bounds regeneration when the store reports an api key collision.
	maxAPIKeyAttempts = 3

	dummyPassword = "identity-service-timing-equalizer"
)

// TokenService issues and parses session token pairs.
type TokenService interface {
	IssuePair(accountID, email string) (domain.TokenPair, error)
	ParseToken(token string, expected domain.TokenType) (*auth.Claims, error)
}

// RegisterInput carries pre-validated registration fields. An empty
// Username defaults to the email local part.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// AuthResult is returned from Register and Login.
type AuthResult struct {
	Account domain.AccountSummary
	Tokens  domain.TokenPair
}

// AuthService coordinates registration, login and session validation.
type AuthService struct {
	accounts   repository.AccountRepository
	hasher     auth.PasswordHasher
	tokens     TokenService
	apiKeys    *auth.APIKeyGenerator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	// dummyDigest is verified against when an email is unknown so login
	// latency does not reveal whether the account exists.
	dummyDigest string
}

// AuthDependencies encapsulates collaborators for the auth service. Hasher,
// Tokens and APIKeys are built from config when nil.
type AuthDependencies struct {
	Accounts   repository.AccountRepository
	Hasher     auth.PasswordHasher
	Tokens     TokenService
	APIKeys    *auth.APIKeyGenerator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	if deps.Accounts == nil {
		return nil, errors.New("accounts repository is required")
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewBcryptHasher(cfg.BcryptCost)
	}
	if deps.Tokens == nil {
		tokens, err := auth.NewTokenManager(auth.TokenOptions{
			AccessSecret:  cfg.JWTSecret,
			RefreshSecret: cfg.JWTRefreshSecret,
			AccessTTL:     cfg.AccessTokenTTL(),
			RefreshTTL:    cfg.RefreshTokenTTL(),
			Issuer:        cfg.JWTIssuer,
		})
		if err != nil {
			return nil, err
		}
		deps.Tokens = tokens
	}
	if deps.APIKeys == nil {
		deps.APIKeys = auth.NewAPIKeyGenerator(cfg.APIKeyPrefix)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	dummy, err := deps.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		accounts:    deps.Accounts,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		apiKeys:     deps.APIKeys,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
		dummyDigest: dummy,
	}, nil
}

// Register creates a new account and issues its first token pair.
//
// The email lookup is only a fast path; the store's uniqueness constraint is
// authoritative, and a duplicate reported by Create also yields
// ErrAccountExists. If token issuance fails after the account was stored,
// the returned result still carries the account summary alongside an
// ErrTokenIssuanceFailed error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if _, err := s.accounts.FindByEmail(ctx, in.Email); err == nil {
		s.metrics.RecordAuth(opRegister, observability.ResultFailure)
		return nil, apperrors.NewAccountExists()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.dependencyFailure(opRegister, err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.RecordAuth(opRegister, observability.ResultError)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperrors.NewValidationError("password is too long", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = domain.DefaultUsername(in.Email)
	}

	account, err := s.createAccount(ctx, in.Email, digest, username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID))
	s.publishRegistered(ctx, account)

	result := &AuthResult{Account: account.Summary()}
	tokens, err := s.tokens.IssuePair(account.ID, account.Email)
	if err != nil {
		s.metrics.RecordAuth(opRegister, observability.ResultError)
		s.logger.Error("token issuance failed after account creation",
			zap.String("account_id", account.ID), zap.Error(err))
		return result, apperrors.NewTokenIssuanceFailed(err)
	}
	result.Tokens = tokens

	s.metrics.RecordAuth(opRegister, observability.ResultSuccess)
	return result, nil
}

func (s *AuthService) createAccount(ctx context.Context, email, digest, username string) (*domain.Account, error) {
	for attempt := 1; attempt <= maxAPIKeyAttempts; attempt++ {
		apiKey, err := s.apiKeys.Generate()
		if err != nil {
			s.metrics.RecordAuth(opRegister, observability.ResultError)
			return nil, apperrors.NewInternalError(err)
		}

		account := &domain.Account{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: digest,
			Username:     username,
			APIKey:       apiKey,
			Membership:   domain.MembershipFree,
		}

		err = s.accounts.Create(ctx, account)
		switch {
		case err == nil:
			return account, nil
		case errors.Is(err, repository.ErrDuplicateEmail):
			s.metrics.RecordAuth(opRegister, observability.ResultFailure)
			return nil, apperrors.NewAccountExists()
		case errors.Is(err, repository.ErrDuplicateAPIKey):
			s.logger.Warn("api key collision; regenerating", zap.Int("attempt", attempt))
		default:
			return nil, s.dependencyFailure(opRegister, err)
		}
	}

	s.metrics.RecordAuth(opRegister, observability.ResultError)
	return nil, apperrors.NewInternalError(errors.New("could not generate a unique api key"))
}

// Login authenticates an account by email and password. Unknown email and
// wrong password produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, s.dependencyFailure(opLogin, err)
		}
		s.hasher.Verify(password, s.dummyDigest)
		s.metrics.RecordAuth(opLogin, observability.ResultFailure)
		return nil, apperrors.NewInvalidCredentials()
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.metrics.RecordAuth(opLogin, observability.ResultFailure)
		return nil, apperrors.NewInvalidCredentials()
	}

	tokens, err := s.tokens.IssuePair(account.ID, account.Email)
	if err != nil {
		s.metrics.RecordAuth(opLogin, observability.ResultError)
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordAuth(opLogin, observability.ResultSuccess)
	return &AuthResult{Account: account.Summary(), Tokens: tokens}, nil
}

// GetProfile returns the profile view for an account id.
func (s *AuthService) GetProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	account, err := s.liveAccount(ctx, opProfile, accountID)
	if err != nil {
		return nil, err
	}
	profile := account.Profile()
	return &profile, nil
}

// ValidateToken verifies an access token and loads the account it names.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Account, error) {
	claims, err := s.tokens.ParseToken(token, domain.TokenTypeAccess)
	if err != nil {
		return nil, apperrors.NewInvalidOrExpiredToken(err)
	}

	return s.liveAccount(ctx, opAuthenticate, claims.Subject)
}

// liveAccount checks id against the authoritative store before loading it,
// so a cached copy never outlives a deleted account.
func (s *AuthService) liveAccount(ctx context.Context, op, id string) (*domain.Account, error) {
	exists, err := s.accounts.Exists(ctx, id)
	if err != nil {
		return nil, s.dependencyFailure(op, err)
	}
	if !exists {
		return nil, apperrors.NewInvalidSession()
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidSession()
		}
		return nil, s.dependencyFailure(op, err)
	}
	return account, nil
}

// Authenticate implements auth.Authenticator for the bearer guard.
func (s *AuthService) Authenticate(ctx context.Context, bearerToken string) (*domain.Account, error) {
	account, err := s.ValidateToken(ctx, bearerToken)
	switch {
	case err == nil:
		s.metrics.RecordAuth(opAuthenticate, observability.ResultSuccess)
	case errors.Is(err, apperrors.ErrDependencyFailure):
		// already counted by dependencyFailure
	default:
		s.metrics.RecordAuth(opAuthenticate, observability.ResultFailure)
	}
	return account, err
}

func (s *AuthService) publishRegistered(ctx context.Context, account *domain.Account) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccountRegistered,
		AccountID: account.ID,
		Timestamp: s.now().UTC(),
		Payload: events.AccountRegisteredPayload{
			Email:      account.Email,
			Username:   account.Username,
			Membership: account.Membership,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish account_registered failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *AuthService) dependencyFailure(op string, err error) error {
	s.metrics.RecordAuth(op, observability.ResultError)
	s.logger.Error("credential store failure", zap.String("operation", op), zap.Error(err))
	return apperrors.NewDependencyFailure(err)
}
