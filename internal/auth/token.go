package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/identity-service/internal/domain"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

var (
	// ErrInvalidToken is returned for any token that fails parsing, signature, or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType is returned when a refresh token is presented where an access token is expected, or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenOptions configures a TokenManager. Access and refresh tokens are
// signed with separate secrets.
type TokenOptions struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(opts TokenOptions) (*TokenManager, error) {
	if opts.AccessSecret == "" || opts.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	if opts.AccessSecret == opts.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenManager{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		issuer:        opts.Issuer,
		now:           opts.Now,
	}, nil
}

// Claims describes JWT payload.
type Claims struct {
	Email string           `json:"email"`
	Type  domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// IssuePair signs an access and a refresh token for the account.
func (tm *TokenManager) IssuePair(accountID, email string) (domain.TokenPair, error) {
	access, accessExp, err := tm.sign(accountID, email, domain.TokenTypeAccess)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := tm.sign(accountID, email, domain.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (tm *TokenManager) sign(accountID, email string, typ domain.TokenType) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttlFor(typ))
	claims := &Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secretFor(typ))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates signature, expiry and type, and returns the claims.
// Errors wrap ErrInvalidToken, ErrTokenExpired or ErrWrongTokenType.
func (tm *TokenManager) ParseToken(tokenStr string, expected domain.TokenType) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secretFor(expected), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expected {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (tm *TokenManager) ttlFor(typ domain.TokenType) time.Duration {
	if typ == domain.TokenTypeRefresh {
		return tm.refreshTTL
	}
	return tm.accessTTL
}

func (tm *TokenManager) secretFor(typ domain.TokenType) []byte {
	if typ == domain.TokenTypeRefresh {
		return tm.refreshSecret
	}
	return tm.accessSecret
}
