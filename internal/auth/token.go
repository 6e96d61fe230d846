package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/vodhub/internal/domain"
)

// ErrMissingSecret is returned when tokens are requested without a configured signing secret.
var ErrMissingSecret = errors.New("auth: signing secret not configured")

// TokenUse tells access tokens apart from refresh tokens.
type TokenUse string

const (
	UseAccess  TokenUse = "access"
	UseRefresh TokenUse = "refresh"
)

// TokenManager signs and verifies HS256 JWTs carrying an identity claim.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithTokenClock overrides the time source used for iat/exp and validation.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) { tm.now = now }
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	tm := &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Claims describes JWT payload.
type Claims struct {
	Username string              `json:"username,omitempty"`
	Role     domain.Role         `json:"role"`
	Kind     domain.IdentityKind `json:"type"`
	Use      TokenUse            `json:"use"`
	jwt.RegisteredClaims
}

// Identity returns the identity claim without token metadata.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{Username: c.Username, Role: c.Role, Kind: c.Kind}
}

// Secured reports whether a signing secret is configured.
func (tm *TokenManager) Secured() bool {
	return len(tm.secret) > 0
}

// AccessTTL returns the lifetime of access tokens.
func (tm *TokenManager) AccessTTL() time.Duration { return tm.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (tm *TokenManager) RefreshTTL() time.Duration { return tm.refreshTTL }

// SignAccess mints a short-lived access token.
func (tm *TokenManager) SignAccess(id domain.Identity) (string, time.Time, error) {
	return tm.Sign(id, UseAccess, tm.accessTTL)
}

// SignRefresh mints a long-lived refresh token.
func (tm *TokenManager) SignRefresh(id domain.Identity) (string, time.Time, error) {
	return tm.Sign(id, UseRefresh, tm.refreshTTL)
}

// Sign builds and signs a JWT for the identity that expires after ttl.
func (tm *TokenManager) Sign(id domain.Identity, use TokenUse, ttl time.Duration) (string, time.Time, error) {
	if !tm.Secured() {
		return "", time.Time{}, ErrMissingSecret
	}

	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Username: id.Username,
		Role:     id.Role,
		Kind:     id.Kind,
		Use:      use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify validates signature and expiry. Any failure yields false; callers must not try
// to tell malformed, forged and expired tokens apart.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, bool) {
	if !tm.Secured() || tokenStr == "" {
		return nil, false
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, false
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || !claims.Role.Valid() {
		return nil, false
	}
	return claims, true
}
