package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/vodhub/internal/auth"
	"github.com/spec-kit/vodhub/internal/config"
	"github.com/spec-kit/vodhub/internal/domain"
	"github.com/spec-kit/vodhub/internal/events"
	"github.com/spec-kit/vodhub/internal/repository"
)

// Credentials is a login attempt. Username is ignored in local mode.
type Credentials struct {
	Username string
	Password string
}

// Session is the token pair handed to a caller. RefreshToken is empty after a refresh that
// did not rotate; the caller keeps its current refresh token in that case.
type Session struct {
	Identity        domain.Identity
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// ExpiresIn returns the access token expiry as epoch seconds.
func (s *Session) ExpiresIn() int64 {
	return s.AccessExpiresAt.Unix()
}

// AuthService issues, refreshes and revokes sessions.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	registry   *auth.RefreshRegistry
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	localMode     bool
	ownerUsername string
	ownerPassword string
	bcryptCost    int
	rotateBefore  time.Duration

	// mu serializes registry writes that must happen as one step (revoke-before-issue on
	// login, store-then-revoke on rotation).
	mu sync.Mutex
}

// AuthDependencies encapsulates collaborators for the auth service. Users may be nil in
// local mode.
type AuthDependencies struct {
	Users      repository.UserRepository
	Tokens     *auth.TokenManager
	Registry   *auth.RefreshRegistry
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:         deps.Users,
		tokens:        deps.Tokens,
		registry:      deps.Registry,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		now:           deps.Clock,
		localMode:     cfg.Storage.LocalMode(),
		ownerUsername: cfg.Auth.OwnerUsername,
		ownerPassword: cfg.Auth.OwnerPassword,
		bcryptCost:    cfg.Auth.BcryptCost,
		rotateBefore:  cfg.Auth.RotateBefore(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Login authenticates the caller and starts a session, ending any earlier session of the
// same identity first.
func (s *AuthService) Login(ctx context.Context, cred Credentials) (*Session, error) {
	if !s.tokens.Secured() {
		return nil, auth.ErrMissingSecret
	}

	id, err := s.authenticate(ctx, cred)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrAccountBanned) {
			s.publish(ctx, events.EventLoginFailed, events.Actor{Username: cred.Username},
				events.LoginFailedPayload{Reason: err.Error()})
		}
		return nil, err
	}

	s.mu.Lock()
	revoked := s.registry.RevokeAllForIdentity(id.Username)
	sess, err := s.issue(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if revoked > 0 {
		s.publish(ctx, events.EventSessionsRevoked, events.ActorOf(id),
			events.SessionsRevokedPayload{Reason: "relogin", Revoked: revoked})
	}
	s.publish(ctx, events.EventSessionCreated, events.ActorOf(id), nil)
	return sess, nil
}

// Refresh mints a new access token from a registered refresh token. The refresh token is
// rotated once its remaining lifetime drops under the rotation threshold.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrMalformedRequest
	}

	rec, ok := s.registry.Verify(refreshToken)
	if !ok {
		s.reject(ctx, domain.Identity{}, "not_registered")
		return nil, ErrInvalidToken
	}

	claims, ok := s.tokens.Verify(refreshToken)
	if !ok || claims.Use != auth.UseRefresh {
		s.registry.Revoke(refreshToken)
		s.reject(ctx, rec.Identity, "signature")
		return nil, ErrInvalidToken
	}

	id := rec.Identity
	if err := s.ensureAccountActive(ctx, id); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.registry.Revoke(refreshToken)
			s.reject(ctx, id, "account_inactive")
		}
		return nil, err
	}

	access, accessExp, err := s.tokens.SignAccess(id)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	sess := &Session{Identity: id, AccessToken: access, AccessExpiresAt: accessExp}

	if rec.Remaining(s.now()) < s.rotateBefore {
		rotated, err := s.rotate(refreshToken, id)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				s.reject(ctx, id, "revoked_during_refresh")
			}
			return nil, err
		}
		sess.RefreshToken = rotated
		s.publish(ctx, events.EventSessionRotated, events.ActorOf(id), nil)
	}

	s.publish(ctx, events.EventSessionRefreshed, events.ActorOf(id), nil)
	return sess, nil
}

// Logout revokes refreshToken when given. It never fails.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	rec, ok := s.registry.Verify(refreshToken)
	s.registry.Revoke(refreshToken)
	if ok {
		s.publish(ctx, events.EventSessionEnded, events.ActorOf(rec.Identity), nil)
	}
}

// ChangePassword replaces a db user's password and ends all of their sessions.
func (s *AuthService) ChangePassword(ctx context.Context, id domain.Identity, newPassword string) error {
	if s.localMode || id.Local() || s.users == nil {
		return ErrUnsupported
	}
	if newPassword == "" || id.Username == "" {
		return ErrMalformedRequest
	}
	if s.isOwner(id.Username) {
		return ErrForbidden
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id.Username, hash); err != nil {
		return err
	}

	s.revokeSessions(ctx, id, "password_changed")
	return nil
}

// CreateUser registers a db-mode account.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	if s.localMode || s.users == nil {
		return nil, ErrUnsupported
	}
	if username == "" || password == "" {
		return nil, ErrMalformedRequest
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, ErrMalformedRequest
	}
	if role == domain.RoleOwner {
		return nil, ErrForbidden
	}
	if s.isOwner(username) {
		return nil, repository.ErrUserExists
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("username", username), zap.String("role", string(role)))
	return user, nil
}

// SetBanned bans or unbans an account on behalf of actor. Banning ends the account's
// sessions. Only the owner may ban admins; nobody may ban the owner.
func (s *AuthService) SetBanned(ctx context.Context, actor domain.Identity, username string, banned bool) error {
	if s.localMode || s.users == nil {
		return ErrUnsupported
	}
	if username == "" {
		return ErrMalformedRequest
	}
	if s.isOwner(username) || username == actor.Username {
		return ErrForbidden
	}

	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if target.Role != domain.RoleUser && actor.Role != domain.RoleOwner {
		return ErrForbidden
	}
	if err := s.users.SetBanned(ctx, username, banned); err != nil {
		return err
	}

	if banned {
		s.revokeSessions(ctx, domain.Identity{Username: username, Role: target.Role, Kind: domain.IdentityDB}, "banned")
	}
	return nil
}

// ActiveSessions returns the number of refresh tokens held by the registry.
func (s *AuthService) ActiveSessions() int {
	return s.registry.Len()
}

func (s *AuthService) authenticate(ctx context.Context, cred Credentials) (domain.Identity, error) {
	if s.localMode {
		if cred.Password == "" {
			return domain.Identity{}, ErrMalformedRequest
		}
		if s.ownerPassword == "" || !secureEqual(cred.Password, s.ownerPassword) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{Role: domain.RoleUser, Kind: domain.IdentityLocal}, nil
	}

	if cred.Username == "" || cred.Password == "" {
		return domain.Identity{}, ErrMalformedRequest
	}

	if s.isOwner(cred.Username) {
		if s.ownerPassword == "" || !secureEqual(cred.Password, s.ownerPassword) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{Username: cred.Username, Role: domain.RoleOwner, Kind: domain.IdentityDB}, nil
	}

	if s.users == nil {
		return domain.Identity{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByUsername(ctx, cred.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	match, err := auth.PasswordMatches(user.PasswordHash, cred.Password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return domain.Identity{}, ErrInvalidCredentials
	}
	if user.Banned {
		return domain.Identity{}, ErrAccountBanned
	}

	role := user.Role
	if !role.Valid() {
		role = domain.RoleUser
	}
	return domain.Identity{Username: user.Username, Role: role, Kind: domain.IdentityDB}, nil
}

// ensureAccountActive rejects refreshes for db accounts that were deleted or banned.
func (s *AuthService) ensureAccountActive(ctx context.Context, id domain.Identity) error {
	if id.Kind != domain.IdentityDB || s.isOwner(id.Username) || s.users == nil {
		return nil
	}
	user, err := s.users.GetByUsername(ctx, id.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.Banned {
		return ErrInvalidToken
	}
	return nil
}

// issue mints a token pair and registers the refresh token. Callers hold s.mu.
func (s *AuthService) issue(id domain.Identity) (*Session, error) {
	access, accessExp, err := s.tokens.SignAccess(id)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, _, err := s.tokens.SignRefresh(id)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	s.registry.Store(refresh, id, s.tokens.RefreshTTL())

	return &Session{
		Identity:        id,
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		RefreshToken:    refresh,
	}, nil
}

func (s *AuthService) rotate(old string, id domain.Identity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent login, logout or rotation may have retired the token meanwhile.
	if _, ok := s.registry.Verify(old); !ok {
		return "", ErrInvalidToken
	}

	fresh, _, err := s.tokens.SignRefresh(id)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	s.registry.Store(fresh, id, s.tokens.RefreshTTL())
	s.registry.Revoke(old)
	return fresh, nil
}

func (s *AuthService) revokeSessions(ctx context.Context, id domain.Identity, reason string) {
	s.mu.Lock()
	revoked := s.registry.RevokeAllForIdentity(id.Username)
	s.mu.Unlock()

	s.publish(ctx, events.EventSessionsRevoked, events.ActorOf(id),
		events.SessionsRevokedPayload{Reason: reason, Revoked: revoked})
}

func (s *AuthService) reject(ctx context.Context, id domain.Identity, reason string) {
	s.publish(ctx, events.EventRefreshRejected, events.ActorOf(id),
		events.RefreshRejectedPayload{Reason: reason})
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, actor events.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.NewEvent(eventType, actor, payload)); err != nil {
		s.logger.Warn("session event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func (s *AuthService) isOwner(username string) bool {
	return s.ownerUsername != "" && username == s.ownerUsername
}

// secureEqual compares secrets without leaking their length or common prefix.
func secureEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
