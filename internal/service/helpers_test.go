package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/vodhub/internal/auth"
	"github.com/spec-kit/vodhub/internal/config"
	"github.com/spec-kit/vodhub/internal/domain"
	"github.com/spec-kit/vodhub/internal/events"
	"github.com/spec-kit/vodhub/internal/repository"
)

const (
	ownerName     = "root"
	ownerPassword = "root-pw"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]domain.User)}
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return repository.ErrUserExists
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.Username] = *user
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.users[username] = u
	return nil
}

func (m *memUsers) SetBanned(_ context.Context, username string, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Banned = banned
	m.users[username] = u
	return nil
}

func (m *memUsers) Ping(context.Context) error { return nil }

func (m *memUsers) delete(username string) {
	m.mu.Lock()
	delete(m.users, username)
	m.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, e events.Event) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	svc      *AuthService
	users    *memUsers
	tokens   *auth.TokenManager
	registry *auth.RefreshRegistry
	clock    *fakeClock
	log      *eventLog
}

func newHarness(t *testing.T, storage string, mutate ...func(*config.Config)) *harness {
	t.Helper()

	cfg := config.Config{
		Storage: config.StorageConfig{Type: storage},
		Auth: config.AuthConfig{
			OwnerUsername:            ownerName,
			OwnerPassword:            ownerPassword,
			JWTSecret:                "s3cret",
			AccessTokenTTLMinutes:    60,
			RefreshTokenTTLHours:     30 * 24,
			RefreshRotateBeforeHours: 7 * 24,
			BcryptCost:               bcrypt.MinCost,
		},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL(), auth.WithTokenClock(clock.Now))
	registry := auth.NewRefreshRegistry(auth.WithRegistryClock(clock.Now))
	t.Cleanup(registry.Close)

	log := &eventLog{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventSessionCreated, events.EventSessionRefreshed, events.EventSessionRotated,
		events.EventSessionEnded, events.EventSessionsRevoked, events.EventRefreshRejected,
		events.EventLoginFailed,
	} {
		dispatcher.Subscribe(et, log.handle)
	}

	h := &harness{tokens: tokens, registry: registry, clock: clock, log: log}
	var users repository.UserRepository
	if !cfg.Storage.LocalMode() {
		h.users = newMemUsers()
		users = h.users
	}

	h.svc = NewAuthService(cfg, AuthDependencies{
		Users:      users,
		Tokens:     tokens,
		Registry:   registry,
		Dispatcher: dispatcher,
		Clock:      clock.Now,
	})
	return h
}

func (h *harness) addUser(t *testing.T, username, password string, role domain.Role, banned bool) {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, h.users.Create(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Banned:       banned,
	}))
}
