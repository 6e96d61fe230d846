package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/vodhub/internal/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisUserRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisUserRepository(client, "")

	user := &domain.User{Username: "alice", PasswordHash: "hash-1", Role: domain.RoleAdmin}
	require.NoError(t, repo.Create(ctx, user))
	assert.WithinDuration(t, time.Now(), user.CreatedAt, 2*time.Second)
	assert.True(t, mr.Exists("vodhub:user:alice"))

	assert.ErrorIs(t, repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "other"}), ErrUserExists)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.PasswordHash)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.False(t, got.Banned)
	assert.Equal(t, user.CreatedAt.Unix(), got.CreatedAt.Unix())

	require.NoError(t, repo.UpdatePassword(ctx, "alice", "hash-2"))
	require.NoError(t, repo.SetBanned(ctx, "alice", true))

	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.PasswordHash)
	assert.True(t, got.Banned)
	assert.Equal(t, "1", mr.HGet("vodhub:user:alice", "banned"))
}

func TestRedisUserRepositoryMissingUser(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisUserRepository(client, "test:")

	_, err := repo.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, "ghost", "h"), ErrUserNotFound)
	assert.ErrorIs(t, repo.SetBanned(ctx, "ghost", true), ErrUserNotFound)
}

func TestRedisUserRepositoryCreateLeavesExistingHashAlone(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisUserRepository(client, "")

	mr.HSet("vodhub:user:partial", "role", "admin")

	err := repo.Create(ctx, &domain.User{Username: "partial", PasswordHash: "hash", Role: domain.RoleUser})
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Empty(t, mr.HGet("vodhub:user:partial", "pwd"))
	assert.Equal(t, "admin", mr.HGet("vodhub:user:partial", "role"))

	keys, err := mr.HKeys("vodhub:user:partial")
	require.NoError(t, err)
	assert.Equal(t, []string{"role"}, keys)
}

func TestRedisUserRepositoryCreateWritesAllFields(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisUserRepository(client, "")

	require.NoError(t, repo.Create(ctx, &domain.User{Username: "bob", PasswordHash: "hash", Role: domain.RoleUser, Banned: true}))

	keys, err := mr.HKeys("vodhub:user:bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pwd", "role", "banned", "created", "updated"}, keys)
	assert.Equal(t, "1", mr.HGet("vodhub:user:bob", "banned"))
}

func TestRedisUserRepositoryUnknownRoleFallsBack(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisUserRepository(client, "")

	mr.HSet("vodhub:user:legacy", "pwd", "hash", "role", "superuser")

	got, err := repo.GetByUsername(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.True(t, got.CreatedAt.IsZero())
}

func TestRedisUserRepositoryPing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	repo := NewRedisUserRepository(client, "")

	assert.NoError(t, repo.Ping(context.Background()))

	mr.Close()
	assert.Error(t, repo.Ping(context.Background()))
}
