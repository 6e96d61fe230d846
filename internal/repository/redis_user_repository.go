package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/vodhub/internal/domain"
)

const defaultUserKeyPrefix = "vodhub:user:"

// Hash fields of a stored account.
const (
	fieldPassword = "pwd"
	fieldRole     = "role"
	fieldBanned   = "banned"
	fieldCreated  = "created"
	fieldUpdated  = "updated"
)

type redisUserRepository struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisUserRepository stores each account as a Redis hash under prefix+username.
// An empty prefix selects "vodhub:user:".
func NewRedisUserRepository(rdb *redis.Client, prefix string) UserRepository {
	if prefix == "" {
		prefix = defaultUserKeyPrefix
	}
	return &redisUserRepository{rdb: rdb, prefix: prefix}
}

func (r *redisUserRepository) key(username string) string { return r.prefix + username }

func (r *redisUserRepository) Create(ctx context.Context, user *domain.User) error {
	key := r.key(user.Username)
	now := time.Now().UTC()
	stamp := strconv.FormatInt(now.Unix(), 10)

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrUserExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldPassword, user.PasswordHash,
				fieldRole, string(user.Role),
				fieldBanned, boolTo01(user.Banned),
				fieldCreated, stamp,
				fieldUpdated, stamp,
			)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// the key was written between WATCH and EXEC
		return ErrUserExists
	}
	if err != nil {
		return err
	}

	user.CreatedAt = now.Truncate(time.Second)
	user.UpdatedAt = user.CreatedAt
	return nil
}

func (r *redisUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m, err := r.rdb.HGetAll(ctx, r.key(username)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 || m[fieldPassword] == "" {
		return nil, ErrUserNotFound
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: m[fieldPassword],
		Role:         domain.Role(m[fieldRole]),
		Banned:       m[fieldBanned] == "1",
	}
	if !user.Role.Valid() {
		user.Role = domain.RoleUser
	}
	if user.CreatedAt, err = parseUnix(m[fieldCreated]); err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	if user.UpdatedAt, err = parseUnix(m[fieldUpdated]); err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	return user, nil
}

func (r *redisUserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return r.updateExisting(ctx, username, fieldPassword, passwordHash)
}

func (r *redisUserRepository) SetBanned(ctx context.Context, username string, banned bool) error {
	return r.updateExisting(ctx, username, fieldBanned, boolTo01(banned))
}

func (r *redisUserRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *redisUserRepository) updateExisting(ctx context.Context, username, field, value string) error {
	key := r.key(username)
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, field, value)
	pipe.HSet(ctx, key, fieldUpdated, strconv.FormatInt(time.Now().UTC().Unix(), 10))
	_, err = pipe.Exec(ctx)
	return err
}

func parseUnix(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return time.Unix(sec, 0).UTC(), nil
}

func boolTo01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
