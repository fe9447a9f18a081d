package roadside

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

const defaultRedisRefreshPrefix = "roadside:refresh:"

type redisRefreshTokens struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRefreshTokenStore keeps refresh token state in redis. Keys expire
// with the token, so revocation is a delete. The tx argument is ignored.
func NewRedisRefreshTokenStore(client *redis.Client, prefix string) RefreshTokenStore {
	if prefix == "" {
		prefix = defaultRedisRefreshPrefix
	}
	return &redisRefreshTokens{client: client, prefix: prefix, now: time.Now}
}

// Detached is true: redis writes are not rolled back with the SQL transaction.
func (s *redisRefreshTokens) Detached() bool { return true }

func (s *redisRefreshTokens) tokenKey(id uuid.UUID) string {
	return s.prefix + "token:" + id.String()
}

func (s *redisRefreshTokens) userKey(id uuid.UUID) string {
	return s.prefix + "user:" + id.String()
}

func (s *redisRefreshTokens) Save(ctx context.Context, _ bun.IDB, record *RefreshTokenRecord) error {
	ttl := record.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrInvalidToken
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.tokenKey(record.ID), record.UserID.String(), ttl)
	pipe.SAdd(ctx, s.userKey(record.UserID), record.ID.String())
	pipe.Expire(ctx, s.userKey(record.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewInternalError(err, "could not store refresh token")
	}
	return nil
}

func (s *redisRefreshTokens) IsActive(ctx context.Context, _ bun.IDB, tokenID uuid.UUID) (bool, error) {
	_, err := s.client.Get(ctx, s.tokenKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, NewInternalError(err, "could not load refresh token")
	}
	return true, nil
}

func (s *redisRefreshTokens) Revoke(ctx context.Context, _ bun.IDB, tokenID uuid.UUID, _ *uuid.UUID) error {
	userID, err := s.client.GetDel(ctx, s.tokenKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidToken
	}
	if err != nil {
		return NewInternalError(err, "could not revoke refresh token")
	}
	if uid, perr := uuid.Parse(userID); perr == nil {
		s.client.SRem(ctx, s.userKey(uid), tokenID.String())
	}
	return nil
}

func (s *redisRefreshTokens) RevokeAllForUser(ctx context.Context, _ bun.IDB, userID uuid.UUID) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return NewInternalError(err, "could not list refresh tokens")
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if tid, perr := uuid.Parse(id); perr == nil {
			keys = append(keys, s.tokenKey(tid))
		}
	}
	keys = append(keys, s.userKey(userID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return NewInternalError(err, "could not revoke refresh tokens")
	}
	return nil
}
