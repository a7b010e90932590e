package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers can
// distinguish them from token-state outcomes.
var ErrRedisUnavailable = errors.New("redis unavailable")

// revokedRetention keeps revoked and expired records around after their
// expiry so reuse and expired presentations stay distinguishable from
// unknown tokens.
const revokedRetention = 24 * time.Hour

const (
	rotateStatusNotFound int64 = 0
	rotateStatusRevoked  int64 = 1
	rotateStatusRotated  int64 = 2
)

const rotateScript = `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked then
  return 0
end
if revoked ~= "0" then
  return 1
end

redis.call("HSET", KEYS[1], "revoked", ARGV[1])

redis.call("HSET", KEYS[2],
  "id", ARGV[2],
  "user", ARGV[3],
  "hash", ARGV[4],
  "exp", ARGV[5],
  "created", ARGV[6],
  "revoked", "0")
redis.call("PEXPIRE", KEYS[2], ARGV[7])
redis.call("SET", KEYS[3], ARGV[2], "PX", ARGV[7])
redis.call("SADD", KEYS[4], ARGV[2])

return 2
`

var rotateLua = redis.NewScript(rotateScript)

const revokeScript = `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked or revoked ~= "0" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", ARGV[1])
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// RedisStore is a Redis-backed [Store]. Rotation runs as a single Lua
// compare-and-set, so concurrent redemptions of one record resolve to
// exactly one winner. Records persist for a retention window past their
// expiry; after that, expired tokens read as unknown.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] with the given key prefix. An empty
// prefix defaults to "ak:rt".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ak:rt"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) recordKey(id string) string   { return s.prefix + ":id:" + id }
func (s *RedisStore) hashKey(hash string) string   { return s.prefix + ":h:" + hash }
func (s *RedisStore) userKey(userID string) string { return s.prefix + ":u:" + userID }

func (s *RedisStore) retentionTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt) + revokedRetention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *RedisStore) Create(ctx context.Context, token Token) error {
	ttl := s.retentionTTL(token.ExpiresAt)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.recordKey(token.ID),
			"id", token.ID,
			"user", token.UserID,
			"hash", token.TokenHash,
			"exp", token.ExpiresAt.UnixMilli(),
			"created", token.CreatedAt.UnixMilli(),
			"revoked", "0")
		pipe.PExpire(ctx, s.recordKey(token.ID), ttl)
		pipe.Set(ctx, s.hashKey(token.TokenHash), token.ID, ttl)
		pipe.SAdd(ctx, s.userKey(token.UserID), token.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) FindByHash(ctx context.Context, hash string) (*Token, error) {
	id, err := s.redis.Get(ctx, s.hashKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.findByID(ctx, id)
}

func (s *RedisStore) findByID(ctx context.Context, id string) (*Token, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeRecord(fields)
}

func (s *RedisStore) Rotate(ctx context.Context, currentID string, successor Token) error {
	status, err := rotateLua.Run(ctx, s.redis,
		[]string{
			s.recordKey(currentID),
			s.recordKey(successor.ID),
			s.hashKey(successor.TokenHash),
			s.userKey(successor.UserID),
		},
		time.Now().UnixMilli(),
		successor.ID,
		successor.UserID,
		successor.TokenHash,
		successor.ExpiresAt.UnixMilli(),
		successor.CreatedAt.UnixMilli(),
		s.retentionTTL(successor.ExpiresAt).Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusNotFound:
		return ErrNotFound
	case rotateStatusRevoked:
		return ErrRevoked
	case rotateStatusRotated:
		return nil
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrRedisUnavailable, status)
	}
}

func (s *RedisStore) Revoke(ctx context.Context, id string) error {
	_, err := revokeLua.Run(ctx, s.redis,
		[]string{s.recordKey(id)},
		time.Now().UnixMilli(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAllForUser is not fully atomic: records created between the index
// read and the revocation writes are not captured. Such a record belongs
// to a login that raced the logout-all and would survive on either
// ordering.
func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := time.Now().UnixMilli()
	for _, id := range ids {
		if _, err := revokeLua.Run(ctx, s.redis, []string{s.recordKey(id)}, now).Result(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if err := s.redis.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func decodeRecord(fields map[string]string) (*Token, error) {
	expMs, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt exp field: %v", ErrRedisUnavailable, err)
	}
	createdMs, err := strconv.ParseInt(fields["created"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt created field: %v", ErrRedisUnavailable, err)
	}
	revokedMs, err := strconv.ParseInt(fields["revoked"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt revoked field: %v", ErrRedisUnavailable, err)
	}

	token := &Token{
		ID:        fields["id"],
		UserID:    fields["user"],
		TokenHash: fields["hash"],
		ExpiresAt: time.UnixMilli(expMs),
		CreatedAt: time.UnixMilli(createdMs),
	}
	if revokedMs != 0 {
		at := time.UnixMilli(revokedMs)
		token.RevokedAt = &at
	}
	return token, nil
}
