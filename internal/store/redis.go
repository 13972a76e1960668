package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// Redis stores one JSON value per session under "<prefix>:<topic>" and
// indexes topics in the set "<prefix>:index". Expiring sessions get a TTL.
type Redis struct {
	client RedisClient
	prefix string
	now    func() time.Time
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, cwerr.Wrap(cwerr.ErrNetworkError, "connecting to redis at %s: %v", addr, err)
	}
	return rdb, nil
}

// NewRedis creates a store on client under prefix.
func NewRedis(client RedisClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "corewallet:sessions"
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

func (r *Redis) key(topic string) string { return r.prefix + ":" + topic }

func (r *Redis) indexKey() string { return r.prefix + ":index" }

// Save writes a session and indexes its topic.
func (r *Redis) Save(ctx context.Context, s ConnectedSession) error {
	if err := checkTopic(s.Topic); err != nil {
		return err
	}
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "session already expired"})
		}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return cwerr.Wrap(err, "encoding session %s", s.Topic)
	}
	if err := r.client.Set(ctx, r.key(s.Topic), data, ttl).Err(); err != nil {
		return redisError(err, "saving session")
	}
	if err := r.client.SAdd(ctx, r.indexKey(), s.Topic).Err(); err != nil {
		return redisError(err, "indexing session")
	}
	return nil
}

// List returns the stored sessions, oldest first. Index entries whose
// value expired are removed on the way.
func (r *Redis) List(ctx context.Context) ([]ConnectedSession, error) {
	topics, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, redisError(err, "listing sessions")
	}

	now := r.now()
	out := make([]ConnectedSession, 0, len(topics))
	var stale []any
	for _, topic := range topics {
		raw, err := r.client.Get(ctx, r.key(topic)).Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, topic)
			continue
		}
		if err != nil {
			return nil, redisError(err, "reading session")
		}
		var s ConnectedSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, cwerr.Wrap(err, "decoding session %s", topic)
		}
		if s.Expired(now) {
			continue
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			return nil, redisError(err, "pruning session index")
		}
	}
	sortSessions(out)
	return out, nil
}

// Revoke deletes one session.
func (r *Redis) Revoke(ctx context.Context, topic string) error {
	if err := checkTopic(topic); err != nil {
		return err
	}
	n, err := r.client.Del(ctx, r.key(topic)).Result()
	if err != nil {
		return redisError(err, "revoking session")
	}
	if err := r.client.SRem(ctx, r.indexKey(), topic).Err(); err != nil {
		return redisError(err, "unindexing session")
	}
	if n == 0 {
		return notFound(topic)
	}
	return nil
}

// RevokeAll deletes every indexed session and the index.
func (r *Redis) RevokeAll(ctx context.Context) (int, error) {
	topics, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, redisError(err, "listing sessions")
	}
	if len(topics) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(topics))
	for _, t := range topics {
		keys = append(keys, r.key(t))
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, redisError(err, "revoking sessions")
	}
	if err := r.client.Del(ctx, r.indexKey()).Err(); err != nil {
		return 0, redisError(err, "clearing session index")
	}
	return int(n), nil
}

func redisError(err error, action string) error {
	return cwerr.Wrap(cwerr.ErrNetworkError, "%s: %v", action, err)
}
