package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "habitbot:session:"

// RedisStore keeps sessions as JSON values whose TTL is refreshed on every
// save, so expiry is handled by Redis itself.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds connection settings for NewRedisClient.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient opens a Redis connection and checks it with PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store on top of client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*Session, error) {
	val, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return newIdle(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		// A corrupt session only loses the dialog in progress.
		_ = r.client.Del(ctx, redisKey(userID)).Err()
		return newIdle(), nil
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, userID int64, s *Session) error {
	if s.Idle() {
		return r.Clear(ctx, userID)
	}
	s.UpdatedAt = time.Now().UTC()
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(userID), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Sweep is a no-op: keys expire on their own.
func (r *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
