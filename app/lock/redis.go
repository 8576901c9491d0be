package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sinkhole-watch:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var _ Locker = (*RedisLocker)(nil)

// RedisLocker shares locks between replicas through SET NX PX.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(ctx context.Context, addr, password string, ttl time.Duration) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &RedisLocker{client: client, ttl: ttl}, nil
}

func Key(name string) string {
	return keyPrefix + name
}

func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(), error) {
	key := Key(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				slog.Warn("Failed to release lock", "key", key, "error", err)
			}
		})
	}

	return release, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
