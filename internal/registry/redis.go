package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry stores coordinator addresses as string keys in Redis,
// serving as the "external name service" spec.md allows for when workers
// and the coordinator don't share a filesystem.
type RedisRegistry struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRegistry dials addr and returns a RedisRegistry keying entries
// under "fluxdag:registry:<name>".
func NewRedisRegistry(addr string) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisRegistry{client: client, keyPrefix: "fluxdag:registry:"}, nil
}

func (r *RedisRegistry) key(name string) string {
	return r.keyPrefix + name
}

func (r *RedisRegistry) Register(ctx context.Context, name, addr string) error {
	if err := r.client.Set(ctx, r.key(name), addr, 0).Err(); err != nil {
		return fmt.Errorf("register %s in redis: %w", name, err)
	}
	return nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, name string) (string, bool, error) {
	addr, err := r.client.Get(ctx, r.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s in redis: %w", name, err)
	}
	return addr, true, nil
}

func (r *RedisRegistry) Unregister(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.key(name)).Err(); err != nil {
		return fmt.Errorf("unregister %s in redis: %w", name, err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
