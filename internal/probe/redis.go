package probe

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisProbe reports reachability of a Redis instance.
type RedisProbe struct {
	client *redis.Client
}

// NewRedis creates a probe for the Redis instance at addr. The connection is
// lazy; reachability is only determined by Check.
func NewRedis(addr string) *RedisProbe {
	return &RedisProbe{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Name implements Probe.
func (p *RedisProbe) Name() string { return "redis" }

// Check pings Redis.
func (p *RedisProbe) Check(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (p *RedisProbe) Close() error {
	return p.client.Close()
}
