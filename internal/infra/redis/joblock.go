package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campushub/smartmail/internal/joblock"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Only the holder that set the key may delete it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ joblock.Lock = (*RedisJobLock)(nil)

// RedisJobLock is a distributed no-overlap gate for scheduled jobs,
// shared across replicas. The TTL bounds how long a crashed holder can
// keep a job blocked.
type RedisJobLock struct {
	client *goredis.Client
	owner  string
}

func NewRedisJobLock(client *goredis.Client) (*RedisJobLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	return &RedisJobLock{
		client: client,
		owner:  uuid.NewString(),
	}, nil
}

func (l *RedisJobLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return false, fmt.Errorf("job lock is not initialized")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("lock name is required")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("lock ttl must be positive")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	acquired, err := l.client.SetNX(ctx, l.key(name), l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire job lock %q: %w", name, err)
	}

	return acquired, nil
}

func (l *RedisJobLock) Release(ctx context.Context, name string) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("job lock is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to release job lock %q: %w", name, err)
	}

	return nil
}

func (l *RedisJobLock) key(name string) string {
	return "joblock:" + name
}
