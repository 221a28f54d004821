package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	redisclient "github.com/zatekoja/slotbooking/internal/infrastructure/clients/redis"
)

const keyPrefix = "lease:"

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLeaseProvider grants leases with SET NX PX, shared by every replica
type RedisLeaseProvider struct {
	client *redisclient.Client
}

// NewRedisLeaseProvider creates a Redis-backed lease provider
func NewRedisLeaseProvider(client *redisclient.Client) *RedisLeaseProvider {
	return &RedisLeaseProvider{client: client}
}

var _ providers.LeaseProvider = (*RedisLeaseProvider)(nil)

// TryAcquire sets key to a fresh token when it is absent
func (p *RedisLeaseProvider) TryAcquire(ctx context.Context, key string, ttl time.Duration) (providers.Lease, bool, error) {
	token := uuid.NewString()
	ok, err := p.client.Client().SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{client: p.client.Client(), key: keyPrefix + key, token: token}, true, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}
