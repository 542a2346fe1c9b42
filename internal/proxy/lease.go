package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease is the exclusivity primitive for proxy checkout: while a lease is
// held no other dispatch may check out the same proxy.
type Lease interface {
	TryAcquire(ctx context.Context, proxyID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, proxyID string) error
}

const leaseKeyPrefix = "puppet:proxy:lease:"

// RedisLease implements Lease with SET NX EX, so exclusivity holds across
// processes. The TTL bounds how long a crashed executor can pin a proxy.
type RedisLease struct {
	rdb *redis.Client
}

func NewRedisLease(rdb *redis.Client) *RedisLease {
	return &RedisLease{rdb: rdb}
}

func (l *RedisLease) TryAcquire(ctx context.Context, proxyID string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, leaseKeyPrefix+proxyID, "1", ttl).Result()
}

func (l *RedisLease) Release(ctx context.Context, proxyID string) error {
	return l.rdb.Del(ctx, leaseKeyPrefix+proxyID).Err()
}

// MemoryLease is the single-process fallback used when no redis client is
// configured. Same contract, process-local scope.
type MemoryLease struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewMemoryLease() *MemoryLease {
	return &MemoryLease{held: make(map[string]time.Time)}
}

func (l *MemoryLease) TryAcquire(_ context.Context, proxyID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expires, ok := l.held[proxyID]; ok && now.Before(expires) {
		return false, nil
	}
	l.held[proxyID] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLease) Release(_ context.Context, proxyID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, proxyID)
	return nil
}
