package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateGuard remembers consumed OAuth state ids so a callback cannot be replayed
type StateGuard interface {
	// Consume marks jti as used for ttl. It returns false when jti was already consumed.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// RedisStateGuard implements StateGuard with SET NX so all instances share consumed ids
type RedisStateGuard struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStateGuard creates a guard on an existing client. The caller keeps ownership of it.
func NewRedisStateGuard(client redis.UniversalClient, keyPrefix string) *RedisStateGuard {
	if keyPrefix == "" {
		keyPrefix = "storepulse"
	}
	return &RedisStateGuard{client: client, keyPrefix: keyPrefix + ":oauth_state:"}
}

// Consume marks jti as used
func (g *RedisStateGuard) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := g.client.SetNX(ctx, g.keyPrefix+jti, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record oauth state: %w", err)
	}
	return ok, nil
}

var _ StateGuard = (*RedisStateGuard)(nil)

// InMemoryStateGuard keeps consumed ids in process memory.
// It does not protect deployments with more than one instance.
type InMemoryStateGuard struct {
	mu   sync.Mutex
	used map[string]time.Time // jti -> expiry
	now  func() time.Time
}

// NewInMemoryStateGuard creates an empty guard
func NewInMemoryStateGuard() *InMemoryStateGuard {
	return &InMemoryStateGuard{
		used: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Consume marks jti as used. Expired entries are dropped on the way.
func (g *InMemoryStateGuard) Consume(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for id, exp := range g.used {
		if !now.Before(exp) {
			delete(g.used, id)
		}
	}
	if _, seen := g.used[jti]; seen {
		return false, nil
	}
	g.used[jti] = now.Add(ttl)
	return true, nil
}

var _ StateGuard = (*InMemoryStateGuard)(nil)
