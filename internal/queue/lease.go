package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld means another worker is rendering the same line item.
var ErrLeaseHeld = errors.New("render already in flight for this line item")

// Lease guards a line item against concurrent renders.
type Lease interface {
	// Acquire returns a release func, or ErrLeaseHeld.
	Acquire(ctx context.Context, orderID, lineItemID string) (func(context.Context) error, error)
}

// NoopLease admits every render.
type NoopLease struct{}

// Acquire implements Lease.
func (NoopLease) Acquire(context.Context, string, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLease is a SET NX lease with a TTL, so a crashed worker's lease
// expires on its own.
type RedisLease struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLease creates a lease backed by client.
func NewRedisLease(client redis.UniversalClient, ttl time.Duration) *RedisLease {
	return &RedisLease{client: client, ttl: ttl}
}

// LeaseKey is the Redis key for a line item.
func LeaseKey(orderID, lineItemID string) string {
	return fmt.Sprintf("printready:lease:%s:%s", orderID, lineItemID)
}

// Acquire implements Lease.
func (l *RedisLease) Acquire(ctx context.Context, orderID, lineItemID string) (func(context.Context) error, error) {
	key := LeaseKey(orderID, lineItemID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lease %s: %w", key, err)
		}
		return nil
	}, nil
}
