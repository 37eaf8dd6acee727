package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
)

// DefaultLockKeyPrefix namespaces lease keys in Redis.
const DefaultLockKeyPrefix = "cart_item:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker grants leases as Redis keys set with NX and a TTL equal to the
// stale threshold, so a crashed holder's lease disappears on its own.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	cfg    lockerConfig
}

func NewRedisLocker(client redis.UniversalClient, prefix string, opts ...LockerOption) (*RedisLocker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if prefix == "" {
		prefix = DefaultLockKeyPrefix
	}

	cfg := defaultLockerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RedisLocker{client: client, prefix: prefix, cfg: cfg}, nil
}

// Acquire polls SET NX until it wins or ctx ends.
func (l *RedisLocker) Acquire(ctx context.Context, id uuid.UUID) (lifecycle.Lease, error) {
	token := uuid.NewString()
	key := l.prefix + id.String()

	ticker := time.NewTicker(l.cfg.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.staleAfter).Result()
		switch {
		case err == nil && ok:
			now := l.cfg.now()
			return lifecycle.Lease{
				ItemID:     id,
				Token:      token,
				AcquiredAt: now,
				ExpiresAt:  now.Add(l.cfg.staleAfter),
			}, nil
		case err != nil && ctx.Err() == nil:
			return lifecycle.Lease{}, err
		}

		select {
		case <-ctx.Done():
			return lifecycle.Lease{}, fmt.Errorf("%w: %w", lifecycle.ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release deletes the lease key if it still carries the lease token.
func (l *RedisLocker) Release(ctx context.Context, lease lifecycle.Lease) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.prefix + lease.ItemID.String()}, lease.Token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if deleted == 0 {
		return lifecycle.ErrLeaseLost
	}
	return nil
}
