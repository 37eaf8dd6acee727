package inventory

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// CheckerFunc adapts a function to the lifecycle inventory checker contract.
type CheckerFunc func(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)

func (f CheckerFunc) Available(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	return f(ctx, productID, quantity)
}

// Memory keeps stock levels in a map. Unknown products have no stock.
type Memory struct {
	mu    sync.RWMutex
	stock map[uuid.UUID]int
}

func NewMemory() *Memory {
	return &Memory{stock: make(map[uuid.UUID]int)}
}

// SetStock sets the available units for a product.
func (m *Memory) SetStock(productID uuid.UUID, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = units
}

func (m *Memory) Available(_ context.Context, productID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stock[productID] >= quantity, nil
}

// RedisChecker reads stock counters kept under "<prefix><product id>".
// A missing key means no stock.
type RedisChecker struct {
	client redis.UniversalClient
	prefix string
}

// DefaultStockKeyPrefix is used when NewRedisChecker gets an empty prefix.
const DefaultStockKeyPrefix = "inventory:stock:"

func NewRedisChecker(client redis.UniversalClient, prefix string) *RedisChecker {
	if client == nil {
		panic("inventory: redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultStockKeyPrefix
	}
	return &RedisChecker{client: client, prefix: prefix}
}

func (c *RedisChecker) Available(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}

	raw, err := c.client.Get(ctx, c.prefix+productID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	units, err := strconv.Atoi(raw)
	if err != nil {
		return false, err
	}
	return units >= quantity, nil
}

// SetStock writes a stock counter; used by seeding scripts and tests.
func (c *RedisChecker) SetStock(ctx context.Context, productID uuid.UUID, units int) error {
	return c.client.Set(ctx, c.prefix+productID.String(), units, 0).Err()
}
