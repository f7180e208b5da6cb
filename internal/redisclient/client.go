package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/mirror_decrement.lua
var mirrorDecrementScript string

// Client mirrors on-hand stock counts for cheap reads and holds
// checkout idempotency markers. It is never the decrement authority;
// the database conditional update is.
type Client struct {
	rdb          *redis.Client
	mirrorScript *redis.Script
}

// NewClient creates a new Redis client with the mirror script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:          rdb,
		mirrorScript: redis.NewScript(mirrorDecrementScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(medicineID string) string {
	return fmt.Sprintf("stock:%s", medicineID)
}

// SetStock writes the mirrored on-hand count for a medicine
func (c *Client) SetStock(ctx context.Context, medicineID string, quantity int) error {
	return c.rdb.Set(ctx, stockKey(medicineID), quantity, 0).Err()
}

// GetStock reads the mirrored on-hand count for a medicine
func (c *Client) GetStock(ctx context.Context, medicineID string) (int, error) {
	val, err := c.rdb.Get(ctx, stockKey(medicineID)).Result()
	if err == redis.Nil {
		return 0, fmt.Errorf("no mirrored stock for medicine %s", medicineID)
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// MirrorDecrement reflects a committed decrement into the cache,
// flooring at zero. Returns the mirrored remainder.
func (c *Client) MirrorDecrement(ctx context.Context, medicineID string, quantity int) (int, error) {
	result, err := c.mirrorScript.Run(ctx, c.rdb, []string{stockKey(medicineID)}, quantity).Result()
	if err != nil {
		return 0, fmt.Errorf("mirror decrement script failed: %w", err)
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type")
	}
	return int(remaining), nil
}

// DropStock removes the mirrored count for a deleted medicine
func (c *Client) DropStock(ctx context.Context, medicineID string) error {
	return c.rdb.Del(ctx, stockKey(medicineID)).Err()
}

// SetIdempotencyKey stores a checkout idempotency marker with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key, saleID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), saleID, ttl).Err()
}

// GetIdempotencyKey returns the sale id recorded under a key, or ""
// when the key is unknown
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
