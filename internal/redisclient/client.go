package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const resetTokenPrefix = "pwreset:"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// StoreResetToken stores a password-reset token. The token expires with the
// key TTL; no sweep is needed.
func (c *Client) StoreResetToken(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	key := resetTokenPrefix + token
	if err := c.rdb.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store reset token failed: %w", err)
	}
	return nil
}

// ConsumeResetToken reads and deletes a reset token in one round trip so a
// token can be redeemed exactly once. found is false when the token does not
// exist or has expired.
func (c *Client) ConsumeResetToken(ctx context.Context, token string) (int64, bool, error) {
	key := resetTokenPrefix + token

	val, err := c.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("consume reset token failed: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed reset token value: %w", err)
	}
	return userID, true, nil
}
