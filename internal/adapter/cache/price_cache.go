// Package cache reads and writes the shared market price cache held in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/config"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// cachedPrice is the JSON value stored under each price key
type cachedPrice struct {
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// PriceCache implements domain.PriceGateway on top of Redis.
// Keys are "<prefix>price:<SYMBOL>". Key expiry only bounds retention; staleness is
// judged from fetched_at by the valuation engine, so an expired price is still served.
type PriceCache struct {
	client *redis.Client
	prefix string
}

// NewPriceCache connects to Redis and verifies the connection
func NewPriceCache(cfg config.RedisConfig) (*PriceCache, error) {
	client := redis.NewClient(clientOptions(cfg))

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPriceCacheFromClient(client, cfg.KeyPrefix), nil
}

// clientOptions builds the Redis client settings.
// Each command is bounded by its context deadline, so the caller's gateway timeout
// governs a hung server; the fixed read/write timeouts only apply without one.
func clientOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		MaxRetries:            3,
		DialTimeout:           5 * time.Second,
		ReadTimeout:           3 * time.Second,
		WriteTimeout:          3 * time.Second,
		ContextTimeoutEnabled: true,
	}
}

// NewPriceCacheFromClient wraps an existing client
func NewPriceCacheFromClient(client *redis.Client, prefix string) *PriceCache {
	return &PriceCache{client: client, prefix: prefix}
}

// Close closes the Redis connection
func (c *PriceCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Key returns the Redis key a symbol's price is stored under
func (c *PriceCache) Key(symbol string) string {
	return c.prefix + "price:" + strings.ToUpper(strings.TrimSpace(symbol))
}

// GetCachedPrice returns the cached price of symbol, or nil when none is cached
func (c *PriceCache) GetCachedPrice(ctx context.Context, symbol string) (*domain.CachedPrice, error) {
	raw, err := c.client.Get(ctx, c.Key(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached price: %w", err)
	}

	var value cachedPrice
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("failed to decode cached price for %s: %w", symbol, err)
	}

	return &domain.CachedPrice{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Price:     value.Price,
		Currency:  strings.ToUpper(value.Currency),
		FetchedAt: value.FetchedAt.UTC(),
	}, nil
}

// Put stores a price, keeping the key for retention (forever when zero)
func (c *PriceCache) Put(ctx context.Context, price *domain.CachedPrice, retention time.Duration) error {
	raw, err := json.Marshal(cachedPrice{
		Price:     price.Price,
		Currency:  price.Currency,
		FetchedAt: price.FetchedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cached price: %w", err)
	}

	if err := c.client.Set(ctx, c.Key(price.Symbol), raw, retention).Err(); err != nil {
		return fmt.Errorf("failed to store cached price: %w", err)
	}
	return nil
}
