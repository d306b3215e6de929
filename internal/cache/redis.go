package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onemedi/onemedi-api/internal/domain"
)

// The key carries a schema version so a cart shape change never deserializes
// a stale payload; bumping the version orphans the old entries and they age
// out on TTL.
const cartKeyPrefix = "onemedi:cart:v1:"

const (
	cartTTL   = 15 * time.Minute
	ttlJitter = 5 * time.Minute
)

// RedisCache keeps assembled cart documents (active and saved lines together)
// in front of the Mongo repository.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cart cache get: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("cart cache decode: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("cart cache encode: %w", err)
	}

	// Jitter spreads expiry so a burst of carts doesn't refill at once.
	ttl := cartTTL + time.Duration(rand.Int63n(int64(ttlJitter)))
	if err := r.client.Set(ctx, cacheKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cart cache set: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("cart cache delete: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return cartKeyPrefix + userID
}
