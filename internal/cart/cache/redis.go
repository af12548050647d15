package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/redis/go-redis/v9"
)

const maxJitterMinutes = 5

// writeIfNewer sets or deletes the snapshot in one step with its version.
// KEYS: snapshot, version. ARGV: version (unix ms), payload ("" deletes), ttl (ms).
var writeIfNewer = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current and tonumber(ARGV[1]) < tonumber(current) then
	return 0
end
if ARGV[2] == '' then
	redis.call('DEL', KEYS[1])
else
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
end
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[3])
return 1
`)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

// RedisCache stores the JSON snapshot of a cart under cart:<session> and its
// version under cart:<session>:version. TTLs are jittered so carts written
// together do not expire together.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, sessionID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.write(ctx, sessionID, cart.UpdatedAt, string(data)); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string, at time.Time) error {
	if err := r.write(ctx, sessionID, at, ""); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) write(ctx context.Context, sessionID string, version time.Time, payload string) error {
	jitter := time.Duration(rand.Intn(maxJitterMinutes)) * time.Minute
	keys := []string{cacheKey(sessionID), versionKey(sessionID)}
	return writeIfNewer.Run(ctx, r.client, keys,
		version.UnixMilli(), payload, (r.baseTTL + jitter).Milliseconds()).Err()
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func versionKey(sessionID string) string {
	return cacheKey(sessionID) + ":version"
}
