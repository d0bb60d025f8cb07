package repo

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

type cacheEntry[T any] struct {
	value   T
	expires time.Time
}

// ttlCache collapses concurrent loads of the same key and serves the last good value
// when a reload fails.
type ttlCache[T any] struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]cacheEntry[T]
	group singleflight.Group
}

func newTTLCache[T any](ttl time.Duration) *ttlCache[T] {
	return &ttlCache[T]{ttl: ttl, now: time.Now, items: make(map[string]cacheEntry[T])}
}

func (c *ttlCache[T]) get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expires) {
		return e.value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		fresh, err := load(ctx)
		if err != nil {
			return fresh, err
		}
		c.mu.Lock()
		c.items[key] = cacheEntry[T]{value: fresh, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		if ok {
			logx.Warn().Err(err).Str("key", key).Msg("reload failed, serving stale value")
			return e.value, nil
		}
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *ttlCache[T]) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// CachedMenuProvider memoizes CurrentMenu per restaurant for ttl.
type CachedMenuProvider struct {
	next  model.MenuProvider
	cache *ttlCache[model.Menu]
}

func NewCachedMenuProvider(next model.MenuProvider, ttl time.Duration) *CachedMenuProvider {
	return &CachedMenuProvider{next: next, cache: newTTLCache[model.Menu](ttl)}
}

func (p *CachedMenuProvider) CurrentMenu(ctx context.Context, restaurantID string) (model.Menu, error) {
	return p.cache.get(ctx, restaurantID, func(ctx context.Context) (model.Menu, error) {
		return p.next.CurrentMenu(ctx, restaurantID)
	})
}

// Invalidate drops the cached menu, e.g. after the menu was edited.
func (p *CachedMenuProvider) Invalidate(restaurantID string) {
	p.cache.invalidate(restaurantID)
}

type CachedSettingsProvider struct {
	next  model.SettingsProvider
	cache *ttlCache[*model.RestaurantSettings]
}

func NewCachedSettingsProvider(next model.SettingsProvider, ttl time.Duration) *CachedSettingsProvider {
	return &CachedSettingsProvider{next: next, cache: newTTLCache[*model.RestaurantSettings](ttl)}
}

func (p *CachedSettingsProvider) Settings(ctx context.Context, restaurantID string) (*model.RestaurantSettings, error) {
	return p.cache.get(ctx, restaurantID, func(ctx context.Context) (*model.RestaurantSettings, error) {
		return p.next.Settings(ctx, restaurantID)
	})
}

var (
	_ model.MenuProvider     = (*CachedMenuProvider)(nil)
	_ model.SettingsProvider = (*CachedSettingsProvider)(nil)
)
