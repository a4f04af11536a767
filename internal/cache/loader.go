package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vytor/mathtermind/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Loader coalesces concurrent misses for the same key into one load.
type Loader struct {
	cache Cache
	group singleflight.Group
}

func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

func (l *Loader) Cache() Cache {
	return l.cache
}

// GetOrLoad fills dest from the cache, or from load on a miss, storing the
// loaded value for ttl. Cache failures fall through to load.
func (l *Loader) GetOrLoad(ctx context.Context, key string, ttl time.Duration, dest any, load func(ctx context.Context) (any, error)) error {
	log := logger.FromContext(ctx).WithPrefix("cache")

	hit, err := l.cache.Get(ctx, key, dest)
	if err != nil {
		log.Warn("cache get failed: key=%s, err=%v", key, err)
	}
	if hit {
		log.Debug("cache hit: key=%s", key)
		return nil
	}

	raw, err, shared := l.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(ctx, key, v, ttl); err != nil {
			log.Warn("cache set failed: key=%s, err=%v", key, err)
		}
		return json.Marshal(v)
	})
	if err != nil {
		return err
	}
	log.Debug("cache filled: key=%s, shared=%t", key, shared)
	return json.Unmarshal(raw.([]byte), dest)
}

// Invalidate drops prefix, logging rather than returning failures.
func (l *Loader) Invalidate(ctx context.Context, prefixes ...string) {
	for _, p := range prefixes {
		if err := l.cache.InvalidatePrefix(ctx, p); err != nil {
			logger.FromContext(ctx).WithPrefix("cache").Warn("cache invalidation failed: prefix=%s, err=%v", p, err)
		}
	}
}
