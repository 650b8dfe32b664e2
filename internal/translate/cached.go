package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/mediadesk/internal/cache"
)

// Store is the subset of cache.Cache the translator needs.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedTranslator serves repeated (text, source, target) triples from a
// Store. Cache failures are logged and the call falls through to next.
type CachedTranslator struct {
	next   Translator
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedTranslator(next Translator, store Store, ttl time.Duration) *CachedTranslator {
	return &CachedTranslator{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: slog.With("component", "translate_cache"),
	}
}

func (c *CachedTranslator) TranslateText(ctx context.Context, text, source, target string) (string, error) {
	key := cacheKey(text, source, target)

	var hit string
	err := c.store.Get(ctx, key, &hit)
	switch {
	case err == nil:
		return hit, nil
	case !errors.Is(err, cache.ErrMiss):
		c.logger.Warn("translation cache read failed", "error", err)
	}

	out, err := c.next.TranslateText(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, key, out, c.ttl); err != nil {
		c.logger.Warn("translation cache write failed", "error", err)
	}
	return out, nil
}

func cacheKey(text, source, target string) string {
	if source == "" {
		source = Auto
	}
	sum := sha256.Sum256([]byte(source + "\x00" + target + "\x00" + text))
	return "translate:" + hex.EncodeToString(sum[:])
}
