package auth

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/icgc-argo/argo-service-template/internal/redact"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared fetch. The fetch outlives the caller that
// started it, so it cannot rely on that caller's deadline.
const fetchTimeout = 30 * time.Second

// FetchFunc retrieves a fresh key.
type FetchFunc func(ctx context.Context) (*rsa.PublicKey, error)

// KeyCache memoizes a single key with an expiry time.
//
// A fresh key is returned without calling fetch. Once less than a third of
// the TTL remains, the current key is still returned but one background
// refresh is started. An expired or empty cache fetches synchronously and
// replaces the entry wholesale. Concurrent fetches are collapsed into one.
// KeyCache is safe for concurrent use.
type KeyCache struct {
	fetch        FetchFunc
	ttl          time.Duration
	refreshAhead time.Duration
	now          func() time.Time
	logger       *slog.Logger

	mu        sync.RWMutex
	key       *rsa.PublicKey
	expiresAt time.Time

	group      singleflight.Group
	refreshing atomic.Bool
}

// NewKeyCache creates a cache around fetch whose entries live for ttl.
func NewKeyCache(fetch FetchFunc, ttl time.Duration, opts ...Option) *KeyCache {
	o := newOptions(opts)
	return &KeyCache{
		fetch:        fetch,
		ttl:          ttl,
		refreshAhead: ttl / 3,
		now:          o.now,
		logger:       o.logger,
	}
}

// Get returns the cached key, fetching it when the cache is empty or expired.
func (c *KeyCache) Get(ctx context.Context) (*rsa.PublicKey, error) {
	now := c.now()

	c.mu.RLock()
	key, expiresAt := c.key, c.expiresAt
	c.mu.RUnlock()

	if key != nil && now.Before(expiresAt) {
		if expiresAt.Sub(now) <= c.refreshAhead {
			c.refreshInBackground()
		}
		return key, nil
	}

	return c.refresh(ctx)
}

// refresh joins or starts the shared fetch. The fetch runs detached from ctx
// so one caller going away does not fail the others waiting on it; ctx only
// decides how long this caller waits.
func (c *KeyCache) refresh(ctx context.Context) (*rsa.PublicKey, error) {
	ch := c.group.DoChan("key", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		key, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.key = key
		c.expiresAt = c.now().Add(c.ttl)
		c.mu.Unlock()

		return key, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*rsa.PublicKey), nil
	}
}

// refreshInBackground starts at most one refresh-ahead fetch at a time.
// On failure the current entry is kept until it expires.
func (c *KeyCache) refreshInBackground() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer c.refreshing.Store(false)

		if _, err := c.refresh(context.Background()); err != nil {
			c.logger.Warn("background key refresh failed", "error", redact.Error(err))
		}
	}()
}
