package auth_test

import (
	"context"
	"crypto/rsa"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/icgc-argo/argo-service-template/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingFetch hands out a distinct key per call, or fails once failAfter calls succeeded.
type countingFetch struct {
	calls     atomic.Int32
	failAfter int32
}

func (f *countingFetch) fetch(context.Context) (*rsa.PublicKey, error) {
	n := f.calls.Add(1)
	if f.failAfter > 0 && n > f.failAfter {
		return nil, errors.New("key server unavailable")
	}
	return &rsa.PublicKey{N: big.NewInt(int64(n)), E: 65537}, nil
}

func TestKeyCache_Get(t *testing.T) {
	t.Parallel()

	t.Run("fresh key is served from cache", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		f := &countingFetch{}
		cache := auth.NewKeyCache(f.fetch, time.Hour, auth.WithClock(clock.Now))

		first, err := cache.Get(context.Background())
		require.NoError(t, err)

		clock.Advance(30 * time.Minute)
		second, err := cache.Get(context.Background())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("expired key is refetched", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		f := &countingFetch{}
		cache := auth.NewKeyCache(f.fetch, time.Hour, auth.WithClock(clock.Now))

		first, err := cache.Get(context.Background())
		require.NoError(t, err)

		clock.Advance(time.Hour)
		second, err := cache.Get(context.Background())
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, int64(2), second.N.Int64())
	})

	t.Run("refresh ahead near expiry", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		f := &countingFetch{}
		cache := auth.NewKeyCache(f.fetch, time.Hour, auth.WithClock(clock.Now))

		_, err := cache.Get(context.Background())
		require.NoError(t, err)

		clock.Advance(45 * time.Minute)
		stale, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), stale.N.Int64(), "the current key is returned while refreshing")

		require.Eventually(t, func() bool {
			key, err := cache.Get(context.Background())
			return err == nil && key.N.Int64() >= 2
		}, time.Second, 5*time.Millisecond)
		assert.GreaterOrEqual(t, f.calls.Load(), int32(2))
	})

	t.Run("failed refresh ahead keeps current key", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		f := &countingFetch{failAfter: 1}
		cache := auth.NewKeyCache(f.fetch, time.Hour, auth.WithClock(clock.Now))

		_, err := cache.Get(context.Background())
		require.NoError(t, err)

		clock.Advance(50 * time.Minute)
		_, err = cache.Get(context.Background())
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return f.calls.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		key, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), key.N.Int64())

		clock.Advance(10 * time.Minute)
		_, err = cache.Get(context.Background())
		assert.Error(t, err, "an expired key is never served")
	})

	t.Run("fetch error is returned", func(t *testing.T) {
		t.Parallel()

		fetchErr := errors.New("connection refused")
		cache := auth.NewKeyCache(func(context.Context) (*rsa.PublicKey, error) {
			return nil, fetchErr
		}, time.Hour)

		key, err := cache.Get(context.Background())
		assert.Nil(t, key)
		assert.ErrorIs(t, err, fetchErr)
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		release := make(chan struct{})
		cache := auth.NewKeyCache(func(context.Context) (*rsa.PublicKey, error) {
			calls.Add(1)
			<-release
			return &rsa.PublicKey{N: big.NewInt(7), E: 65537}, nil
		}, time.Hour)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key, err := cache.Get(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, int64(7), key.N.Int64())
			}()
		}

		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("cancelled caller does not fail shared fetch", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		cache := auth.NewKeyCache(func(ctx context.Context) (*rsa.PublicKey, error) {
			calls.Add(1)
			close(started)
			select {
			case <-release:
				return &rsa.PublicKey{N: big.NewInt(11), E: 65537}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}, time.Hour)

		firstCtx, cancelFirst := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := cache.Get(firstCtx)
			firstErr <- err
		}()
		<-started

		type result struct {
			key *rsa.PublicKey
			err error
		}
		second := make(chan result, 1)
		go func() {
			key, err := cache.Get(context.Background())
			second <- result{key, err}
		}()

		cancelFirst()
		assert.ErrorIs(t, <-firstErr, context.Canceled, "the cancelled caller stops waiting")

		close(release)
		res := <-second
		require.NoError(t, res.err)
		assert.Equal(t, int64(11), res.key.N.Int64())
		assert.Equal(t, int32(1), calls.Load())
	})
}
