package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"fedicache/internal/core"
	"fedicache/pkg/async"
)

func testStore(capacity int, ttl time.Duration) (*Store, *time.Time) {
	now := time.Now()

	s := New(capacity, ttl)
	s.now = func() time.Time { return now }

	return s, &now
}

func TestStore_SetGet(t *testing.T) {
	t.Parallel()

	s, _ := testStore(10, time.Hour)
	post := &core.Post{ID: "1"}

	require.True(t, s.Set("k", core.PostValue{Post: post}, true))

	value, ok := s.Get("k", core.GetOptions{})
	require.True(t, ok)
	require.Equal(t, post, value.(core.PostValue).Post)
}

func TestStore_TTL(t *testing.T) {
	t.Parallel()

	t.Run("expired entry is a miss", func(t *testing.T) {
		t.Parallel()

		s, now := testStore(10, time.Hour)
		s.Set("k", core.PostValue{Post: &core.Post{ID: "1"}}, true)

		*now = now.Add(2 * time.Hour)

		_, ok := s.Get("k", core.GetOptions{})
		require.False(t, ok)
		require.Equal(t, 0, s.Len())
	})

	t.Run("stale read tolerates expiry", func(t *testing.T) {
		t.Parallel()

		s, now := testStore(10, time.Hour)
		s.Set("k", core.PostValue{Post: &core.Post{ID: "1"}}, true)

		*now = now.Add(2 * time.Hour)

		value, ok := s.Get("k", core.GetOptions{AllowStale: true})
		require.True(t, ok)
		require.Equal(t, "1", value.(core.PostValue).Post.ID)
	})

	t.Run("reads never extend the lifetime", func(t *testing.T) {
		t.Parallel()

		s, now := testStore(10, time.Hour)
		s.Set("k", core.PostValue{Post: &core.Post{ID: "1"}}, true)

		*now = now.Add(59 * time.Minute)
		_, ok := s.Get("k", core.GetOptions{})
		require.True(t, ok)

		*now = now.Add(2 * time.Minute)
		_, ok = s.Get("k", core.GetOptions{})
		require.False(t, ok)
	})
}

func TestStore_Overwrite(t *testing.T) {
	t.Parallel()

	t.Run("first writer wins", func(t *testing.T) {
		t.Parallel()

		s, _ := testStore(10, time.Hour)

		require.True(t, s.Set("k", core.PostValue{Post: &core.Post{ID: "1"}}, false))
		require.False(t, s.Set("k", core.PostValue{Post: &core.Post{ID: "2"}}, false))

		value, _ := s.Get("k", core.GetOptions{})
		require.Equal(t, "1", value.(core.PostValue).Post.ID)
	})

	t.Run("overwrite replaces", func(t *testing.T) {
		t.Parallel()

		s, _ := testStore(10, time.Hour)

		s.Set("k", core.PostValue{Post: &core.Post{ID: "1"}}, false)
		require.True(t, s.Set("k", core.PostValue{Post: &core.Post{ID: "2"}}, true))

		value, _ := s.Get("k", core.GetOptions{})
		require.Equal(t, "2", value.(core.PostValue).Post.ID)
	})

	t.Run("expired entries never win", func(t *testing.T) {
		t.Parallel()

		s, now := testStore(10, time.Hour)
		s.Set("k", core.PostValue{Post: &core.Post{ID: "1"}}, true)

		*now = now.Add(2 * time.Hour)

		require.True(t, s.Set("k", core.PostValue{Post: &core.Post{ID: "2"}}, false))
	})
}

// Not parallel: the only test exercising capacity evictions, so it can
// assert on the process-wide eviction counter.
func TestStore_LRUBound(t *testing.T) {
	s, now := testStore(2, time.Hour)

	before := testutil.ToFloat64(evictions)

	s.Set("a", core.PostValue{Post: &core.Post{ID: "a"}}, true)
	s.Set("b", core.PostValue{Post: &core.Post{ID: "b"}}, true)

	// Explicit deletes and expiry sweeps are not LRU pressure.
	s.Delete("a")
	require.Equal(t, before, testutil.ToFloat64(evictions))

	s.Set("a", core.PostValue{Post: &core.Post{ID: "a"}}, true)
	*now = now.Add(2 * time.Hour)
	require.Equal(t, 2, s.removeExpired())
	require.Equal(t, before, testutil.ToFloat64(evictions))

	s.Set("a", core.PostValue{Post: &core.Post{ID: "a"}}, true)
	s.Set("b", core.PostValue{Post: &core.Post{ID: "b"}}, true)
	s.Set("c", core.PostValue{Post: &core.Post{ID: "c"}}, true)

	require.Equal(t, 2, s.Len())
	require.False(t, s.Has("a"))
	require.True(t, s.Has("b"))
	require.True(t, s.Has("c"))
	require.Equal(t, before+1, testutil.ToFloat64(evictions))
}

func TestStore_Stopped(t *testing.T) {
	t.Parallel()

	s, now := testStore(10, time.Hour)

	require.False(t, s.IsStopped("bogus"))
	s.MarkStopped("bogus")
	require.True(t, s.IsStopped("bogus"))

	// The marker honors the TTL like any other entry.
	*now = now.Add(2 * time.Hour)
	require.False(t, s.IsStopped("bogus"))
}

func TestStore_Sweep(t *testing.T) {
	t.Parallel()

	s, now := testStore(10, time.Hour)
	s.Set("a", core.PostValue{Post: &core.Post{ID: "a"}}, true)
	s.Set("b", core.PostValue{Post: &core.Post{ID: "b"}}, true)

	*now = now.Add(2 * time.Hour)
	s.Set("c", core.PostValue{Post: &core.Post{ID: "c"}}, true)

	require.Equal(t, 2, s.removeExpired())
	require.Equal(t, 1, s.Len())
	require.True(t, s.Has("c"))
}

func TestStore_Flight(t *testing.T) {
	t.Parallel()

	t.Run("concurrent callers share one future", func(t *testing.T) {
		t.Parallel()

		s := New(10, time.Hour)
		release := make(chan struct{})

		first, started := s.Flight("k", false, func(context.Context) (core.CacheValue, error) {
			<-release
			return core.PostValue{Post: &core.Post{ID: "1"}}, nil
		})
		require.True(t, started)

		second, started := s.Flight("k", false, func(context.Context) (core.CacheValue, error) {
			t.Fatal("second fetch must not start")
			return nil, nil
		})
		require.False(t, started)
		require.Same(t, first, second)

		close(release)

		var wg sync.WaitGroup
		for _, future := range []*async.JobHandle[core.CacheValue]{first, second} {
			wg.Add(1)
			go func() {
				defer wg.Done()

				value, err := future.Wait()
				require.NoError(t, err)
				require.Equal(t, "1", value.(core.PostValue).Post.ID)
			}()
		}
		wg.Wait()
	})

	t.Run("overwrite starts a fresh fetch", func(t *testing.T) {
		t.Parallel()

		s := New(10, time.Hour)
		release := make(chan struct{})

		_, started := s.Flight("k", false, func(context.Context) (core.CacheValue, error) {
			<-release
			return core.PostValue{Post: &core.Post{ID: "1"}}, nil
		})
		require.True(t, started)

		second, started := s.Flight("k", true, func(context.Context) (core.CacheValue, error) {
			return core.PostValue{Post: &core.Post{ID: "2"}}, nil
		})
		require.True(t, started)

		value, err := second.Wait()
		require.NoError(t, err)
		require.Equal(t, "2", value.(core.PostValue).Post.ID)

		close(release)
	})

	t.Run("settled value does not share", func(t *testing.T) {
		t.Parallel()

		s := New(10, time.Hour)
		s.Set("k", core.PostValue{Post: &core.Post{ID: "1"}}, true)

		_, started := s.Flight("k", false, func(context.Context) (core.CacheValue, error) {
			return core.PostValue{Post: &core.Post{ID: "2"}}, nil
		})
		require.True(t, started)
	})
}
