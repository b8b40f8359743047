// Package cache implements the bounded TTL store holding resolved objects,
// in-flight resolution futures and negative sentinels. It is the concurrency
// control point for the whole engine: the single-flight rule lives here.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fedicache/internal/config"
	"fedicache/internal/core"
	"fedicache/pkg/async"
)

const (
	DefaultCapacity      = 1000
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 90 * time.Second

	stopPrefix = "stop:"
)

var (
	reads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedicache_cache_reads_total",
		Help: "The total number of cache reads by outcome",
	}, []string{"outcome"})

	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedicache_cache_evictions_total",
		Help: "The total number of entries evicted by LRU pressure",
	})

	stops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedicache_cache_stops_total",
		Help: "The total number of identifiers marked permanently stopped",
	})
)

type entry struct {
	value     core.CacheValue
	expiresAt time.Time
}

// Store is a bounded LRU with a fixed per-entry TTL. Writes never extend an
// existing entry's TTL; reads never extend it either.
type Store struct {
	Logger *slog.Logger
	Config *config.Config

	mu  sync.Mutex
	lru *simplelru.LRU[string, entry]

	ttl   time.Duration
	sweep time.Duration

	now func() time.Time
}

// New builds an isolated store, mainly for tests and embedding. The daemon
// path goes through Init with an injected Config instead.
func New(capacity int, ttl time.Duration) *Store {
	s := &Store{Logger: slog.Default(), ttl: ttl, sweep: DefaultSweepInterval, now: time.Now}
	s.lru, _ = simplelru.NewLRU[string, entry](capacity, nil)
	return s
}

func (s *Store) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "cache.Store")
	s.now = time.Now

	capacity := s.Config.CacheSize
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s.ttl = s.Config.CacheTTL
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	s.sweep = s.Config.CacheSweepInterval
	if s.sweep <= 0 {
		s.sweep = DefaultSweepInterval
	}

	var err error
	s.lru, err = simplelru.NewLRU[string, entry](capacity, nil)
	return err
}

// Run sweeps expired entries periodically. Reads also expire lazily, the
// sweep just keeps abandoned keys from pinning the LRU.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed := s.removeExpired()
			if removed > 0 {
				s.Logger.Debug("swept expired cache entries", "removed", removed)
			}
		}
	}
}

func (s *Store) removeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, key := range s.lru.Keys() {
		if e, ok := s.lru.Peek(key); ok && now.After(e.expiresAt) {
			s.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Get returns the live value for key. Expired entries count as misses and
// are dropped, unless opts.AllowStale tolerates them for availability.
func (s *Store) Get(key string, opts core.GetOptions) (core.CacheValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		reads.WithLabelValues("miss").Inc()
		return nil, false
	}

	if s.now().After(e.expiresAt) {
		if opts.AllowStale {
			reads.WithLabelValues("stale").Inc()
			return e.value, true
		}
		s.lru.Remove(key)
		reads.WithLabelValues("expired").Inc()
		return nil, false
	}

	reads.WithLabelValues("hit").Inc()
	return e.value, true
}

// Set stores value under key. With overwrite=false it is a no-op when the
// key already holds any live value (first writer wins); the return value
// reports whether the write happened. Every write stamps a fresh TTL.
func (s *Store) Set(key string, value core.CacheValue, overwrite bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.set(key, value, overwrite)
}

func (s *Store) set(key string, value core.CacheValue, overwrite bool) bool {
	if !overwrite {
		if e, ok := s.lru.Peek(key); ok && !s.now().After(e.expiresAt) {
			return false
		}
	}
	// Only capacity evictions count as LRU pressure. Explicit deletes and
	// expiry sweeps go through Remove and stay out of the counter.
	if s.lru.Add(key, entry{value: value, expiresAt: s.now().Add(s.ttl)}) {
		evictions.Inc()
	}
	return true
}

func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Peek(key)
	return ok && !s.now().After(e.expiresAt)
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Remove(key)
}

// MarkStopped flags key as permanently unresolvable until the marker's TTL
// runs out. The marker is independent of the main entry's lifecycle.
func (s *Store) MarkStopped(key string) {
	stops.Inc()
	s.Set(stopPrefix+key, core.NegativeValue{Code: core.CodeInvalidIdentifier}, true)
}

func (s *Store) IsStopped(key string) bool {
	return s.Has(stopPrefix + key)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lru.Len()
}

// Flight implements single-flight fetches. When a live pending future
// already exists for key and overwrite is false, it is shared; otherwise fn
// is started as the key's new future and stored before Flight returns.
// started reports whether this call created the future.
func (s *Store) Flight(key string, overwrite bool, fn func(context.Context) (core.CacheValue, error)) (future *async.JobHandle[core.CacheValue], started bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !overwrite {
		if e, ok := s.lru.Peek(key); ok && !s.now().After(e.expiresAt) {
			if pending, isPending := e.value.(core.PendingValue); isPending {
				return pending.Future, false
			}
		}
	}

	job := async.Job(fn)
	s.set(key, core.PendingValue{Future: job}, true)
	return job, true
}
