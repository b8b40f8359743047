// Package trends periodically pulls a trending feed from an external
// provider, scores it, and federates the winners through the resolution
// engine so they are served from the local cache.
package trends

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"

	"fedicache/internal/config"
	"fedicache/internal/core"
	"fedicache/internal/feeds"
	"fedicache/internal/resolver"
)

const (
	// Engagement weights and the exponential age decay per millisecond.
	reblogWeight    = 4.0
	favouriteWeight = 8.0
	replyWeight     = -1.0
	ageDecayPerMs   = -0.0001808449074

	topPostCount = 40

	defaultInterval = 15 * time.Minute
)

var (
	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedicache_trend_refreshes_total",
		Help: "The total number of trend refresh runs, by outcome",
	}, []string{"outcome"})
)

type Refresher struct {
	Logger *slog.Logger
	Config *config.Config
	Engine *resolver.Engine

	http *resty.Client

	refreshing atomic.Bool

	mu       sync.RWMutex
	trending []*core.Post
}

func (r *Refresher) Init(_ context.Context) error {
	r.Logger = r.Logger.With("component", "trends.Refresher")
	r.http = resty.New().SetHeader("Accept", "application/json")

	return nil
}

func (r *Refresher) Shutdown(_ context.Context) error {
	return r.http.Close()
}

func (r *Refresher) HealthCheck(_ context.Context) error {
	return nil
}

// Trending returns the latest refreshed batch, best first.
func (r *Refresher) Trending() []*core.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.trending
}

func (r *Refresher) Run(ctx context.Context) error {
	if r.Config.TrendsURL == "" {
		r.Logger.Info("no trends URL configured, refresher idle")
		<-ctx.Done()
		return nil
	}

	interval := r.Config.TrendsInterval
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh fetches, scores and federates one batch. Overlapping runs are
// collapsed: a refresh already in flight makes this call a no-op.
func (r *Refresher) Refresh(ctx context.Context) {
	if !r.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer r.refreshing.Store(false)

	posts, err := r.fetch(ctx)
	if err != nil {
		refreshes.WithLabelValues("error").Inc()
		r.Logger.Error("cannot fetch trending posts", "error", err)
		return
	}

	top := TopPosts(posts, time.Now(), topPostCount)

	federated := r.Engine.BulkFederatePosts(ctx, r.Config.RequestContext(), top, true)
	federated = r.Engine.FilterTimeline(ctx, feeds.SurfaceTrending, federated)
	sortByScore(federated, time.Now())

	r.mu.Lock()
	r.trending = federated
	r.mu.Unlock()

	refreshes.WithLabelValues("ok").Inc()
	r.Logger.Info("trending posts refreshed",
		"fetched", len(posts), "federated", len(federated))
}

func (r *Refresher) fetch(ctx context.Context) ([]*core.Post, error) {
	res, err := r.http.R().
		WithContext(ctx).
		SetResult(&[]*core.Post{}).
		Get(r.Config.TrendsURL)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, core.StatusError{Code: res.StatusCode()}
	}

	return *res.Result().(*[]*core.Post), nil
}

// Score rates a post by engagement, discounted exponentially by age.
func Score(post *core.Post, now time.Time) float64 {
	ageMs := float64(now.Sub(post.CreatedAt).Milliseconds())

	return reblogWeight*float64(post.ReblogsCount) +
		favouriteWeight*float64(post.FavouritesCount) +
		replyWeight*float64(post.RepliesCount) +
		ageDecayPerMs*ageMs
}

// TopPosts returns the n best-scoring posts, best first. The input slice is
// left untouched.
func TopPosts(posts []*core.Post, now time.Time, n int) []*core.Post {
	ranked := make([]*core.Post, len(posts))
	copy(ranked, posts)

	sortByScore(ranked, now)

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func sortByScore(posts []*core.Post, now time.Time) {
	sort.SliceStable(posts, func(i, j int) bool {
		return Score(posts[i], now) > Score(posts[j], now)
	})
}
