// Package resolver orchestrates lookups of posts and accounts across the
// three identifier forms, consulting the cache store and, on miss, the
// federation client. It decides authoritativeness and triggers enrichment.
//
// No error escapes a public entry point: every path returns the resolved
// object or nil, with failures logged and recorded as negative cache
// sentinels so repeated callers fail fast.
package resolver

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"fedicache/internal/cache"
	"fedicache/internal/config"
	"fedicache/internal/core"
	"fedicache/internal/federation"
	"fedicache/internal/feeds"
	"fedicache/pkg/async"
)

var (
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedicache_resolutions_total",
		Help: "The total number of resolution requests by kind and outcome",
	}, []string{"kind", "outcome"})

	enrichments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedicache_enrichments_total",
		Help: "The total number of authoritative counter merges by outcome",
	}, []string{"outcome"})

	negativeHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedicache_negative_hits_total",
		Help: "The total number of resolutions suppressed by a negative sentinel",
	})
)

// ResolveOptions tune a single post resolution.
type ResolveOptions struct {
	// Force refetches even when a matching value is cached and retries
	// negative sentinels that allow it.
	Force bool
	// Enrich merges authoritative engagement counters for eligible posts.
	Enrich bool
}

// Engine is the resolution service. All network access funnels through
// Client; all state lives in Cache.
type Engine struct {
	Logger     *slog.Logger
	Config     *config.Config
	Federation *federation.Client

	Cache *cache.Store
	Feeds *feeds.Feeds

	// Client defaults to Federation. Tests substitute their own.
	Client core.FederationClient
}

func (e *Engine) Init(_ context.Context) error {
	e.Logger = e.Logger.With("component", "resolver.Engine")

	if e.Client == nil {
		e.Client = e.Federation
	}

	return nil
}

// awaitPost resolves a shared future down to a post or nil.
func awaitPost(future *async.JobHandle[core.CacheValue]) *core.Post {
	value, err := future.Wait()
	if err != nil {
		return nil
	}
	if post, ok := value.(core.PostValue); ok {
		return post.Post
	}
	return nil
}

// awaitAccount resolves a shared future down to an account or nil.
func awaitAccount(future *async.JobHandle[core.CacheValue]) *core.Account {
	value, err := future.Wait()
	if err != nil {
		return nil
	}
	if account, ok := value.(core.AccountValue); ok {
		return account.Account
	}
	return nil
}

// negativeFor converts a federation error into the sentinel to cache.
// Unreachable origins (transport failures without a status) additionally
// stop the identifier so no further attempt is made until the marker
// expires.
func (e *Engine) negativeFor(identifier string, err error) core.NegativeValue {
	code := core.ErrorCode(err)
	if !core.IsStatusError(err) {
		e.Cache.MarkStopped(identifier)
	}
	return core.NegativeValue{Code: code}
}

func (e *Engine) logNegative(kind, identifier string, code int) {
	negativeHits.Inc()
	switch code {
	case 401, 403, core.CodeInvalidIdentifier:
		e.Logger.Error("viewer is forbidden or lacks authorization", "kind", kind, "id", identifier)
	case 404:
		e.Logger.Error("the requested object cannot be found", "kind", kind, "id", identifier)
	case 429:
		e.Logger.Error("the request was rate-limited by the server", "kind", kind, "id", identifier)
	default:
		e.Logger.Error("the server is unresponsive", "kind", kind, "id", identifier, "code", code)
	}
}

// Relationships fetches viewer relationships for feed familiarity checks.
// Failures degrade to an empty set: unknown accounts count as unfamiliar.
func (e *Engine) Relationships(ctx context.Context, accountIDs []string) []*core.Relationship {
	if len(accountIDs) == 0 {
		return nil
	}
	rels, err := e.Client.FetchRelationships(ctx, accountIDs)
	if err != nil {
		e.Logger.Error("unable to retrieve relationships", "error", err)
		return nil
	}
	return rels
}

// FilterTimeline applies a surface's feed to a batch of posts, prefetching
// the viewer's relationships to the authors so familiarity predicates can
// answer.
func (e *Engine) FilterTimeline(ctx context.Context, surface feeds.Surface, posts []*core.Post) []*core.Post {
	ids := lo.Uniq(lo.FilterMap(posts, func(post *core.Post, _ int) (string, bool) {
		if post.Account == nil {
			return "", false
		}
		return post.Account.ID, true
	}))

	feed := e.Feeds.Feed(surface, e.Relationships(ctx, ids)...)

	return lo.Filter(posts, func(post *core.Post, _ int) bool {
		return feeds.PassesFeed(post, feed, nil, nil, nil)
	})
}
