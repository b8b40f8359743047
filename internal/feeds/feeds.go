package feeds

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"fedicache/internal/config"
	"fedicache/internal/core"
)

// BuildFeed extracts the enabled predicates of a profile, in a stable order.
func BuildFeed(lib *Library, profile Profile) []Predicate {
	names := lo.Keys(profile)
	sort.Strings(names)

	feed := make([]Predicate, 0, len(names))
	for _, name := range names {
		if !profile[name] {
			continue
		}
		if pred, ok := lib.byName(name); ok {
			feed = append(feed, pred)
		}
	}
	return feed
}

// PassesFeed evaluates a post against a built feed. Deny-listed authors
// always fail, a non-empty allow list fails non-members, exempt authors
// always pass, otherwise every predicate must keep the post.
func PassesFeed(post *core.Post, feed []Predicate, allow, deny, exempt []string) bool {
	author := ""
	if post.Account != nil {
		author = post.Account.ID
	}

	if lo.Contains(deny, author) {
		return false
	}
	if len(allow) > 0 && !lo.Contains(allow, author) {
		return false
	}
	if lo.Contains(exempt, author) {
		return true
	}

	for _, pred := range feed {
		if !pred(post) {
			return false
		}
	}
	return true
}

// Feeds owns the per-surface profiles and their compiled predicate sets.
type Feeds struct {
	Logger *slog.Logger
	Config *config.Config

	lib      *Library
	profiles map[Surface]Profile
}

func (f *Feeds) Init(_ context.Context) error {
	f.Logger = f.Logger.With("component", "feeds.Feeds")
	f.lib = NewLibrary(f.Config.Language)
	f.profiles = DefaultProfiles()
	return nil
}

// Override replaces a surface's profile with user preference overlays.
func (f *Feeds) Override(surface Surface, overrides Profile) {
	f.profiles[surface] = f.profiles[surface].Merge(overrides)
}

// Feed returns the compiled predicates for a surface, optionally bound to
// prefetched relationships for familiarity checks.
func (f *Feeds) Feed(surface Surface, rels ...*core.Relationship) []Predicate {
	lib := f.lib
	if len(rels) > 0 {
		lib = lib.WithRelationships(rels)
	}
	return BuildFeed(lib, f.profiles[surface])
}

// Passes evaluates one post against a surface's default feed.
func (f *Feeds) Passes(surface Surface, post *core.Post) bool {
	return PassesFeed(post, f.Feed(surface), nil, nil, nil)
}

// Apply filters a batch for a surface.
func (f *Feeds) Apply(surface Surface, posts []*core.Post) []*core.Post {
	feed := f.Feed(surface)
	return lo.Filter(posts, func(post *core.Post, _ int) bool {
		return PassesFeed(post, feed, nil, nil, nil)
	})
}

// ShouldCache is the caching-policy gate for objects arriving from streams
// or bulk federation.
func (f *Feeds) ShouldCache(post *core.Post) bool {
	return f.Passes(SurfaceCaching, post)
}

// ShouldEnrich is the enrichment-policy gate; the resolver additionally
// requires a remote origin and public/unlisted visibility.
func (f *Feeds) ShouldEnrich(post *core.Post) bool {
	return f.Passes(SurfaceEnrichment, post)
}
