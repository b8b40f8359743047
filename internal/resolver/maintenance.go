package resolver

import (
	"context"

	"github.com/samber/lo"

	"fedicache/internal/core"
	"fedicache/internal/identity"
	"fedicache/pkg/async"
)

// CachePost writes a post under its viewer-scoped id key. With
// overwrite=false an existing entry wins, which is how optimistic local
// mutations avoid clobbering a fresher fetch.
func (e *Engine) CachePost(rctx core.RequestContext, post *core.Post, overwrite bool) {
	e.Cache.Set(core.PostKey(rctx, post.ID).String(), core.PostValue{Post: post}, overwrite)
}

// CacheAccount writes an account under both its id key and its handle key.
func (e *Engine) CacheAccount(rctx core.RequestContext, account *core.Account, overwrite bool) {
	e.Cache.Set(core.AccountKey(rctx, account.ID).String(), core.AccountValue{Account: account}, overwrite)
	if handle, ok := identity.NormalizeHandle(rctx.Server, account.URL); ok {
		e.Cache.Set(core.AccountKey(rctx, handle).String(), core.AccountValue{Account: account}, overwrite)
	}
}

// RemoveCachedPost evicts a post on content removal.
func (e *Engine) RemoveCachedPost(rctx core.RequestContext, id string) {
	e.Cache.Delete(core.PostKey(rctx, id).String())
}

// RemoveCachedAccount evicts an account on removal or suspension.
func (e *Engine) RemoveCachedAccount(rctx core.RequestContext, id string) {
	e.Cache.Delete(core.AccountKey(rctx, id).String())
}

// BulkFederatePosts resolves a batch of posts by URI as independent
// concurrent tasks. One failing resolution never aborts its siblings; the
// result holds the posts that resolved, in input order.
func (e *Engine) BulkFederatePosts(ctx context.Context, rctx core.RequestContext, posts []*core.Post, enrich bool) []*core.Post {
	results := async.Settle(ctx, posts, func(jobCtx context.Context, post *core.Post) (*core.Post, error) {
		return e.ResolvePostByID(jobCtx, rctx, post.URI, ResolveOptions{Enrich: enrich}), nil
	})

	return lo.FilterMap(results, func(res async.Result[*core.Post], _ int) (*core.Post, bool) {
		return res.Value, res.Err == nil && res.Value != nil
	})
}
