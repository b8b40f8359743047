package resolver

import (
	"context"
	"strings"

	"fedicache/internal/core"
	"fedicache/internal/identity"
)

// ResolvePostByID resolves a post from a local numeric id or a full URI.
// URIs pointing at the viewer's own server are rewritten to local-id
// lookups; anything else is routed through the federation search path.
// Returns nil when the identifier cannot be resolved.
func (e *Engine) ResolvePostByID(ctx context.Context, rctx core.RequestContext, id string, opts ResolveOptions) *core.Post {
	if e.Cache.IsStopped(id) {
		e.Logger.Debug("skipping further processing for stopped post id", "id", id)
		resolutions.WithLabelValues("post", "stopped").Inc()
		return nil
	}

	ref := core.ParseRef(id)
	switch ref.Kind {
	case core.RefURI:
		return e.federatePost(ctx, rctx, ref.URI, opts)
	case core.RefLocalID:
	default:
		e.Logger.Error("malformed or unrecognized post id", "id", id)
		e.Cache.MarkStopped(id)
		resolutions.WithLabelValues("post", "malformed").Inc()
		return nil
	}

	key := core.PostKey(rctx, id).String()

	if post, done := e.cachedPost(key, opts.Force, func(p *core.Post) bool { return p.ID == id }); done {
		resolutions.WithLabelValues("post", "cached").Inc()
		return post
	}

	future, started := e.Cache.Flight(key, opts.Force, func(jobCtx context.Context) (core.CacheValue, error) {
		post, err := e.Client.FetchPostByID(jobCtx, id)
		if err != nil {
			e.Logger.Error("failed to fetch post", "id", id, "error", err)
			negative := e.negativeFor(id, err)
			e.Cache.Set(key, negative, true)
			return negative, nil
		}

		if post.Account != nil {
			identity.CanonicalAcct(rctx.Server, post.Account)
		}

		if strings.HasPrefix(post.URI, "https://"+rctx.Server) {
			// The current server issued the post, so its copy is the
			// authoritative one: publish it under the shared origin key too.
			e.Cache.Set(key, core.PostValue{Post: post}, true)
			e.Cache.Set(core.AuthoritativePostKey(rctx, post.URI).String(), core.PostValue{Post: post}, true)
			return core.PostValue{Post: post}, nil
		}

		if opts.Enrich {
			post = e.enrichPost(jobCtx, rctx, post, opts.Force)
		}
		e.Cache.Set(key, core.PostValue{Post: post}, true)
		return core.PostValue{Post: post}, nil
	})
	if started {
		resolutions.WithLabelValues("post", "fetched").Inc()
	} else {
		resolutions.WithLabelValues("post", "joined").Inc()
	}

	return awaitPost(future)
}

// federatePost resolves a remote post by URI through the search endpoint.
func (e *Engine) federatePost(ctx context.Context, rctx core.RequestContext, uri string, opts ResolveOptions) *core.Post {
	if e.Cache.IsStopped(uri) {
		e.Logger.Debug("skipping further processing for stopped post uri", "uri", uri)
		resolutions.WithLabelValues("post", "stopped").Inc()
		return nil
	}

	if strings.HasPrefix(uri, "https://"+rctx.Server) {
		// Local domain is authoritative; redirect to the local-id path.
		e.Logger.Info("local domain is authoritative, redirecting resolution", "uri", uri)
		return e.ResolvePostByID(ctx, rctx, lastSegment(uri, rctx.Server), opts)
	}

	if core.IsNumericID(uri) {
		return e.ResolvePostByID(ctx, rctx, uri, opts)
	}

	key := core.PostKey(rctx, uri).String()

	if post, done := e.cachedPost(key, opts.Force, func(p *core.Post) bool { return p.URI == uri }); done {
		resolutions.WithLabelValues("post", "cached").Inc()
		return post
	}

	future, _ := e.Cache.Flight(key, opts.Force, func(jobCtx context.Context) (core.CacheValue, error) {
		found, err := e.Client.SearchPosts(jobCtx, uri, rctx.Authenticated(), 1)
		if err != nil {
			e.Logger.Error("encountered error while federating post", "uri", uri, "error", err)
			negative := e.negativeFor(uri, err)
			e.Cache.Set(key, negative, true)
			return negative, nil
		}
		if len(found) == 0 {
			e.Logger.Error("post could not be federated, perhaps it no longer exists", "uri", uri)
			negative := core.NegativeValue{Code: 404}
			e.Cache.Set(key, negative, true)
			return negative, nil
		}

		post := found[0]
		if post.Account != nil {
			identity.CanonicalAcct(rctx.Server, post.Account)
		}

		if opts.Enrich {
			post = e.enrichPost(jobCtx, rctx, post, opts.Force)
		}

		e.Cache.Set(key, core.PostValue{Post: post}, true)
		return core.PostValue{Post: post}, nil
	})
	resolutions.WithLabelValues("post", "federated").Inc()

	return awaitPost(future)
}

// cachedPost inspects the cache for key. done=true means the caller can
// return the result as-is: a live matching value, a shared in-flight
// resolution, or a blocking negative sentinel.
func (e *Engine) cachedPost(key string, force bool, matches func(*core.Post) bool) (*core.Post, bool) {
	value, ok := e.Cache.Get(key, core.GetOptions{})
	if !ok {
		return nil, false
	}

	switch v := value.(type) {
	case core.PendingValue:
		return awaitPost(v.Future), true
	case core.NegativeValue:
		if core.NegativeBlocks(v.Code, force) {
			e.logNegative("post", key, v.Code)
			return nil, true
		}
		return nil, false
	case core.PostValue:
		if matches(v.Post) && !force {
			return v.Post, true
		}
		return nil, false
	default:
		// A value of the wrong shape is treated as a miss, not a fault.
		return nil, false
	}
}

// enrichPost merges authoritative engagement counters into a remote post
// when policy allows. Failures degrade to the unenriched copy.
func (e *Engine) enrichPost(ctx context.Context, rctx core.RequestContext, post *core.Post, force bool) *core.Post {
	if post.Visibility != core.VisibilityPublic && post.Visibility != core.VisibilityUnlisted {
		return post
	}
	if post.OriginHost() == rctx.Server {
		return post
	}
	if !e.Feeds.ShouldEnrich(post) {
		enrichments.WithLabelValues("skipped").Inc()
		return post
	}

	authoritative := e.FetchAuthoritativePost(ctx, rctx, post.URI, force)
	if authoritative == nil {
		e.Logger.Warn("authoritative stats could not be fetched", "uri", post.URI)
		enrichments.WithLabelValues("failed").Inc()
		return post
	}

	if post.ID != authoritative.ID && post.URI == authoritative.URI {
		post.ReblogsCount = authoritative.ReblogsCount
		post.RepliesCount = authoritative.RepliesCount
		post.FavouritesCount = authoritative.FavouritesCount
		enrichments.WithLabelValues("merged").Inc()
	}
	return post
}

// lastSegment strips a local URI down to the id issued by server.
func lastSegment(uri, server string) string {
	if i := strings.LastIndexByte(uri, '/'); i >= 0 && i < len(uri)-1 {
		return uri[i+1:]
	}
	return strings.TrimPrefix(uri, "https://"+server+"/")
}
