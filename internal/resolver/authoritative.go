package resolver

import (
	"context"
	"strings"

	"fedicache/internal/core"
	"fedicache/internal/identity"
)

// FetchAuthoritativePost fetches a post's ground-truth snapshot directly
// from its origin server, unauthenticated. The result is cached under a
// viewer-independent key, since the origin's copy is the same for everyone.
// Returns nil when the origin cannot be reached or refuses.
func (e *Engine) FetchAuthoritativePost(ctx context.Context, rctx core.RequestContext, uri string, force bool) *core.Post {
	if e.Cache.IsStopped(uri) {
		e.Logger.Debug("skipping further processing for stopped post uri", "uri", uri)
		resolutions.WithLabelValues("authoritative", "stopped").Inc()
		return nil
	}

	if core.IsNumericID(uri) {
		e.Logger.Info("uri parameter was passed an id, redirecting resolution", "id", uri)
		return e.ResolvePostByID(ctx, rctx, uri, ResolveOptions{Force: force})
	}

	segments := strings.Split(core.TrimScheme(uri), "/")
	if !strings.HasPrefix(uri, "https://") || len(segments) < 3 {
		e.Logger.Error("malformed or unrecognized post uri", "uri", uri)
		e.Cache.MarkStopped(uri)
		resolutions.WithLabelValues("authoritative", "malformed").Inc()
		return nil
	}

	originHost := segments[0]
	originID := segments[len(segments)-1]

	if originHost == rctx.Server {
		// The local server is itself authoritative for this post.
		e.Logger.Info("local domain is authoritative, redirecting resolution", "id", originID)
		return e.ResolvePostByID(ctx, rctx, originID, ResolveOptions{})
	}

	key := core.AuthoritativePostKey(rctx, uri).String()

	if post, done := e.cachedPost(key, force, func(p *core.Post) bool { return p.URI == uri }); done {
		resolutions.WithLabelValues("authoritative", "cached").Inc()
		return post
	}

	future, _ := e.Cache.Flight(key, force, func(jobCtx context.Context) (core.CacheValue, error) {
		post, err := e.Client.FetchRemoteOriginPost(jobCtx, originHost, originID)
		if err != nil {
			e.Logger.Error("authoritative post could not be fetched", "uri", uri, "error", err)
			negative := e.negativeFor(uri, err)
			e.Cache.Set(key, negative, true)
			return negative, nil
		}

		if post.Account != nil {
			identity.CanonicalAcct(rctx.Server, post.Account)
		}

		e.Cache.Set(key, core.PostValue{Post: post}, true)
		return core.PostValue{Post: post}, nil
	})
	resolutions.WithLabelValues("authoritative", "fetched").Inc()

	return awaitPost(future)
}
