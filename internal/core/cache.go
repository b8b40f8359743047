package core

import (
	"strings"

	"fedicache/pkg/async"
)

// EntityKind selects the cache namespace for a key.
type EntityKind string

const (
	EntityPost    EntityKind = "post"
	EntityAccount EntityKind = "account"
	// EntityOrigin namespaces authoritative origin snapshots. It must stay
	// disjoint from EntityPost: anonymous viewers render an empty viewer
	// segment, so the kind is the only thing separating their post keys
	// from the shared origin keys.
	EntityOrigin EntityKind = "origin"
)

// CacheKey addresses a single cached object. Viewer-scoped keys carry the
// viewing account id; authoritative keys leave Viewer empty so that every
// viewer shares the origin server's snapshot.
type CacheKey struct {
	Server string
	Viewer string
	Kind   EntityKind
	ID     string
}

func (k CacheKey) String() string {
	parts := make([]string, 0, 4)
	parts = append(parts, k.Server)
	if k.Viewer != "" {
		parts = append(parts, k.Viewer)
	}
	parts = append(parts, string(k.Kind), k.ID)
	return strings.Join(parts, ":")
}

// PostKey is the viewer-scoped key for a post id or URI.
func PostKey(rctx RequestContext, id string) CacheKey {
	return CacheKey{Server: rctx.Server, Viewer: rctx.ViewerID, Kind: EntityPost, ID: id}
}

// AuthoritativePostKey is the viewer-independent key for an origin snapshot.
func AuthoritativePostKey(rctx RequestContext, uri string) CacheKey {
	return CacheKey{Server: rctx.Server, Kind: EntityOrigin, ID: uri}
}

// AccountKey is the viewer-scoped key for an account id or normalized handle.
func AccountKey(rctx RequestContext, id string) CacheKey {
	return CacheKey{Server: rctx.Server, Viewer: rctx.ViewerID, Kind: EntityAccount, ID: id}
}

// ValueKind discriminates CacheValue variants.
type ValueKind int

const (
	ValuePost ValueKind = iota
	ValueAccount
	ValuePending
	ValueNegative
)

// CacheValue is the tagged union stored per cache key: a resolved object, an
// in-flight resolution future shared by concurrent callers, or a negative
// sentinel recording why the last attempt failed.
type CacheValue interface {
	Kind() ValueKind
}

type PostValue struct {
	Post *Post
}

func (PostValue) Kind() ValueKind { return ValuePost }

type AccountValue struct {
	Account *Account
}

func (AccountValue) Kind() ValueKind { return ValueAccount }

// PendingValue holds the single in-flight resolution for its key. Callers
// observing it must await the same future instead of issuing a second fetch.
type PendingValue struct {
	Future *async.JobHandle[CacheValue]
}

func (PendingValue) Kind() ValueKind { return ValuePending }

// NegativeValue records a failed resolution with an HTTP-status-like code.
type NegativeValue struct {
	Code int
}

func (NegativeValue) Kind() ValueKind { return ValueNegative }

// CodeInvalidIdentifier is the synthetic code marking a permanently
// malformed identifier (418, repurposed as an internal "never retry" marker).
const CodeInvalidIdentifier = 418

// NegativeBlocks reports whether a cached negative code suppresses a new
// attempt. 401/403/418/429 hold until the sentinel expires; 404 and 5xx may
// be retried under force.
func NegativeBlocks(code int, force bool) bool {
	switch code {
	case 401, 403, CodeInvalidIdentifier, 429:
		return true
	case 404, 500, 501, 503:
		return !force
	default:
		return !force
	}
}

// RequestContext carries the viewer-dependent parts of every resolution
// instead of reading them from ambient state.
type RequestContext struct {
	// Server is the host of the server the viewer is logged into.
	Server string
	// ViewerID is the viewer's account id on that server; empty for
	// anonymous reads.
	ViewerID string
}

// Authenticated reports whether remote searches may ask the server to
// resolve unseen objects on the viewer's behalf.
func (r RequestContext) Authenticated() bool {
	return r.ViewerID != ""
}
