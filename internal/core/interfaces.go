package core

import (
	"context"
)

// FederationClient is the narrow capability the resolution engine uses for
// all network access. Implementations own transport timeouts; the engine
// adds none of its own.
type FederationClient interface {
	SearchPosts(ctx context.Context, query string, resolve bool, limit int) ([]*Post, error)
	SearchAccounts(ctx context.Context, query string, resolve bool, limit int) ([]*Account, error)

	FetchPostByID(ctx context.Context, id string) (*Post, error)
	FetchAccountByID(ctx context.Context, id string) (*Account, error)
	LookupAccountByHandle(ctx context.Context, handle string) (*Account, error)

	// FetchRemoteOriginPost performs a plain unauthenticated GET against the
	// origin server's public API, explicitly without an Authorization header.
	FetchRemoteOriginPost(ctx context.Context, originHost, originID string) (*Post, error)

	FetchRelationships(ctx context.Context, accountIDs []string) ([]*Relationship, error)
}

// GetOptions tunes a single cache read.
type GetOptions struct {
	// AllowStale returns an expired entry instead of treating it as a miss.
	AllowStale bool
}

// Cache is the bounded TTL store underlying every resolution path.
type Cache interface {
	Get(key string, opts GetOptions) (CacheValue, bool)
	// Set stores value under key and reports whether it was written. With
	// overwrite=false the write is a no-op when the key already holds any
	// live value.
	Set(key string, value CacheValue, overwrite bool) bool
	Has(key string) bool
	Delete(key string)

	MarkStopped(key string)
	IsStopped(key string) bool
}
