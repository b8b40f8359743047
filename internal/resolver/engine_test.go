package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fedicache/internal/cache"
	"fedicache/internal/config"
	"fedicache/internal/core"
	"fedicache/internal/feeds"
)

const (
	testServer = "home.tld"
	testViewer = "42"
)

// fakeClient serves canned objects and counts every network call.
type fakeClient struct {
	mu sync.Mutex

	postsByID map[string]*core.Post
	origin    map[string]*core.Post
	accounts  map[string]*core.Account
	rels      []*core.Relationship
	searchErr error
	fetchErr  error
	originErr error

	fetches  int
	searches int
	origins  int
	lookups  int

	gate chan struct{}
}

func (f *fakeClient) wait() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeClient) SearchPosts(_ context.Context, query string, _ bool, _ int) ([]*core.Post, error) {
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()
	f.wait()

	if f.searchErr != nil {
		return nil, f.searchErr
	}
	for _, post := range f.postsByID {
		if post.URI == query {
			return []*core.Post{post}, nil
		}
	}
	return nil, nil
}

func (f *fakeClient) SearchAccounts(_ context.Context, query string, _ bool, _ int) ([]*core.Account, error) {
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()

	if account, ok := f.accounts[query]; ok {
		return []*core.Account{account}, nil
	}
	return nil, nil
}

func (f *fakeClient) FetchPostByID(_ context.Context, id string) (*core.Post, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	f.wait()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if post, ok := f.postsByID[id]; ok {
		return post, nil
	}
	return nil, core.StatusError{Code: 404}
}

func (f *fakeClient) FetchAccountByID(_ context.Context, id string) (*core.Account, error) {
	if account, ok := f.accounts[id]; ok {
		return account, nil
	}
	return nil, core.StatusError{Code: 404}
}

func (f *fakeClient) LookupAccountByHandle(_ context.Context, handle string) (*core.Account, error) {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()

	if account, ok := f.accounts[handle]; ok {
		return account, nil
	}
	return nil, core.StatusError{Code: 404}
}

func (f *fakeClient) FetchRemoteOriginPost(_ context.Context, originHost, originID string) (*core.Post, error) {
	f.mu.Lock()
	f.origins++
	f.mu.Unlock()

	if f.originErr != nil {
		return nil, f.originErr
	}
	if post, ok := f.origin[originHost+"/"+originID]; ok {
		return post, nil
	}
	return nil, core.StatusError{Code: 404}
}

func (f *fakeClient) FetchRelationships(_ context.Context, _ []string) ([]*core.Relationship, error) {
	return f.rels, nil
}

func (f *fakeClient) counts() (fetches, searches, origins, lookups int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, f.searches, f.origins, f.lookups
}

func newTestEngine(t *testing.T, client core.FederationClient) *Engine {
	t.Helper()

	cfg := &config.Config{Server: testServer, ViewerID: testViewer, Language: "en"}

	f := &feeds.Feeds{Logger: slog.Default(), Config: cfg}
	require.NoError(t, f.Init(t.Context()))

	e := &Engine{
		Logger: slog.Default(),
		Config: cfg,
		Cache:  cache.New(100, time.Hour),
		Feeds:  f,
		Client: client,
	}
	require.NoError(t, e.Init(t.Context()))

	return e
}

func remoteAccount() *core.Account {
	return &core.Account{
		ID:             "a1",
		Username:       "user",
		Acct:           "user",
		URL:            "https://other.tld/@user",
		FollowersCount: 500,
		StatusesCount:  100,
		CreatedAt:      time.Now().Add(-365 * 24 * time.Hour),
	}
}

func remotePost(id string) *core.Post {
	return &core.Post{
		ID:         id,
		URI:        "https://other.tld/users/user/statuses/99",
		Account:    remoteAccount(),
		Visibility: core.VisibilityPublic,
		CreatedAt:  time.Now().Add(-time.Hour),
		Content:    "hello",
	}
}

func TestResolvePostByID(t *testing.T) {
	t.Parallel()

	t.Run("local id fetches then serves from cache", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{postsByID: map[string]*core.Post{"555": remotePost("555")}}
		e := newTestEngine(t, client)
		rctx := e.Config.RequestContext()

		post := e.ResolvePostByID(t.Context(), rctx, "555", ResolveOptions{})
		require.NotNil(t, post)
		require.Equal(t, "555", post.ID)

		again := e.ResolvePostByID(t.Context(), rctx, "555", ResolveOptions{})
		require.Same(t, post, again)

		fetches, _, _, _ := client.counts()
		require.Equal(t, 1, fetches)
	})

	t.Run("canonicalizes the author acct", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{postsByID: map[string]*core.Post{"555": remotePost("555")}}
		e := newTestEngine(t, client)

		post := e.ResolvePostByID(t.Context(), e.Config.RequestContext(), "555", ResolveOptions{})
		require.NotNil(t, post)
		require.Equal(t, "user@other.tld", post.Account.Acct)
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{
			postsByID: map[string]*core.Post{"555": remotePost("555")},
			gate:      make(chan struct{}),
		}
		e := newTestEngine(t, client)
		rctx := e.Config.RequestContext()

		const callers = 8
		results := make(chan *core.Post, callers)

		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- e.ResolvePostByID(t.Context(), rctx, "555", ResolveOptions{})
			}()
		}

		// Let every goroutine reach the flight before releasing the fetch.
		time.Sleep(50 * time.Millisecond)
		close(client.gate)
		wg.Wait()
		close(results)

		for post := range results {
			require.NotNil(t, post)
			require.Equal(t, "555", post.ID)
		}

		fetches, _, _, _ := client.counts()
		require.Equal(t, 1, fetches)
	})

	t.Run("malformed id is stopped", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{}
		e := newTestEngine(t, client)

		post := e.ResolvePostByID(t.Context(), e.Config.RequestContext(), "not a real id", ResolveOptions{})
		require.Nil(t, post)
		require.True(t, e.Cache.IsStopped("not a real id"))

		fetches, searches, _, _ := client.counts()
		require.Zero(t, fetches)
		require.Zero(t, searches)
	})

	t.Run("transport failure stops the identifier", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{fetchErr: errors.New("connection refused")}
		e := newTestEngine(t, client)
		rctx := e.Config.RequestContext()

		require.Nil(t, e.ResolvePostByID(t.Context(), rctx, "555", ResolveOptions{}))
		require.True(t, e.Cache.IsStopped("555"))

		// The stop marker short-circuits before any network call.
		require.Nil(t, e.ResolvePostByID(t.Context(), rctx, "555", ResolveOptions{}))

		fetches, _, _, _ := client.counts()
		require.Equal(t, 1, fetches)
	})
}

func TestFederatePostByURI(t *testing.T) {
	t.Parallel()

	const uri = "https://other.tld/users/user/statuses/99"

	t.Run("resolves through search", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{postsByID: map[string]*core.Post{"555": remotePost("555")}}
		e := newTestEngine(t, client)

		post := e.ResolvePostByID(t.Context(), e.Config.RequestContext(), uri, ResolveOptions{})
		require.NotNil(t, post)
		require.Equal(t, uri, post.URI)

		_, searches, _, _ := client.counts()
		require.Equal(t, 1, searches)
	})

	t.Run("miss caches a blocking negative", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{}
		e := newTestEngine(t, client)
		rctx := e.Config.RequestContext()

		require.Nil(t, e.ResolvePostByID(t.Context(), rctx, uri, ResolveOptions{}))
		require.Nil(t, e.ResolvePostByID(t.Context(), rctx, uri, ResolveOptions{}))

		_, searches, _, _ := client.counts()
		require.Equal(t, 1, searches)
	})

	t.Run("force retries a 404 negative", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{}
		e := newTestEngine(t, client)
		rctx := e.Config.RequestContext()

		require.Nil(t, e.ResolvePostByID(t.Context(), rctx, uri, ResolveOptions{}))
		require.Nil(t, e.ResolvePostByID(t.Context(), rctx, uri, ResolveOptions{Force: true}))

		_, searches, _, _ := client.counts()
		require.Equal(t, 2, searches)
	})

	t.Run("local uri is routed to the id path", func(t *testing.T) {
		t.Parallel()

		local := remotePost("777")
		local.URI = "https://" + testServer + "/users/alice/statuses/777"
		client := &fakeClient{postsByID: map[string]*core.Post{"777": local}}
		e := newTestEngine(t, client)

		post := e.ResolvePostByID(t.Context(), e.Config.RequestContext(), local.URI, ResolveOptions{})
		require.NotNil(t, post)
		require.Equal(t, "777", post.ID)

		fetches, searches, _, _ := client.counts()
		require.Equal(t, 1, fetches)
		require.Zero(t, searches)
	})
}

func TestEnrichment(t *testing.T) {
	t.Parallel()

	const uri = "https://other.tld/users/user/statuses/99"

	newClient := func() *fakeClient {
		authoritative := remotePost("99")
		authoritative.ReblogsCount = 10
		authoritative.FavouritesCount = 20
		authoritative.RepliesCount = 5
		authoritative.Content = "origin copy"

		return &fakeClient{
			postsByID: map[string]*core.Post{"555": remotePost("555")},
			origin:    map[string]*core.Post{"other.tld/99": authoritative},
		}
	}

	t.Run("merges only engagement counters", func(t *testing.T) {
		t.Parallel()

		client := newClient()
		e := newTestEngine(t, client)

		post := e.ResolvePostByID(t.Context(), e.Config.RequestContext(), "555", ResolveOptions{Enrich: true})
		require.NotNil(t, post)

		require.Equal(t, int64(10), post.ReblogsCount)
		require.Equal(t, int64(20), post.FavouritesCount)
		require.Equal(t, int64(5), post.RepliesCount)

		// Everything else stays the proxied copy.
		require.Equal(t, "555", post.ID)
		require.Equal(t, "hello", post.Content)

		_, _, origins, _ := client.counts()
		require.Equal(t, 1, origins)
	})

	t.Run("anonymous viewers enrich without stalling", func(t *testing.T) {
		t.Parallel()

		client := newClient()
		e := newTestEngine(t, client)
		anon := core.RequestContext{Server: testServer}

		done := make(chan *core.Post, 1)
		go func() {
			done <- e.ResolvePostByID(context.Background(), anon, uri, ResolveOptions{Enrich: true})
		}()

		select {
		case post := <-done:
			require.NotNil(t, post)
			require.Equal(t, int64(10), post.ReblogsCount)
			require.Equal(t, int64(20), post.FavouritesCount)
		case <-time.After(3 * time.Second):
			t.Fatal("anonymous enrichment never returned")
		}
	})

	t.Run("unreachable origin degrades and stops the uri", func(t *testing.T) {
		t.Parallel()

		client := newClient()
		client.originErr = errors.New("connection refused")
		e := newTestEngine(t, client)
		rctx := e.Config.RequestContext()

		post := e.ResolvePostByID(t.Context(), rctx, "555", ResolveOptions{Enrich: true})
		require.NotNil(t, post)
		require.Zero(t, post.ReblogsCount)
		require.True(t, e.Cache.IsStopped(uri))
	})

	t.Run("skips private posts", func(t *testing.T) {
		t.Parallel()

		client := newClient()
		private := remotePost("555")
		private.Visibility = core.VisibilityPrivate
		client.postsByID["555"] = private
		e := newTestEngine(t, client)

		post := e.ResolvePostByID(t.Context(), e.Config.RequestContext(), "555", ResolveOptions{Enrich: true})
		require.NotNil(t, post)

		_, _, origins, _ := client.counts()
		require.Zero(t, origins)
	})
}

func TestFetchAuthoritativePost(t *testing.T) {
	t.Parallel()

	t.Run("malformed uri is stopped", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{}
		e := newTestEngine(t, client)

		post := e.FetchAuthoritativePost(t.Context(), e.Config.RequestContext(), "ftp://weird", false)
		require.Nil(t, post)
		require.True(t, e.Cache.IsStopped("ftp://weird"))
	})

	t.Run("shared across viewers", func(t *testing.T) {
		t.Parallel()

		authoritative := remotePost("99")
		client := &fakeClient{origin: map[string]*core.Post{"other.tld/99": authoritative}}
		e := newTestEngine(t, client)

		rctxA := core.RequestContext{Server: testServer, ViewerID: "42"}
		rctxB := core.RequestContext{Server: testServer, ViewerID: "43"}

		require.NotNil(t, e.FetchAuthoritativePost(t.Context(), rctxA, authoritative.URI, false))
		require.NotNil(t, e.FetchAuthoritativePost(t.Context(), rctxB, authoritative.URI, false))

		_, _, origins, _ := client.counts()
		require.Equal(t, 1, origins)
	})
}

func TestResolveAccount(t *testing.T) {
	t.Parallel()

	t.Run("local handle uses lookup", func(t *testing.T) {
		t.Parallel()

		alice := &core.Account{ID: "a9", Username: "alice", Acct: "alice", URL: "https://" + testServer + "/@alice"}
		client := &fakeClient{accounts: map[string]*core.Account{"alice": alice}}
		e := newTestEngine(t, client)
		rctx := e.Config.RequestContext()

		account := e.ResolveAccountByHandle(t.Context(), rctx, "alice", false)
		require.NotNil(t, account)
		require.Equal(t, "alice", account.Acct)

		// Cached under the id key as well.
		require.True(t, e.Cache.Has(core.AccountKey(rctx, "a9").String()))

		_, _, _, lookups := client.counts()
		require.Equal(t, 1, lookups)
	})

	t.Run("remote handle federates through search", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{accounts: map[string]*core.Account{"user@other.tld": remoteAccount()}}
		e := newTestEngine(t, client)

		account := e.ResolveAccountByHandle(t.Context(), e.Config.RequestContext(), "@user@other.tld", false)
		require.NotNil(t, account)
		require.Equal(t, "user@other.tld", account.Acct)

		_, searches, _, lookups := client.counts()
		require.Equal(t, 1, searches)
		require.Zero(t, lookups)
	})

	t.Run("malformed handle is stopped", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{}
		e := newTestEngine(t, client)

		account := e.ResolveAccountByHandle(t.Context(), e.Config.RequestContext(), "https://other.tld", false)
		require.Nil(t, account)
		require.True(t, e.Cache.IsStopped("https://other.tld"))
	})

	t.Run("empty input resolves to nothing", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, &fakeClient{})
		require.Nil(t, e.ResolveAccountByHandle(t.Context(), e.Config.RequestContext(), "  ", false))
	})
}

func TestBulkFederatePosts(t *testing.T) {
	t.Parallel()

	found := remotePost("555")
	missing := &core.Post{URI: "https://gone.tld/users/x/statuses/1"}

	client := &fakeClient{postsByID: map[string]*core.Post{"555": found}}
	e := newTestEngine(t, client)

	posts := e.BulkFederatePosts(t.Context(), e.Config.RequestContext(), []*core.Post{found, missing}, false)

	require.Len(t, posts, 1)
	require.Equal(t, found.URI, posts[0].URI)
}

func TestFilterTimeline(t *testing.T) {
	t.Parallel()

	familiar := remotePost("1")
	stranger := remotePost("2")
	stranger.Account = remoteAccount()
	stranger.Account.ID = "a2"

	client := &fakeClient{rels: []*core.Relationship{{ID: "a1", Following: true}}}
	e := newTestEngine(t, client)
	e.Feeds.Override(feeds.SurfaceHome, feeds.Profile{feeds.PredicateOnlyFamiliarAccounts: true})

	kept := e.FilterTimeline(t.Context(), feeds.SurfaceHome, []*core.Post{familiar, stranger})

	require.Len(t, kept, 1)
	require.Equal(t, "1", kept[0].ID)
}
