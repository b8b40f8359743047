package resolver

import (
	"context"
	"strings"

	"fedicache/internal/core"
	"fedicache/internal/identity"
)

// ResolveAccountByHandle resolves an account from a webfinger handle, URI
// or URL. The input is normalized first; a handle on the viewer's server is
// looked up directly, anything else goes through remote federation. The
// result is cached under both its handle key and its id key.
func (e *Engine) ResolveAccountByHandle(ctx context.Context, rctx core.RequestContext, input string, force bool) *core.Account {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	if e.Cache.IsStopped(input) {
		e.Logger.Debug("skipping further processing for stopped account identifier", "input", input)
		resolutions.WithLabelValues("account", "stopped").Inc()
		return nil
	}

	handle, ok := identity.NormalizeHandle(rctx.Server, input)
	if !ok {
		e.Logger.Warn("malformed or invalid account handle", "input", input)
		e.Cache.MarkStopped(input)
		resolutions.WithLabelValues("account", "malformed").Inc()
		return nil
	}

	key := core.AccountKey(rctx, handle).String()

	if account, done := e.cachedAccount(key, force, func(a *core.Account) bool {
		// Only a copy served by the handle's own server counts as settled;
		// proxied copies are refreshed.
		return a.Acct == handle && strings.Contains(a.URL, rctx.Server)
	}); done {
		resolutions.WithLabelValues("account", "cached").Inc()
		return account
	}

	if !identity.IsLocal(rctx.Server, handle) {
		e.Logger.Info("remote domain is authoritative, redirecting resolution", "handle", handle)
		return e.federateAccount(rctx, handle, force)
	}

	future, _ := e.Cache.Flight(key, force, func(jobCtx context.Context) (core.CacheValue, error) {
		account, err := e.Client.LookupAccountByHandle(jobCtx, handle)
		if err != nil {
			e.Logger.Error("encountered error while fetching account", "handle", handle, "error", err)
			negative := e.negativeFor(handle, err)
			e.Cache.Set(key, negative, true)
			return negative, nil
		}

		account.Acct = handle
		e.Cache.Set(key, core.AccountValue{Account: account}, true)
		e.Cache.Set(core.AccountKey(rctx, account.ID).String(), core.AccountValue{Account: account}, true)
		return core.AccountValue{Account: account}, nil
	})
	resolutions.WithLabelValues("account", "fetched").Inc()

	return awaitAccount(future)
}

// federateAccount resolves a remote handle through the search endpoint.
func (e *Engine) federateAccount(rctx core.RequestContext, handle string, force bool) *core.Account {
	key := core.AccountKey(rctx, handle).String()

	if account, done := e.cachedAccount(key, force, func(a *core.Account) bool {
		return a.Acct == handle
	}); done {
		resolutions.WithLabelValues("account", "cached").Inc()
		return account
	}

	future, _ := e.Cache.Flight(key, force, func(jobCtx context.Context) (core.CacheValue, error) {
		found, err := e.Client.SearchAccounts(jobCtx, handle, rctx.Authenticated(), 1)
		if err != nil {
			e.Logger.Error("encountered error while federating account", "handle", handle, "error", err)
			negative := e.negativeFor(handle, err)
			e.Cache.Set(key, negative, true)
			return negative, nil
		}
		if len(found) == 0 {
			e.Logger.Error("account could not be federated, perhaps it no longer exists", "handle", handle)
			negative := core.NegativeValue{Code: 404}
			e.Cache.Set(key, negative, true)
			return negative, nil
		}

		account := found[0]
		identity.CanonicalAcct(rctx.Server, account)

		e.Cache.Set(key, core.AccountValue{Account: account}, true)
		e.Cache.Set(core.AccountKey(rctx, account.ID).String(), core.AccountValue{Account: account}, true)
		return core.AccountValue{Account: account}, nil
	})
	resolutions.WithLabelValues("account", "federated").Inc()

	return awaitAccount(future)
}

// ResolveAccountByID resolves an account from a server-issued id. Cache
// first, then a direct fetch.
func (e *Engine) ResolveAccountByID(ctx context.Context, rctx core.RequestContext, id string, force bool) *core.Account {
	if strings.TrimSpace(id) == "" {
		return nil
	}

	key := core.AccountKey(rctx, id).String()

	if account, done := e.cachedAccount(key, force, func(a *core.Account) bool {
		return a.ID == id && strings.Contains(a.URL, rctx.Server)
	}); done {
		resolutions.WithLabelValues("account", "cached").Inc()
		return account
	}

	future, _ := e.Cache.Flight(key, force, func(jobCtx context.Context) (core.CacheValue, error) {
		account, err := e.Client.FetchAccountByID(jobCtx, id)
		if err != nil {
			e.Logger.Error("encountered error while fetching account id", "id", id, "error", err)
			negative := e.negativeFor(id, err)
			e.Cache.Set(key, negative, true)
			return negative, nil
		}

		handle, ok := identity.NormalizeHandle(rctx.Server, account.URL)
		if !ok {
			e.Logger.Error("malformed or invalid account webfinger address", "url", account.URL)
			negative := core.NegativeValue{Code: 404}
			e.Cache.Set(key, negative, true)
			return negative, nil
		}
		account.Acct = handle

		e.Cache.Set(key, core.AccountValue{Account: account}, true)
		return core.AccountValue{Account: account}, nil
	})
	resolutions.WithLabelValues("account", "fetched").Inc()

	return awaitAccount(future)
}

// cachedAccount mirrors cachedPost for account values.
func (e *Engine) cachedAccount(key string, force bool, matches func(*core.Account) bool) (*core.Account, bool) {
	value, ok := e.Cache.Get(key, core.GetOptions{})
	if !ok {
		return nil, false
	}

	switch v := value.(type) {
	case core.PendingValue:
		return awaitAccount(v.Future), true
	case core.NegativeValue:
		if core.NegativeBlocks(v.Code, force) {
			e.logNegative("account", key, v.Code)
			return nil, true
		}
		return nil, false
	case core.AccountValue:
		if matches(v.Account) && !force {
			return v.Account, true
		}
		return nil, false
	default:
		return nil, false
	}
}
