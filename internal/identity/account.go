package identity

import (
	"strings"

	"fedicache/internal/core"
)

// ServerName extracts the host of the server an account lives on from its
// origin URL.
func ServerName(account *core.Account) string {
	trimmed := core.TrimScheme(account.URL)
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// FullHandle is the @user@host form, with the host omitted for accounts on
// the viewer's own server.
func FullHandle(server string, account *core.Account) string {
	handle := "@" + account.Username + "@" + ServerName(account)
	return strings.Replace(handle, "@"+server, "", 1)
}

// ShortHandle is the @user form without a host.
func ShortHandle(account *core.Account) string {
	if account.Acct == "" {
		return ""
	}
	return "@" + account.Username
}

// CanonicalAcct rewrites an account's acct field to the normalized
// user@host derived from its origin URL. Servers routinely return a bare
// username here for objects they proxied from elsewhere.
func CanonicalAcct(server string, account *core.Account) {
	if handle, ok := NormalizeHandle(server, account.URL); ok {
		account.Acct = handle
	}
}
