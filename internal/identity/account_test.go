package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fedicache/internal/core"
	"fedicache/internal/identity"
)

func TestCanonicalAcct(t *testing.T) {
	t.Parallel()

	t.Run("rewrites proxied bare username", func(t *testing.T) {
		t.Parallel()

		account := &core.Account{Acct: "user", URL: "https://example.com/@user"}
		identity.CanonicalAcct(server, account)

		require.Equal(t, "user@example.com", account.Acct)
	})

	t.Run("keeps acct on malformed url", func(t *testing.T) {
		t.Parallel()

		account := &core.Account{Acct: "user", URL: "https://example.com"}
		identity.CanonicalAcct(server, account)

		require.Equal(t, "user", account.Acct)
	})
}

func TestFullHandle(t *testing.T) {
	t.Parallel()

	remote := &core.Account{Username: "user", URL: "https://example.com/@user"}
	require.Equal(t, "@user@example.com", identity.FullHandle(server, remote))

	local := &core.Account{Username: "alice", URL: "https://" + server + "/@alice"}
	require.Equal(t, "@alice", identity.FullHandle(server, local))
}

func TestServerName(t *testing.T) {
	t.Parallel()

	account := &core.Account{URL: "https://example.com/@user"}
	require.Equal(t, "example.com", identity.ServerName(account))
}
