// Package identity normalizes the ambiguous identifier forms an account may
// be referenced by (URI, URL, webfinger handle, bare username) into one
// canonical user@host shape. Every account cache key is built from its
// output.
package identity

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	webfingerRe     = regexp.MustCompile(`(?i)^\w+@[a-z0-9][\w.]+\.[a-z]+$`)
	localUsernameRe = regexp.MustCompile(`(?i)^[a-z0-9_]{1,30}$`)
	statusSuffixRe  = regexp.MustCompile(`(?i)/statuses/[0-9a-z/]+$`)
)

// NormalizeHandle maps a raw URI, URL or handle to a canonical user@host
// (no leading @), or a bare username for local accounts. It is pure and
// deterministic; ok=false means the input cannot name an account and the
// caller must treat the lookup as unresolvable.
func NormalizeHandle(server, input string) (string, bool) {
	if strings.Contains(input, "/tags/") {
		return "", false
	}

	pre := strings.Replace(input, "https://", "", 1)
	pre = strings.Replace(pre, "/"+server+"/@", "", 1)

	// Fast path: already user@host, possibly with leading @s.
	bare := strings.TrimLeft(pre, "@")
	if webfingerRe.MatchString(bare) {
		return bare, true
	}

	normalized := strings.Replace(pre, "https://", "", 1)
	normalized = strings.Replace(normalized, "/users/", "/@", 1)
	normalized = strings.Replace(normalized, "/u/", "/@", 1)
	normalized = strings.Replace(normalized, "@@", "@", 1)
	normalized = strings.TrimLeft(normalized, "@")
	normalized = statusSuffixRe.ReplaceAllString(normalized, "")

	switch {
	case strings.Contains(normalized, "/@"):
		split := strings.SplitN(normalized, "/@", 2)
		return split[1] + "@" + split[0], true

	case !strings.Contains(normalized, "/") &&
		!strings.HasPrefix(normalized, "@") &&
		strings.Count(normalized, "@") == 1:
		return normalized, true

	case localUsernameRe.MatchString(normalized):
		return normalized, true

	default:
		slog.Warn("malformed account URI or URL", "input", input)
		return "", false
	}
}

// Host returns the host portion of a normalized handle, or the given server
// for bare local usernames.
func Host(server, handle string) string {
	if i := strings.LastIndex(handle, "@"); i >= 0 {
		return handle[i+1:]
	}
	return server
}

// IsLocal reports whether a normalized handle names an account on server.
func IsLocal(server, handle string) bool {
	return Host(server, handle) == server
}
