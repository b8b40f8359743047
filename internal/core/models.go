package core

import (
	"time"
)

// Visibility is the audience of a post.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

// Post is a federated status. The URI is globally stable across servers,
// the ID is only meaningful on the server that issued it.
type Post struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
	URL string `json:"url,omitempty"`

	Account *Account `json:"account"`

	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`

	InReplyToID        string `json:"in_reply_to_id,omitempty"`
	InReplyToAccountID string `json:"in_reply_to_account_id,omitempty"`
	Reblog             *Post  `json:"reblog,omitempty"`

	ReblogsCount    int64 `json:"reblogs_count"`
	RepliesCount    int64 `json:"replies_count"`
	FavouritesCount int64 `json:"favourites_count"`

	Content     string `json:"content"`
	Text        string `json:"text,omitempty"`
	SpoilerText string `json:"spoiler_text,omitempty"`
	Language    string `json:"language,omitempty"`
	Sensitive   bool   `json:"sensitive"`

	MediaAttachments []MediaAttachment `json:"media_attachments,omitempty"`
	Application      *Application      `json:"application,omitempty"`

	// Per-viewer interaction flags. Only meaningful for authenticated reads.
	Reblogged  bool `json:"reblogged"`
	Favourited bool `json:"favourited"`
	Bookmarked bool `json:"bookmarked"`
	Pinned     bool `json:"pinned"`
	Muted      bool `json:"muted"`

	Filtered []FilterResult `json:"filtered,omitempty"`
}

// OriginHost returns the host of the server that issued the post, derived
// from its URI.
func (p *Post) OriginHost() string {
	trimmed := TrimScheme(p.URI)
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '/' {
			return trimmed[:i]
		}
	}
	return trimmed
}

// Account is a federated actor.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Acct        string `json:"acct"`
	URL         string `json:"url"`

	FollowersCount int64 `json:"followers_count"`
	StatusesCount  int64 `json:"statuses_count"`

	Bot          bool `json:"bot"`
	Locked       bool `json:"locked"`
	Discoverable bool `json:"discoverable"`
	Suspended    bool `json:"suspended,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Relationship describes how the viewer relates to another account.
type Relationship struct {
	ID string `json:"id"`

	Following      bool `json:"following"`
	ShowingReblogs bool `json:"showing_reblogs"`
	Notifying      bool `json:"notifying"`
	Requested      bool `json:"requested"`
	RequestedBy    bool `json:"requested_by"`
	Endorsed       bool `json:"endorsed"`

	Muting              bool `json:"muting"`
	MutingNotifications bool `json:"muting_notifications"`
	Blocking            bool `json:"blocking"`
	BlockedBy           bool `json:"blocked_by"`
	DomainBlocking      bool `json:"domain_blocking"`
}

type MediaAttachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url,omitempty"`
	Description string `json:"description,omitempty"`
}

type Application struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// FilterResult is a server-computed filter match attached to a post.
type FilterResult struct {
	Filter struct {
		Title        string   `json:"title"`
		Context      []string `json:"context"`
		FilterAction string   `json:"filter_action"`
	} `json:"filter"`
	KeywordMatches []string `json:"keyword_matches,omitempty"`
}

// HideAction reports whether the filter asks for the post to be dropped in
// the given context.
func (f FilterResult) HideAction(context string) bool {
	if f.Filter.FilterAction != "hide" {
		return false
	}
	for _, c := range f.Filter.Context {
		if c == context {
			return true
		}
	}
	return false
}

// TrimScheme strips a leading http:// or https:// from s.
func TrimScheme(s string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			return s[len(prefix):]
		}
	}
	return s
}
