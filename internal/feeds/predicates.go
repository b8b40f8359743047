// Package feeds is the filtering pipeline deciding which posts a display
// surface shows, which posts are worth caching, and which are worth
// enriching with authoritative counters.
package feeds

import (
	"strings"
	"time"

	"fedicache/internal/core"
)

// Predicate reports whether a post should be kept.
type Predicate func(*core.Post) bool

// Predicate names, used as profile keys.
const (
	PredicateAlwaysLargeAccounts  = "alwaysLargeAccounts"
	PredicateOnlyFamiliarAccounts = "onlyFamiliarAccounts"
	PredicateExcludeBots          = "excludeBots"
	PredicateExcludeLocked        = "excludeLockedAccounts"
	PredicateExcludeNewAccounts   = "excludeNewAccounts"
	PredicateExcludeSpammy        = "excludeSpammyAccounts"
	PredicateOnlyLanguage         = "onlyPreferredLanguage"
	PredicateExcludeBoosts        = "excludeBoosts"
	PredicateExcludeCrossposts    = "excludeCrossposts"
	PredicateExcludeBirdsite      = "excludeBirdsite"
	PredicateExcludeNSFW          = "excludeNSFW"
	PredicateExcludeReplies       = "excludeReplies"
)

const (
	largeAccountFollowers  = 1000
	newAccountMinFollowers = 100
	newAccountMinAge       = 30 * 24 * time.Hour
	spammyPostsPerDay      = 288
)

var nsfwKeywords = []string{"nsfw", "nudity", "porn"}

// Library builds predicates bound to the viewer's language and, when
// prefetched, relationship data for the accounts under evaluation.
type Library struct {
	Language string

	relationships map[string]*core.Relationship
	now           func() time.Time
}

func NewLibrary(language string) *Library {
	return &Library{Language: strings.ToLower(language), now: time.Now}
}

// WithRelationships returns a copy of the library that can answer
// familiarity questions for the given accounts. Accounts without a
// relationship entry count as unfamiliar.
func (l *Library) WithRelationships(rels []*core.Relationship) *Library {
	out := *l
	out.relationships = make(map[string]*core.Relationship, len(rels))
	for _, rel := range rels {
		out.relationships[rel.ID] = rel
	}
	return &out
}

// neverExclude keeps a post the viewer already engaged with, or one from a
// large account, regardless of what the enabled predicates say.
func (l *Library) neverExclude(post *core.Post) bool {
	return post.Reblogged ||
		post.Favourited ||
		post.Bookmarked ||
		largeAccount(post)
}

func largeAccount(post *core.Post) bool {
	return post.Account != nil && post.Account.FollowersCount > largeAccountFollowers
}

func (l *Library) alwaysLargeAccounts(post *core.Post) bool {
	return largeAccount(post)
}

func (l *Library) onlyFamiliarAccounts(post *core.Post) bool {
	if post.Account == nil {
		return false
	}
	rel, ok := l.relationships[post.Account.ID]
	if !ok {
		return false
	}

	familiar := rel.Following || rel.ShowingReblogs || rel.Notifying ||
		rel.Requested || rel.RequestedBy || rel.Endorsed
	hostile := rel.Muting || rel.Blocking || rel.BlockedBy || rel.DomainBlocking

	return familiar && !hostile
}

func (l *Library) excludeBots(post *core.Post) bool {
	excluded := post.Account != nil && post.Account.Bot
	return !excluded || l.neverExclude(post)
}

func (l *Library) excludeLockedAccounts(post *core.Post) bool {
	excluded := post.Account != nil && post.Account.Locked
	return !excluded || l.neverExclude(post)
}

func (l *Library) excludeNewAccounts(post *core.Post) bool {
	if post.Account == nil {
		return true
	}
	age := l.now().Sub(post.Account.CreatedAt)
	excluded := post.Account.FollowersCount < newAccountMinFollowers || age < newAccountMinAge
	return !excluded || l.neverExclude(post)
}

func (l *Library) excludeSpammyAccounts(post *core.Post) bool {
	if post.Account == nil {
		return true
	}
	days := l.now().Sub(post.Account.CreatedAt).Hours() / 24
	if days <= 0 {
		days = 1
	}
	excluded := strings.Contains(strings.ToLower(post.Account.DisplayName), "nuop") ||
		float64(post.Account.StatusesCount)/days > spammyPostsPerDay
	return !excluded || l.neverExclude(post)
}

func (l *Library) onlyPreferredLanguage(post *core.Post) bool {
	if post.Language == "" {
		return true
	}
	return strings.Contains(l.Language, strings.ToLower(post.Language)) || l.neverExclude(post)
}

func (l *Library) excludeBoosts(post *core.Post) bool {
	return post.Reblog == nil || l.neverExclude(post)
}

func (l *Library) excludeCrossposts(post *core.Post) bool {
	excluded := post.Application != nil &&
		strings.Contains(strings.ToLower(post.Application.Name), "cross")
	return !excluded || l.neverExclude(post)
}

func (l *Library) excludeBirdsite(post *core.Post) bool {
	content := strings.ToLower(post.Content)
	excluded := strings.Contains(content, "twitter.com") || strings.Contains(content, "t.co")
	return !excluded || l.neverExclude(post)
}

func (l *Library) excludeNSFW(post *core.Post) bool {
	spoiler := strings.ToLower(post.SpoilerText)
	content := strings.ToLower(post.Content)

	excluded := false
	for _, kw := range nsfwKeywords {
		if strings.Contains(spoiler, kw) || strings.Contains(content, kw) {
			excluded = true
			break
		}
	}
	return !excluded || l.neverExclude(post)
}

func (l *Library) excludeReplies(post *core.Post) bool {
	excluded := post.InReplyToAccountID != "" &&
		(post.Account == nil || post.InReplyToAccountID != post.Account.ID)
	return !excluded || l.neverExclude(post)
}

func (l *Library) byName(name string) (Predicate, bool) {
	switch name {
	case PredicateAlwaysLargeAccounts:
		return l.alwaysLargeAccounts, true
	case PredicateOnlyFamiliarAccounts:
		return l.onlyFamiliarAccounts, true
	case PredicateExcludeBots:
		return l.excludeBots, true
	case PredicateExcludeLocked:
		return l.excludeLockedAccounts, true
	case PredicateExcludeNewAccounts:
		return l.excludeNewAccounts, true
	case PredicateExcludeSpammy:
		return l.excludeSpammyAccounts, true
	case PredicateOnlyLanguage:
		return l.onlyPreferredLanguage, true
	case PredicateExcludeBoosts:
		return l.excludeBoosts, true
	case PredicateExcludeCrossposts:
		return l.excludeCrossposts, true
	case PredicateExcludeBirdsite:
		return l.excludeBirdsite, true
	case PredicateExcludeNSFW:
		return l.excludeNSFW, true
	case PredicateExcludeReplies:
		return l.excludeReplies, true
	default:
		return nil, false
	}
}
