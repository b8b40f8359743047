package feeds

// Profile maps predicate names to enabled flags. Unknown names are ignored
// when the feed is built so user preference payloads can carry extra keys.
type Profile map[string]bool

// Surface names a consuming view with its own default profile.
type Surface string

const (
	SurfaceHome          Surface = "home"
	SurfaceNotifications Surface = "notifications"
	SurfaceGlobal        Surface = "global"
	SurfaceConversations Surface = "conversations"
	SurfaceThread        Surface = "thread"
	SurfaceTrending      Surface = "trending"
	SurfaceCaching       Surface = "caching"
	SurfaceEnrichment    Surface = "enrichment"
)

// DefaultProfiles are the per-surface defaults; user preferences overlay
// individual booleans on top of them.
func DefaultProfiles() map[Surface]Profile {
	return map[Surface]Profile{
		SurfaceGlobal: {
			PredicateExcludeBots:        true,
			PredicateExcludeLocked:      true,
			PredicateExcludeNewAccounts: true,
			PredicateExcludeSpammy:      true,
			PredicateExcludeBoosts:      true,
			PredicateExcludeCrossposts:  true,
			PredicateExcludeBirdsite:    true,
			PredicateExcludeNSFW:        true,
			PredicateExcludeReplies:     true,
		},
		SurfaceCaching: {
			PredicateExcludeBots:        true,
			PredicateExcludeNewAccounts: true,
			PredicateExcludeSpammy:      true,
			PredicateExcludeCrossposts:  true,
			PredicateExcludeBirdsite:    true,
			PredicateExcludeNSFW:        true,
			PredicateExcludeReplies:     true,
		},
		SurfaceEnrichment: {
			PredicateExcludeLocked:      true,
			PredicateExcludeNewAccounts: true,
			PredicateExcludeSpammy:      true,
			PredicateExcludeCrossposts:  true,
			PredicateExcludeBirdsite:    true,
			PredicateExcludeNSFW:        true,
		},
		SurfaceHome: {
			PredicateExcludeSpammy: true,
		},
		SurfaceNotifications: {
			PredicateExcludeBots:   true,
			PredicateExcludeSpammy: true,
			PredicateExcludeNSFW:   true,
		},
		SurfaceConversations: {
			PredicateExcludeSpammy: true,
			PredicateExcludeNSFW:   true,
		},
		SurfaceThread: {},
		SurfaceTrending: {
			PredicateExcludeBots:        true,
			PredicateExcludeLocked:      true,
			PredicateExcludeNewAccounts: true,
			PredicateExcludeSpammy:      true,
			PredicateExcludeCrossposts:  true,
			PredicateExcludeBirdsite:    true,
			PredicateExcludeNSFW:        true,
			PredicateExcludeReplies:     true,
		},
	}
}

// Merge overlays user preference booleans onto a base profile.
func (p Profile) Merge(overrides Profile) Profile {
	merged := make(Profile, len(p)+len(overrides))
	for name, enabled := range p {
		merged[name] = enabled
	}
	for name, enabled := range overrides {
		merged[name] = enabled
	}
	return merged
}
