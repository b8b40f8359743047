// Package timeline re-sorts already-filtered post lists so that reply
// chains stay contiguous (thread stitching) without disturbing chronology
// more than necessary.
package timeline

import (
	"slices"

	"fedicache/internal/core"
)

const (
	DefaultMaxDistance = 10
	DefaultMaxSteps    = 1000
)

// Options bounds the reorder work. MaxSteps caps total splice scans; past
// it the list is returned as-is, trading completeness for latency.
type Options struct {
	MaxDistance int
	MaxSteps    int
}

func (o Options) withDefaults() Options {
	if o.MaxDistance <= 0 {
		o.MaxDistance = DefaultMaxDistance
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	return o
}

// Consecutive reports whether b is a direct reply to a, following reblogs
// on both sides.
func Consecutive(a, b *core.Post) bool {
	inReplyToID := b.InReplyToID
	if inReplyToID == "" && b.Reblog != nil {
		inReplyToID = b.Reblog.InReplyToID
	}
	if inReplyToID == "" {
		return false
	}
	if a.Reblog != nil && inReplyToID == a.Reblog.ID {
		return true
	}
	return inReplyToID == a.ID
}

// Reorder moves replies adjacent to their parents when both are present in
// the newest-first input, scanning at most MaxDistance items per position.
// The input slice is not modified.
func Reorder(items []*core.Post, opts Options) []*core.Post {
	opts = opts.withDefaults()

	newItems := slices.Clone(items)
	steps := 0

	for i := len(newItems) - 1; i > 0; i-- {
		for k := 1; k <= opts.MaxDistance && i-k >= 0; k++ {
			steps++
			if steps > opts.MaxSteps {
				return newItems
			}

			// The newer [i-k] item replying to the older [i] item means
			// they are in the wrong order: pull the parent up under it.
			if Consecutive(newItems[i], newItems[i-k]) {
				item := newItems[i]
				newItems = slices.Delete(newItems, i, i+1)
				newItems = slices.Insert(newItems, i-k, item)
				k = 0
				continue
			}

			// Correct order but with unrelated posts in between: move the
			// whole already-consecutive run up below its parent.
			if k > 1 && Consecutive(newItems[i-k], newItems[i]) {
				j := i
				for ; j < len(newItems)-1; j++ {
					if !Consecutive(newItems[j], newItems[j+1]) {
						break
					}
				}
				run := slices.Clone(newItems[i : j+1])
				newItems = slices.Delete(newItems, i, j+1)
				newItems = slices.Insert(newItems, i-k+1, run...)
				k = 0
			}
		}
	}
	return newItems
}

// RemoveFiltered drops posts whose server-computed filters demand hiding in
// the given context. The viewer's own posts are never filtered.
func RemoveFiltered(items []*core.Post, context, viewerID string) []*core.Post {
	kept := make([]*core.Post, 0, len(items))
	for _, item := range items {
		if hiddenByFilters(item, context, viewerID) {
			continue
		}
		if item.Reblog != nil && hiddenByFilters(item.Reblog, context, viewerID) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func hiddenByFilters(post *core.Post, context, viewerID string) bool {
	if post.Account != nil && post.Account.ID == viewerID {
		return false
	}
	for _, match := range post.Filtered {
		if match.HideAction(context) {
			return true
		}
	}
	return false
}
