package timeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fedicache/internal/core"
	"fedicache/internal/timeline"
)

func post(id, inReplyTo string) *core.Post {
	return &core.Post{ID: id, InReplyToID: inReplyTo}
}

func ids(posts []*core.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestConsecutive(t *testing.T) {
	t.Parallel()

	a := post("a", "")
	b := post("b", "a")

	require.True(t, timeline.Consecutive(a, b))
	require.False(t, timeline.Consecutive(b, a))

	t.Run("follows reblogs on both sides", func(t *testing.T) {
		t.Parallel()

		boostedParent := &core.Post{ID: "x", Reblog: post("a", "")}
		require.True(t, timeline.Consecutive(boostedParent, b))

		boostedReply := &core.Post{ID: "y", Reblog: post("b", "a")}
		require.True(t, timeline.Consecutive(a, boostedReply))
	})
}

func TestReorder(t *testing.T) {
	t.Parallel()

	t.Run("already stitched stays put", func(t *testing.T) {
		t.Parallel()

		items := []*core.Post{post("a", ""), post("b", "a"), post("c", "")}
		require.Equal(t, ids(items), ids(timeline.Reorder(items, timeline.Options{})))
	})

	t.Run("pulls a parent up under its reply", func(t *testing.T) {
		t.Parallel()

		items := []*core.Post{post("c", "a"), post("b", ""), post("a", "")}

		require.Equal(t, []string{"a", "c", "b"}, ids(timeline.Reorder(items, timeline.Options{})))
	})

	t.Run("moves a separated reply below its parent", func(t *testing.T) {
		t.Parallel()

		items := []*core.Post{post("a", ""), post("x", ""), post("b", "a")}

		require.Equal(t, []string{"a", "b", "x"}, ids(timeline.Reorder(items, timeline.Options{})))
	})

	t.Run("keeps an existing run together", func(t *testing.T) {
		t.Parallel()

		items := []*core.Post{
			post("a", ""),
			post("x", ""),
			post("b", "a"),
			post("c", "b"),
		}

		require.Equal(t, []string{"a", "b", "c", "x"}, ids(timeline.Reorder(items, timeline.Options{})))
	})

	t.Run("distance bound leaves far pairs alone", func(t *testing.T) {
		t.Parallel()

		items := []*core.Post{
			post("c", "a"),
			post("x1", ""), post("x2", ""), post("x3", ""),
			post("a", ""),
		}

		require.Equal(t,
			[]string{"a", "c", "x1", "x2", "x3"},
			ids(timeline.Reorder(items, timeline.Options{})))

		require.Equal(t,
			ids(items),
			ids(timeline.Reorder(items, timeline.Options{MaxDistance: 2})))
	})

	t.Run("step budget returns input unchanged", func(t *testing.T) {
		t.Parallel()

		items := []*core.Post{post("c", "a"), post("b", ""), post("a", "")}

		require.Equal(t, ids(items), ids(timeline.Reorder(items, timeline.Options{MaxSteps: 1})))
	})

	t.Run("input is never mutated", func(t *testing.T) {
		t.Parallel()

		items := []*core.Post{post("c", "a"), post("b", ""), post("a", "")}
		before := ids(items)

		timeline.Reorder(items, timeline.Options{})

		require.Equal(t, before, ids(items))
	})
}

func TestReorder_AdjacencyInvariant(t *testing.T) {
	t.Parallel()

	// Whenever a post and its parent are both present within reach, the
	// parent must end up directly before the reply.
	items := []*core.Post{
		post("e", "d"),
		post("n1", ""),
		post("d", ""),
		post("n2", ""),
		post("b", "a"),
		post("a", ""),
	}

	out := timeline.Reorder(items, timeline.Options{})
	index := map[string]int{}
	for i, p := range out {
		index[p.ID] = i
	}

	require.Equal(t, index["d"]+1, index["e"])
	require.Equal(t, index["a"]+1, index["b"])
	require.Len(t, out, len(items))
}

func TestRemoveFiltered(t *testing.T) {
	t.Parallel()

	hide := core.FilterResult{}
	hide.Filter.FilterAction = "hide"
	hide.Filter.Context = []string{"home"}

	hidden := post("1", "")
	hidden.Account = &core.Account{ID: "other"}
	hidden.Filtered = []core.FilterResult{hide}

	visible := post("2", "")
	visible.Account = &core.Account{ID: "other"}

	own := post("3", "")
	own.Account = &core.Account{ID: "42"}
	own.Filtered = []core.FilterResult{hide}

	t.Run("drops hide matches in context", func(t *testing.T) {
		t.Parallel()

		kept := timeline.RemoveFiltered([]*core.Post{hidden, visible}, "home", "42")
		require.Equal(t, []string{"2"}, ids(kept))
	})

	t.Run("other contexts are unaffected", func(t *testing.T) {
		t.Parallel()

		kept := timeline.RemoveFiltered([]*core.Post{hidden, visible}, "public", "42")
		require.Len(t, kept, 2)
	})

	t.Run("never filters the viewer's own posts", func(t *testing.T) {
		t.Parallel()

		kept := timeline.RemoveFiltered([]*core.Post{own}, "home", "42")
		require.Len(t, kept, 1)
	})

	t.Run("checks the reblogged post too", func(t *testing.T) {
		t.Parallel()

		boost := post("4", "")
		boost.Account = &core.Account{ID: "other"}
		boost.Reblog = hidden

		kept := timeline.RemoveFiltered([]*core.Post{boost}, "home", "42")
		require.Empty(t, kept)
	})
}
