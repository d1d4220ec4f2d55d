package feed

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
)

func cand(id string, src model.Source, likes int) model.RankedCandidate {
	it := &model.ContentItem{ID: id, AuthorID: "z"}
	for i := 0; i < likes; i++ {
		it.Likers = append(it.Likers, fmt.Sprintf("l%d", i))
	}
	return model.RankedCandidate{Item: it, Source: src}
}

func candIDs(c []model.RankedCandidate) []string {
	out := make([]string, 0, len(c))
	for _, x := range c {
		out = append(out, x.ContentID())
	}
	return out
}

func TestQuota(t *testing.T) {
	assert.Equal(t, 7, Quota(35, 20))
	assert.Equal(t, 6, Quota(30, 20))
	assert.Equal(t, 4, Quota(20, 20))
	assert.Equal(t, 3, Quota(15, 20))
	assert.Equal(t, 1, Quota(15, 1))
	assert.Equal(t, 0, Quota(15, 0))

	f, p, d := fallbackLimits(20)
	assert.Equal(t, []int{10, 6, 4}, []int{f, p, d})
	f, p, d = fallbackLimits(3)
	assert.Equal(t, []int{1, 0, 2}, []int{f, p, d})
}

func TestWindows_TrimToPageSize(t *testing.T) {
	assert.Equal(t, []int{7, 6, 4, 3}, windows([]int{7, 6, 4, 3}, 20))
	assert.Equal(t, []int{4, 3, 2, 1}, windows([]int{4, 3, 2, 2}, 10))
	assert.Equal(t, []int{1, 0, 0, 0}, windows([]int{1, 1, 1, 1}, 1))
}

func TestTrancheLimit_Saturates(t *testing.T) {
	assert.Equal(t, 21, trancheLimit(7, 3, 5000))
	assert.Equal(t, 5000, trancheLimit(7, 1<<40, 5000))
	assert.Equal(t, math.MaxInt, trancheLimit(7, math.MaxInt/2, 0))
	assert.Equal(t, 0, trancheLimit(0, 9, 5000))
}

func TestPageWindow_StopsWhenExhausted(t *testing.T) {
	lists := [][]model.RankedCandidate{
		{cand("a", model.SourceCollaborative, 0), cand("b", model.SourceCollaborative, 0)},
		nil,
	}
	assert.Empty(t, pageWindow(lists, []int{1, 1}, math.MaxInt))
	assert.Equal(t, []string{"b"}, candIDs(pageWindow(lists, []int{1, 1}, 2)))
}

func TestPageWindow_FirstOccurrenceWins(t *testing.T) {
	lists := [][]model.RankedCandidate{
		{cand("a", model.SourceCollaborative, 0), cand("b", model.SourceCollaborative, 0)},
		{cand("a", model.SourceContent, 0), cand("c", model.SourceContent, 0)},
		{cand("c", model.SourceSocial, 0)},
	}
	got := pageWindow(lists, []int{2, 2, 2}, 1)
	require.Equal(t, []string{"a", "b", "c"}, candIDs(got))
	assert.Equal(t, model.SourceCollaborative, got[0].Source)
	assert.Equal(t, model.SourceContent, got[2].Source)
}

func TestPageWindow_PagesAreDisjoint(t *testing.T) {
	var l1, l2 []model.RankedCandidate
	for i := 0; i < 6; i++ {
		l1 = append(l1, cand(fmt.Sprintf("x%d", i), model.SourceCollaborative, 0))
		// l2 repeats l1's later items so dedup must look across pages.
		l2 = append(l2, cand(fmt.Sprintf("x%d", 5-i), model.SourceContent, 0))
	}
	lists := [][]model.RankedCandidate{l1, l2}
	limits := []int{2, 2}

	seen := map[string]int{}
	for page := 1; page <= 3; page++ {
		for _, id := range candIDs(pageWindow(lists, limits, page)) {
			seen[id]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "%s served on more than one page", id)
	}
	assert.Empty(t, pageWindow(lists, limits, 4))
}

func TestInterleave_AlternatesHighAndRegular(t *testing.T) {
	var in []model.RankedCandidate
	for i := 0; i < 3; i++ {
		in = append(in, cand(fmt.Sprintf("h%d", i), model.SourceTrending, 6))
	}
	for i := 0; i < 5; i++ {
		in = append(in, cand(fmt.Sprintf("r%d", i), model.SourceTrending, 5))
	}

	out := interleave(in, newRNG("u", 1, time.Unix(0, 0), time.Minute))
	require.Len(t, out, 8)
	pattern := ""
	for _, c := range out {
		pattern += c.ContentID()[:1]
	}
	assert.Equal(t, "hrhrhrrr", pattern)
}

func TestNewRNG_StableWithinWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newRNG("u1", 1, base, 15*time.Minute).Uint64()
	b := newRNG("u1", 1, base.Add(time.Minute), 15*time.Minute).Uint64()
	c := newRNG("u1", 2, base, 15*time.Minute).Uint64()
	d := newRNG("u2", 1, base, 15*time.Minute).Uint64()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}
