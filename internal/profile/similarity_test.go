package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name               string
		common, total, own int
		want               float64
	}{
		{"basic", 2, 3, 2, 0.4},
		{"no likes at all", 0, 0, 0, 0},
		{"identical history", 5, 5, 5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.common, tt.total, tt.own), 1e-9)
		})
	}
}

func TestCommonLikes_ExcludesSelfAndApplyFloor(t *testing.T) {
	liked := []*model.ContentItem{
		{ID: "1", Likers: []string{"a", "b", "c"}},
		{ID: "2", Likers: []string{"a", "b"}},
	}
	got := CommonLikes("a", liked, 2)
	assert.Equal(t, map[string]int{"b": 2}, got)
}

func TestRankSimilar_OrderAndCap(t *testing.T) {
	common := map[string]int{}
	totals := map[string]int{}
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("u%02d", i)
		common[id] = 2
		totals[id] = 4
	}
	common["best"] = 4
	totals["best"] = 4

	got := RankSimilar(common, totals, 4, 0, t0)
	require.Len(t, got, model.MaxProfileSimilarUsers)
	assert.Equal(t, "best", got[0].UserID)
	assert.Equal(t, "u00", got[1].UserID, "equal scores fall back to id order")
}

func TestRankSimilar_MinTotalFloor(t *testing.T) {
	got := RankSimilar(map[string]int{"a": 2, "b": 2}, map[string]int{"a": 2, "b": 10}, 3, 5, t0)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].UserID)
}
