package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
	"github.com/mycelian/mycelian-feed/internal/store/memstore"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, st store.Store, items ...*model.ContentItem) {
	t.Helper()
	for _, it := range items {
		_, err := st.Content().Create(context.Background(), it)
		require.NoError(t, err)
	}
}

func newTestBuilder(st store.Store) *Builder {
	b := NewBuilder(st, DefaultConfig(), zerolog.Nop())
	b.clock = func() time.Time { return t0 }
	return b
}

func TestRebuild_HashtagScoresFromLikedItems(t *testing.T) {
	st := memstore.New()
	seed(t, st,
		&model.ContentItem{ID: "i1", AuthorID: "z", Hashtags: []string{"x"}, Likers: []string{"a"}, CreatedAt: t0.Add(-2 * time.Hour)},
		&model.ContentItem{ID: "i2", AuthorID: "z", Hashtags: []string{"x", "y"}, Likers: []string{"a"}, CreatedAt: t0.Add(-time.Hour)},
		&model.ContentItem{ID: "i3", AuthorID: "z", Hashtags: []string{"q"}, CreatedAt: t0},
	)

	p, err := newTestBuilder(st).Rebuild(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, p.Hashtags, 2)
	assert.Equal(t, "x", p.Hashtags[0].Hashtag)
	assert.Equal(t, 2.0, p.Hashtags[0].Score)
	assert.Equal(t, "y", p.Hashtags[1].Hashtag)
	assert.Equal(t, 1.0, p.Hashtags[1].Score)
	assert.Empty(t, p.SimilarUsers)
	assert.Nil(t, p.Patterns)
	assert.Equal(t, t0, p.LastUpdated)

	stored, err := st.Profiles().Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, stored.TopHashtags(0))
}

func TestRebuild_ResharedItemsCountAgain(t *testing.T) {
	st := memstore.New()
	seed(t, st,
		&model.ContentItem{ID: "i1", AuthorID: "z", Hashtags: []string{"go"}, Likers: []string{"a"}, Resharers: []string{"a"}, CreatedAt: t0},
		&model.ContentItem{ID: "i2", AuthorID: "z", Hashtags: []string{"db"}, Resharers: []string{"a"}, CreatedAt: t0},
	)

	p, err := newTestBuilder(st).Rebuild(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, p.Hashtags, 2)
	assert.Equal(t, model.HashtagScore{Hashtag: "go", Score: 2, LastUpdated: t0}, p.Hashtags[0])
	assert.Equal(t, 1.0, p.Hashtags[1].Score)
}

func TestRebuild_SimilarUsersNeedTwoCommonLikes(t *testing.T) {
	st := memstore.New()
	seed(t, st,
		&model.ContentItem{ID: "i1", AuthorID: "z", Likers: []string{"a", "b", "c"}, CreatedAt: t0},
		&model.ContentItem{ID: "i2", AuthorID: "z", Likers: []string{"a", "b"}, CreatedAt: t0},
		&model.ContentItem{ID: "i3", AuthorID: "z", Likers: []string{"b"}, CreatedAt: t0},
	)

	p, err := newTestBuilder(st).Rebuild(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, p.SimilarUsers, 1, "c shares a single like and stays below the floor")
	assert.Equal(t, "b", p.SimilarUsers[0].UserID)
	// common 2, b liked 3, a liked 2.
	assert.InDelta(t, 2.0/5.0, p.SimilarUsers[0].Score, 1e-9)
	assert.Equal(t, t0, p.SimilarUsers[0].LastCalculated)
}

func TestRebuild_PatternsFromRecentEvents(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	for i, k := range []model.InteractionKind{model.KindLike, model.KindLike, model.KindReshare} {
		_, err := st.Interactions().Append(ctx, &model.InteractionEvent{
			UserID: "a", ContentID: "c", Kind: k, Weight: k.Weight(), Timestamp: t0.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	p, err := newTestBuilder(st).Rebuild(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, p.Patterns)
	assert.Equal(t, 3, p.Patterns.EventCount)
	assert.Equal(t, []int{12}, p.Patterns.PeakHours)
	assert.InDelta(t, 0.5, p.Patterns.ReshareToLikeRatio, 1e-9)
}

type failingContent struct {
	store.Content
	err error
}

func (f failingContent) Scan(context.Context, model.ContentQuery) ([]*model.ContentItem, error) {
	return nil, f.err
}

type failingStore struct {
	*memstore.Store
	err error
}

func (f failingStore) Content() store.Content {
	return failingContent{Content: f.Store.Content(), err: f.err}
}

func TestRebuild_FailureLeavesStoredProfile(t *testing.T) {
	mem := memstore.New()
	ctx := context.Background()
	prev := &model.PreferenceProfile{
		UserID:      "a",
		Hashtags:    []model.HashtagScore{{Hashtag: "old", Score: 4, LastUpdated: t0}},
		LastUpdated: t0,
	}
	require.NoError(t, mem.Profiles().Upsert(ctx, prev))

	boom := errors.New("scan exploded")
	_, err := newTestBuilder(failingStore{Store: mem, err: boom}).Rebuild(ctx, "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	got, err := mem.Profiles().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, got.TopHashtags(0))
}

func TestRebuild_RejectsEmptyUser(t *testing.T) {
	_, err := newTestBuilder(memstore.New()).Rebuild(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestScoreHashtags_TieBreaks(t *testing.T) {
	items := []*model.ContentItem{
		{ID: "1", Hashtags: []string{"b", "a"}, CreatedAt: t0},
		{ID: "2", Hashtags: []string{"c"}, CreatedAt: t0.Add(time.Hour)},
	}
	got := ScoreHashtags(items, t0)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Hashtag, "most recent wins a tie")
	assert.Equal(t, "a", got[1].Hashtag, "then alphabetical")
	assert.Equal(t, "b", got[2].Hashtag)
}

func TestScoreHashtags_CapsAtTwenty(t *testing.T) {
	var items []*model.ContentItem
	for i := 0; i < 30; i++ {
		items = append(items, &model.ContentItem{ID: string(rune('A' + i)), Hashtags: []string{string(rune('a' + i))}, CreatedAt: t0})
	}
	assert.Len(t, ScoreHashtags(items, t0), model.MaxProfileHashtags)
}
