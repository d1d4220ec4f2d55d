package candidates

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
	"github.com/mycelian/mycelian-feed/internal/store/memstore"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func users(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func create(t *testing.T, st store.Store, items ...*model.ContentItem) {
	t.Helper()
	for _, it := range items {
		_, err := st.Content().Create(context.Background(), it)
		require.NoError(t, err)
	}
}

func ids(c []model.RankedCandidate) []string {
	out := make([]string, 0, len(c))
	for _, rc := range c {
		out = append(out, rc.ContentID())
	}
	return out
}

func assertEligible(t *testing.T, got []model.RankedCandidate, userID string) {
	t.Helper()
	for _, c := range got {
		assert.NotEqual(t, userID, c.Item.AuthorID, "own item %s returned", c.ContentID())
		assert.False(t, c.Item.LikedBy(userID), "liked item %s returned", c.ContentID())
		assert.False(t, c.Item.ResharedBy(userID), "reshared item %s returned", c.ContentID())
	}
}

func TestContentBased_ScoresScenario(t *testing.T) {
	st := memstore.New()
	create(t, st,
		&model.ContentItem{ID: "i3", AuthorID: "z", Hashtags: []string{"x"}, Likers: users("l", 10), Resharers: []string{"r"}, CreatedAt: now},
		&model.ContentItem{ID: "own", AuthorID: "a", Hashtags: []string{"x"}, CreatedAt: now},
		&model.ContentItem{ID: "liked", AuthorID: "z", Hashtags: []string{"x"}, Likers: []string{"a"}, CreatedAt: now},
		&model.ContentItem{ID: "off", AuthorID: "z", Hashtags: []string{"q"}, CreatedAt: now},
	)
	profile := &model.PreferenceProfile{UserID: "a", Hashtags: []model.HashtagScore{{Hashtag: "x", Score: 2}, {Hashtag: "y", Score: 1}}}

	got, err := NewContentBased(st.Content(), DefaultConfig()).Generate(context.Background(), Request{UserID: "a", Limit: 10, Profile: profile, Now: now})
	require.NoError(t, err)
	require.Equal(t, []string{"i3"}, ids(got))
	// 3 per matched tag + 0.5 per like + 1 per reshare: 3 + 5 + 1.
	assert.InDelta(t, 9.0, got[0].Score, 1e-9)
	assert.Equal(t, model.SourceContent, got[0].Source)
}

func TestCollaborative_Scores(t *testing.T) {
	st := memstore.New()
	create(t, st,
		&model.ContentItem{ID: "c1", AuthorID: "z", Likers: []string{"s1", "s2"}, CreatedAt: now},
		&model.ContentItem{ID: "c2", AuthorID: "z", Resharers: []string{"s1"}, Likers: []string{"other"}, CreatedAt: now.Add(-time.Hour)},
		&model.ContentItem{ID: "c3", AuthorID: "z", Likers: []string{"s1"}, CreatedAt: now.Add(-time.Minute)},
		&model.ContentItem{ID: "c4", AuthorID: "z", Likers: []string{"s1", "a"}, CreatedAt: now},
		&model.ContentItem{ID: "c5", AuthorID: "z", Likers: []string{"nobody"}, CreatedAt: now},
	)
	profile := &model.PreferenceProfile{UserID: "a", SimilarUsers: []model.SimilarUser{{UserID: "s1"}, {UserID: "s2"}}}

	got, err := NewCollaborative(st.Content(), DefaultConfig()).Generate(context.Background(), Request{UserID: "a", Limit: 10, Profile: profile})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids(got))
	assert.Equal(t, []float64{4, 3, 2}, []float64{got[0].Score, got[1].Score, got[2].Score})
	assertEligible(t, got, "a")
}

func TestProfileGenerators_EmptySignal(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	req := Request{UserID: "a", Limit: 5}

	_, err := NewCollaborative(st.Content(), DefaultConfig()).Generate(ctx, req)
	assert.ErrorIs(t, err, model.ErrEmptySignal)
	_, err = NewContentBased(st.Content(), DefaultConfig()).Generate(ctx, req)
	assert.ErrorIs(t, err, model.ErrEmptySignal)

	req.Profile = &model.PreferenceProfile{UserID: "a"}
	_, err = NewCollaborative(st.Content(), DefaultConfig()).Generate(ctx, req)
	assert.ErrorIs(t, err, model.ErrEmptySignal)
}

func TestSocial_FriendsOfFriends(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	for _, e := range [][2]string{
		{"a", "b"}, {"a", "c"},
		{"b", "d"}, {"c", "d"}, {"b", "e"},
		{"b", "a"}, {"c", "b"},
	} {
		require.NoError(t, st.Social().Follow(ctx, e[0], e[1]))
	}
	create(t, st,
		&model.ContentItem{ID: "d1", AuthorID: "d", Likers: []string{"x"}, Resharers: []string{"y"}, CreatedAt: now},
		&model.ContentItem{ID: "e1", AuthorID: "e", Likers: []string{"x", "y", "z", "w"}, CreatedAt: now},
		&model.ContentItem{ID: "b1", AuthorID: "b", Likers: users("l", 20), CreatedAt: now},
		&model.ContentItem{ID: "d2", AuthorID: "d", Likers: []string{"a"}, CreatedAt: now},
	)

	g := NewSocial(st.Social(), st.Content(), DefaultConfig())
	fof, err := g.FriendsOfFriends(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, fof, "self and followed users are excluded")

	got, err := g.Generate(ctx, Request{UserID: "a", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "d1"}, ids(got))
	assertEligible(t, got, "a")

	_, err = g.Generate(ctx, Request{UserID: "loner", Limit: 10})
	assert.ErrorIs(t, err, model.ErrEmptySignal)
}

func TestTrending_ScoresScenario(t *testing.T) {
	it := &model.ContentItem{ID: "t", Likers: users("l", 4), Resharers: []string{"r"}, CreatedAt: now.Add(-30 * time.Minute)}
	assert.InDelta(t, 24, TrendingScore(it, now), 1e-9)

	old := &model.ContentItem{ID: "o", Likers: users("l", 4), Resharers: []string{"r"}, Replies: []string{"p"}, CreatedAt: now.Add(-3 * time.Hour)}
	assert.InDelta(t, 7.5/3, TrendingScore(old, now), 1e-9)

	fresh := &model.ContentItem{ID: "f", Likers: []string{"l"}, CreatedAt: now}
	assert.InDelta(t, 120, TrendingScore(fresh, now), 1e-9, "age is floored at one minute")
}

func TestTrending_WindowAndEligibility(t *testing.T) {
	st := memstore.New()
	create(t, st,
		&model.ContentItem{ID: "hot", AuthorID: "z", Likers: users("l", 4), Resharers: []string{"r"}, CreatedAt: now.Add(-30 * time.Minute)},
		&model.ContentItem{ID: "warm", AuthorID: "z", Likers: users("l", 4), CreatedAt: now.Add(-5 * time.Hour)},
		&model.ContentItem{ID: "stale", AuthorID: "z", Likers: users("l", 50), CreatedAt: now.Add(-25 * time.Hour)},
		&model.ContentItem{ID: "mine", AuthorID: "a", Likers: users("l", 50), CreatedAt: now.Add(-10 * time.Minute)},
	)

	got, err := NewTrending(st.Content(), DefaultConfig()).Generate(context.Background(), Request{UserID: "a", Limit: 10, Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"hot", "warm"}, ids(got))
	assertEligible(t, got, "a")
}

func TestGenerators_RespectLimit(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.Social().Follow(ctx, "a", "b"))
	require.NoError(t, st.Social().Follow(ctx, "b", "c"))
	for i := 0; i < 30; i++ {
		create(t, st, &model.ContentItem{
			ID:        fmt.Sprintf("c%02d", i),
			AuthorID:  "c",
			Hashtags:  []string{"x"},
			Likers:    []string{"s1"},
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	profile := &model.PreferenceProfile{
		UserID:       "a",
		Hashtags:     []model.HashtagScore{{Hashtag: "x"}},
		SimilarUsers: []model.SimilarUser{{UserID: "s1"}},
	}
	gens := []Generator{
		NewCollaborative(st.Content(), DefaultConfig()),
		NewContentBased(st.Content(), DefaultConfig()),
		NewSocial(st.Social(), st.Content(), DefaultConfig()),
		NewTrending(st.Content(), DefaultConfig()),
	}
	for _, g := range gens {
		t.Run(string(g.Name()), func(t *testing.T) {
			got, err := g.Generate(ctx, Request{UserID: "a", Limit: 7, Profile: profile, Now: now})
			require.NoError(t, err)
			assert.Len(t, got, 7)
			for _, c := range got {
				assert.Equal(t, g.Name(), c.Source)
			}

			none, err := g.Generate(ctx, Request{UserID: "a", Limit: 0, Profile: profile, Now: now})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

type brokenContent struct{ store.Content }

func (brokenContent) Scan(context.Context, model.ContentQuery) ([]*model.ContentItem, error) {
	return nil, model.NewStoreError("scan", errors.New("connection refused"))
}

func TestGenerators_PropagateStoreErrors(t *testing.T) {
	_, err := NewTrending(brokenContent{}, DefaultConfig()).Generate(context.Background(), Request{UserID: "a", Limit: 3, Now: now})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}
