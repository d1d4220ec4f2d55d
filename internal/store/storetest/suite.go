package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Run exercises the compliance suite against a store.Store implementation.
// makeStore must return a clean, isolated store; ids are randomized so a
// shared database also works.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()
	t.Run("Content", func(t *testing.T) { testContent(t, makeStore(t)) })
	t.Run("Scan", func(t *testing.T) { testScan(t, makeStore(t)) })
	t.Run("Social", func(t *testing.T) { testSocial(t, makeStore(t)) })
	t.Run("Interactions", func(t *testing.T) { testInteractions(t, makeStore(t)) })
	t.Run("ConcurrentAppends", func(t *testing.T) { testConcurrentAppends(t, makeStore(t)) })
	t.Run("Profiles", func(t *testing.T) { testProfiles(t, makeStore(t)) })
}

func id(prefix string) string { return prefix + "-" + uuid.New().String()[:8] }

func testContent(t *testing.T, s store.Store) {
	ctx := context.Background()
	author, liker := id("author"), id("liker")

	created, err := s.Content().Create(ctx, &model.ContentItem{
		AuthorID: author,
		Body:     "hello #Go",
		Hashtags: []string{"Go", "#go", "db"},
		Mentions: []string{liker},
		Likers:   []string{liker},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.ElementsMatch(t, []string{"go", "db"}, created.Hashtags)
	assert.Equal(t, []string{liker}, created.Likers)
	assert.Equal(t, []string{liker}, created.Mentions)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.Content().Get(ctx, "missing-"+uuid.New().String())
	assert.True(t, errors.Is(err, model.ErrNotFound), "got %v", err)

	_, err = s.Content().Create(ctx, &model.ContentItem{Body: "no author"})
	assert.True(t, errors.Is(err, model.ErrValidation))

	resharer := id("resharer")
	require.NoError(t, s.Content().SetReshare(ctx, created.ID, resharer, true))
	require.NoError(t, s.Content().SetReshare(ctx, created.ID, resharer, true), "idempotent")
	require.NoError(t, s.Content().SetLike(ctx, created.ID, liker, false))
	require.NoError(t, s.Content().AddReply(ctx, created.ID, id("reply")))

	got, err := s.Content().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likers)
	assert.Equal(t, []string{resharer}, got.Resharers)
	assert.Len(t, got.Replies, 1)

	err = s.Content().SetLike(ctx, "missing-"+uuid.New().String(), liker, true)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = s.Content().Create(ctx, &model.ContentItem{AuthorID: author, Likers: []string{resharer}})
	require.NoError(t, err)
	require.NoError(t, s.Content().SetLike(ctx, created.ID, resharer, true))
	counts, err := s.Content().CountLikes(ctx, []string{resharer, liker})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[resharer])
	assert.Equal(t, 0, counts[liker])
}

func testScan(t *testing.T, s store.Store) {
	ctx := context.Background()
	viewer, friend, stranger := id("viewer"), id("friend"), id("stranger")
	tag := "t" + uuid.New().String()[:6]
	base := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Millisecond)

	mk := func(author string, age time.Duration, tags []string, likers, resharers []string) *model.ContentItem {
		c, err := s.Content().Create(ctx, &model.ContentItem{
			AuthorID: author, Hashtags: tags, Likers: likers, Resharers: resharers,
			CreatedAt: base.Add(age),
		})
		require.NoError(t, err)
		return c
	}
	old := mk(friend, 0, []string{tag}, []string{viewer}, nil)
	mid := mk(friend, time.Hour, []string{tag, "other"}, []string{stranger}, nil)
	fresh := mk(stranger, 90*time.Minute, nil, nil, []string{friend})
	own := mk(viewer, 100*time.Minute, []string{tag}, nil, nil)

	scan := func(q model.ContentQuery) []string {
		items, err := s.Content().Scan(ctx, q)
		require.NoError(t, err)
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		return ids
	}
	authors := []string{viewer, friend, stranger}

	assert.Equal(t, []string{own.ID, fresh.ID, mid.ID, old.ID}, scan(model.ContentQuery{AuthorsIn: authors}), "newest first")
	assert.Equal(t, []string{mid.ID, old.ID}, scan(model.ContentQuery{AuthorsIn: []string{friend}}))
	assert.Equal(t, []string{own.ID, mid.ID}, scan(model.ContentQuery{AuthorsIn: authors, HashtagsAny: []string{tag}, CreatedAfter: base.Add(30 * time.Minute)}))
	assert.Equal(t, []string{fresh.ID, mid.ID}, scan(model.ContentQuery{AuthorsIn: authors, EngagedByAny: []string{stranger, friend}}))
	assert.Equal(t, []string{old.ID}, scan(model.ContentQuery{LikedBy: viewer}))
	assert.Equal(t, []string{fresh.ID}, scan(model.ContentQuery{ResharedBy: friend}))
	assert.Equal(t, []string{fresh.ID, mid.ID}, scan(model.ContentQuery{AuthorsIn: authors, AuthorsNotIn: []string{viewer}, NotEngagedBy: viewer}))
	assert.Equal(t, []string{own.ID}, scan(model.ContentQuery{AuthorsIn: authors, Limit: 1}))
	assert.Empty(t, scan(model.ContentQuery{AuthorsIn: authors, HashtagsAny: []string{"#"}}))

	items, err := s.Content().Scan(ctx, model.ContentQuery{AuthorsIn: []string{friend}, HashtagsAny: []string{"other"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.ElementsMatch(t, []string{tag, "other"}, items[0].Hashtags)
	assert.Equal(t, []string{stranger}, items[0].Likers)
	assert.True(t, items[0].CreatedAt.Equal(base.Add(time.Hour)))
}

func testSocial(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b, c := id("a"), id("b"), id("c")

	require.NoError(t, s.Social().Follow(ctx, a, b))
	require.NoError(t, s.Social().Follow(ctx, a, c))
	require.NoError(t, s.Social().Follow(ctx, a, c), "idempotent")
	require.NoError(t, s.Social().Follow(ctx, b, c))
	assert.True(t, errors.Is(s.Social().Follow(ctx, a, a), model.ErrValidation))

	following, err := s.Social().Following(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b, c}, following)

	followers, err := s.Social().Followers(ctx, c)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, followers)

	fof, err := s.Social().FollowingOf(ctx, []string{a, b, c})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b, c}, fof[a])
	assert.Equal(t, []string{c}, fof[b])
	assert.Empty(t, fof[c])

	require.NoError(t, s.Social().Unfollow(ctx, a, b))
	following, err = s.Social().Following(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{c}, following)
}

func testInteractions(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := id("user")
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	for i := 1; i <= 12; i++ {
		kind := model.KindView
		if i%3 == 0 {
			kind = model.KindLike
		}
		n, err := s.Interactions().Append(ctx, &model.InteractionEvent{
			UserID: user, ContentID: id("c"), Kind: kind, Weight: kind.Weight(),
			SessionID: "s1", Timestamp: start.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, i, n, "append returns the stored count")
	}

	n, err := s.Interactions().Count(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	recent, err := s.Interactions().Recent(ctx, user, 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.True(t, recent[0].Timestamp.After(recent[4].Timestamp), "newest first")
	assert.Equal(t, model.KindLike, recent[0].Kind)
	assert.Equal(t, 1.0, recent[0].Weight)
	assert.Equal(t, "s1", recent[0].SessionID)

	none, err := s.Interactions().Count(ctx, id("nobody"))
	require.NoError(t, err)
	assert.Zero(t, none)
}

// testConcurrentAppends checks that racing appends for one user each see a
// distinct count, so no rebuild threshold is skipped.
func testConcurrentAppends(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := id("user")
	const workers, each = 8, 5

	var (
		mu     sync.Mutex
		counts []int
		wg     sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				n, err := s.Interactions().Append(ctx, &model.InteractionEvent{
					UserID: user, ContentID: id("c"), Kind: model.KindView, Weight: model.KindView.Weight(),
				})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				counts = append(counts, n)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Ints(counts)
	want := make([]int, workers*each)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, counts)
}

func testProfiles(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := id("user")
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.Profiles().Get(ctx, user)
	assert.True(t, errors.Is(err, model.ErrProfileMissing))
	assert.True(t, errors.Is(err, model.ErrNotFound))

	first := &model.PreferenceProfile{
		UserID:       user,
		Hashtags:     []model.HashtagScore{{Hashtag: "x", Score: 2, LastUpdated: now}, {Hashtag: "y", Score: 1, LastUpdated: now}},
		SimilarUsers: []model.SimilarUser{{UserID: "b", Score: 0.25, LastCalculated: now}},
		Patterns:     &model.InteractionPatterns{PeakHours: []int{9, 21}, EventCount: 3},
		LastUpdated:  now,
	}
	require.NoError(t, s.Profiles().Upsert(ctx, first))

	got, err := s.Profiles().Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got.TopHashtags(0))
	assert.Equal(t, 0.25, got.SimilarUsers[0].Score)
	require.NotNil(t, got.Patterns)
	assert.Equal(t, []int{9, 21}, got.Patterns.PeakHours)
	assert.True(t, got.LastUpdated.Equal(now))

	// Upsert replaces wholesale.
	second := &model.PreferenceProfile{UserID: user, Hashtags: []model.HashtagScore{{Hashtag: "z", Score: 1}}, LastUpdated: now.Add(time.Minute)}
	require.NoError(t, s.Profiles().Upsert(ctx, second))
	got, err = s.Profiles().Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, got.TopHashtags(0))
	assert.Empty(t, got.SimilarUsers)
	assert.Nil(t, got.Patterns)
}
