package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionKindWeights(t *testing.T) {
	t.Parallel()
	cases := map[InteractionKind]float64{
		KindView:    0.1,
		KindClick:   0.5,
		KindLike:    1,
		KindReshare: 2,
		KindReply:   3,
		KindShare:   1.5,
	}
	for k, w := range cases {
		assert.Equal(t, w, k.Weight(), string(k))
		assert.True(t, k.Valid())
	}
	assert.Len(t, Kinds(), len(cases))
	assert.False(t, InteractionKind("poke").Valid())
}

func TestParseInteractionKind(t *testing.T) {
	t.Parallel()
	k, err := ParseInteractionKind(" Like ")
	require.NoError(t, err)
	assert.Equal(t, KindLike, k)

	_, err = ParseInteractionKind("retweet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "view, click, like, reshare, reply, share")
}

func TestStoreErrorMatchesBoth(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	err := fmt.Errorf("scan: %w", NewStoreError("content.scan", cause))
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, NewStoreError("noop", nil))
}

func TestProfileMissingIsNotFound(t *testing.T) {
	t.Parallel()
	assert.True(t, errors.Is(ErrProfileMissing, ErrNotFound))
}

func TestNormalizeHashtags(t *testing.T) {
	t.Parallel()
	got := NormalizeHashtags([]string{"#Go", "go", " Rust ", "", "#"})
	assert.Equal(t, []string{"go", "rust"}, got)
}

func TestProfileTopLists(t *testing.T) {
	t.Parallel()
	p := &PreferenceProfile{
		Hashtags:     []HashtagScore{{Hashtag: "a"}, {Hashtag: "b"}, {Hashtag: "c"}},
		SimilarUsers: []SimilarUser{{UserID: "u1"}},
	}
	assert.Equal(t, []string{"a", "b"}, p.TopHashtags(2))
	assert.Equal(t, []string{"a", "b", "c"}, p.TopHashtags(10))
	assert.Equal(t, []string{"u1"}, p.TopSimilarUsers(20))

	var nilProfile *PreferenceProfile
	assert.Nil(t, nilProfile.TopHashtags(5))
}

func TestContentItemEngagement(t *testing.T) {
	t.Parallel()
	c := &ContentItem{Likers: []string{"a", "b"}, Resharers: []string{"c"}}
	assert.Equal(t, 3, c.Engagement())
	assert.True(t, c.LikedBy("a"))
	assert.False(t, c.ResharedBy("a"))
	assert.True(t, c.ResharedBy("c"))
}
