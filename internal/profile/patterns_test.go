package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
)

func ev(kind model.InteractionKind, at time.Time, session string) *model.InteractionEvent {
	return &model.InteractionEvent{UserID: "u", ContentID: "c", Kind: kind, Weight: kind.Weight(), SessionID: session, Timestamp: at}
}

func TestSummarizePatterns_Empty(t *testing.T) {
	assert.Nil(t, SummarizePatterns(nil))
}

func TestSummarizePatterns(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []*model.InteractionEvent{
		ev(model.KindLike, day.Add(9*time.Hour), "s1"),
		ev(model.KindLike, day.Add(9*time.Hour+30*time.Second), "s1"),
		ev(model.KindReshare, day.Add(18*time.Hour), "s2"),
		ev(model.KindView, day.Add(18*time.Hour+time.Minute), ""),
		ev(model.KindReply, day.Add(7*time.Hour), ""),
		ev(model.KindClick, day.Add(3*time.Hour), ""),
	}

	p := SummarizePatterns(events)
	require.NotNil(t, p)
	assert.Equal(t, 6, p.EventCount)
	assert.Equal(t, []int{9, 18, 3}, p.PeakHours, "busiest first, earliest hour on ties")
	assert.InDelta(t, 0.5, p.ReshareToLikeRatio, 1e-9)

	total := 1 + 1 + 2 + 0.1 + 3 + 0.5
	assert.InDelta(t, 3/total, p.KindPreference[model.KindReply], 1e-9)
	var sum float64
	for _, v := range p.KindPreference {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-9)

	assert.Equal(t, 2, p.Session.Sessions)
	assert.InDelta(t, 1.5, p.Session.AvgEventsPerSession, 1e-9)
	assert.InDelta(t, 15, p.Session.AvgDurationSeconds, 1e-9)
}

func TestSummarizePatterns_ResharesWithoutLikes(t *testing.T) {
	p := SummarizePatterns([]*model.InteractionEvent{
		ev(model.KindReshare, time.Now(), ""),
		ev(model.KindReshare, time.Now(), ""),
	})
	assert.Equal(t, 2.0, p.ReshareToLikeRatio)
}
