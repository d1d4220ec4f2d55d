// Package profile derives per-user preference profiles from the interaction
// log and engagement history, and schedules their rebuilds.
//
// A profile is a cache. Rebuild reads everything it needs, computes the new
// profile in memory and replaces the stored one with a single upsert, so a
// failed rebuild leaves the previous profile untouched and concurrent
// rebuilds for one user settle on whichever finished last.
package profile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Config tunes a Builder.
type Config struct {
	// RecentWindow bounds the events used for the pattern summary.
	RecentWindow int
	// MinCommonLikes is the noise floor for similar-user candidates.
	MinCommonLikes int
	// MinTotalLikes optionally excludes near-inactive candidates; 0 disables it.
	MinTotalLikes int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{RecentWindow: 1000, MinCommonLikes: 2, MinTotalLikes: 0}
}

// Builder computes and stores preference profiles.
type Builder struct {
	st    store.Store
	cfg   Config
	clock func() time.Time
	log   zerolog.Logger
}

func NewBuilder(st store.Store, cfg Config, log zerolog.Logger) *Builder {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 1000
	}
	if cfg.MinCommonLikes <= 0 {
		cfg.MinCommonLikes = 2
	}
	return &Builder{
		st:    st,
		cfg:   cfg,
		clock: func() time.Time { return time.Now().UTC() },
		log:   logger.Component(log, "profile_builder"),
	}
}

// Rebuild recomputes the user's profile and upserts it.
func (b *Builder) Rebuild(ctx context.Context, userID string) (*model.PreferenceProfile, error) {
	if userID == "" {
		return nil, model.NewValidationError("userId", "required")
	}
	now := b.clock()

	recent, err := b.st.Interactions().Recent(ctx, userID, b.cfg.RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	liked, err := b.st.Content().Scan(ctx, model.ContentQuery{LikedBy: userID})
	if err != nil {
		return nil, fmt.Errorf("liked items: %w", err)
	}
	reshared, err := b.st.Content().Scan(ctx, model.ContentQuery{ResharedBy: userID})
	if err != nil {
		return nil, fmt.Errorf("reshared items: %w", err)
	}

	// An item both liked and reshared contributes its hashtags twice.
	taste := make([]*model.ContentItem, 0, len(liked)+len(reshared))
	taste = append(taste, liked...)
	taste = append(taste, reshared...)

	similar, err := b.similarUsers(ctx, userID, liked, now)
	if err != nil {
		return nil, fmt.Errorf("similar users: %w", err)
	}

	p := &model.PreferenceProfile{
		UserID:       userID,
		Hashtags:     ScoreHashtags(taste, now),
		SimilarUsers: similar,
		Patterns:     SummarizePatterns(recent),
		LastUpdated:  now,
	}
	if err := b.st.Profiles().Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	b.log.Debug().
		Str("user_id", userID).
		Int("hashtags", len(p.Hashtags)).
		Int("similar_users", len(p.SimilarUsers)).
		Int("events", len(recent)).
		Msg("profile rebuilt")
	return p, nil
}

func (b *Builder) similarUsers(ctx context.Context, userID string, liked []*model.ContentItem, now time.Time) ([]model.SimilarUser, error) {
	common := CommonLikes(userID, liked, b.cfg.MinCommonLikes)
	if len(common) == 0 {
		return []model.SimilarUser{}, nil
	}
	ids := make([]string, 0, len(common))
	for id := range common {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	totals, err := b.st.Content().CountLikes(ctx, ids)
	if err != nil {
		return nil, err
	}
	return RankSimilar(common, totals, len(liked), b.cfg.MinTotalLikes, now), nil
}

// ScoreHashtags counts hashtag occurrences across items and returns the top
// entries. Ties go to the hashtag seen on the most recent item.
func ScoreHashtags(items []*model.ContentItem, now time.Time) []model.HashtagScore {
	counts := make(map[string]int)
	lastSeen := make(map[string]time.Time)
	for _, it := range items {
		for _, tag := range it.Hashtags {
			counts[tag]++
			if it.CreatedAt.After(lastSeen[tag]) {
				lastSeen[tag] = it.CreatedAt
			}
		}
	}
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		a, b := tags[i], tags[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if !lastSeen[a].Equal(lastSeen[b]) {
			return lastSeen[a].After(lastSeen[b])
		}
		return a < b
	})
	if len(tags) > model.MaxProfileHashtags {
		tags = tags[:model.MaxProfileHashtags]
	}
	out := make([]model.HashtagScore, 0, len(tags))
	for _, tag := range tags {
		out = append(out, model.HashtagScore{Hashtag: tag, Score: float64(counts[tag]), LastUpdated: now})
	}
	return out
}
