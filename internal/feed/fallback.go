package feed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/candidates"
	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// ErrFallbackUnavailable is returned when every fallback tier failed.
var ErrFallbackUnavailable = errors.New("cold-start fallback unavailable")

// Fallback builds a non-personalized feed from followed authors, globally
// popular items and recent items by strangers.
type Fallback struct {
	content store.Content
	social  store.Social
	maxScan int
	log     zerolog.Logger
}

func NewFallback(content store.Content, social store.Social, maxScan int, log zerolog.Logger) *Fallback {
	if maxScan <= 0 {
		maxScan = 5000
	}
	return &Fallback{
		content: content,
		social:  social,
		maxScan: maxScan,
		log:     logger.Component(log, "cold_start_fallback"),
	}
}

// Tiers returns the following, popular and discovery lists, each deep enough
// to serve `page` pages at the given per-page limits. A failing tier comes
// back empty; only when all three fail is an error returned.
func (f *Fallback) Tiers(ctx context.Context, userID string, limits [3]int, page int) ([][]model.RankedCandidate, error) {
	out := make([][]model.RankedCandidate, 3)
	var failed int

	var err error
	following, followErr := f.social.Following(ctx, userID)
	if followErr != nil {
		f.log.Warn().Err(followErr).Str("user_id", userID).Msg("following lookup failed; excluding only self")
		failed++
	} else if out[0], err = f.followingTier(ctx, following, trancheLimit(limits[0], page, f.maxScan)); err != nil {
		f.log.Warn().Err(err).Str("tier", "following").Msg("fallback tier failed")
		failed++
	}
	strangers := append([]string{userID}, following...)

	if out[1], err = f.popularTier(ctx, strangers, trancheLimit(limits[1], page, f.maxScan)); err != nil {
		f.log.Warn().Err(err).Str("tier", "popular").Msg("fallback tier failed")
		failed++
	}
	if out[2], err = f.discoveryTier(ctx, strangers, trancheLimit(limits[2], page, f.maxScan)); err != nil {
		f.log.Warn().Err(err).Str("tier", "discovery").Msg("fallback tier failed")
		failed++
	}

	if failed == len(out) {
		return nil, ErrFallbackUnavailable
	}
	return out, nil
}

func (f *Fallback) followingTier(ctx context.Context, following []string, limit int) ([]model.RankedCandidate, error) {
	if len(following) == 0 || limit <= 0 {
		return nil, nil
	}
	items, err := f.content.Scan(ctx, model.ContentQuery{AuthorsIn: following, Limit: limit})
	if err != nil {
		return nil, err
	}
	return wrap(items, nil), nil
}

func (f *Fallback) popularTier(ctx context.Context, exclude []string, limit int) ([]model.RankedCandidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := f.content.Scan(ctx, model.ContentQuery{AuthorsNotIn: exclude, Limit: f.maxScan})
	if err != nil {
		return nil, err
	}
	out := wrap(items, func(it *model.ContentItem) float64 {
		return float64(len(it.Likers)) + 2*float64(len(it.Resharers))
	})
	candidates.SortRanked(out)
	return truncate(out, limit), nil
}

func (f *Fallback) discoveryTier(ctx context.Context, exclude []string, limit int) ([]model.RankedCandidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := f.content.Scan(ctx, model.ContentQuery{AuthorsNotIn: exclude, Limit: limit})
	if err != nil {
		return nil, err
	}
	return wrap(items, nil), nil
}

func wrap(items []*model.ContentItem, score func(*model.ContentItem) float64) []model.RankedCandidate {
	out := make([]model.RankedCandidate, 0, len(items))
	for _, it := range items {
		c := model.RankedCandidate{Item: it, Source: model.SourceFallback}
		if score != nil {
			c.Score = score(it)
		}
		out = append(out, c)
	}
	return out
}
