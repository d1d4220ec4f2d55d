package candidates

import (
	"context"
	"time"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// minAgeHours keeps velocity finite for items seconds old.
const minAgeHours = 1.0 / 60

// Trending recommends recent items by engagement velocity.
type Trending struct {
	content store.Content
	cfg     Config
}

func NewTrending(content store.Content, cfg Config) *Trending {
	return &Trending{content: content, cfg: cfg.withDefaults()}
}

func (g *Trending) Name() model.Source { return model.SourceTrending }

func (g *Trending) Generate(ctx context.Context, req Request) ([]model.RankedCandidate, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	items, err := g.content.Scan(ctx, model.ContentQuery{
		CreatedAfter: now.Add(-g.cfg.TrendingWindow),
		AuthorsNotIn: []string{req.UserID},
		NotEngagedBy: req.UserID,
		Limit:        g.cfg.MaxScan,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.ErrEmptySignal
	}
	return rank(items, req.UserID, req.Limit, model.SourceTrending, func(it *model.ContentItem) float64 {
		return TrendingScore(it, now)
	}), nil
}

// TrendingScore is weighted engagement per hour of age, doubled inside the first hour.
func TrendingScore(it *model.ContentItem, now time.Time) float64 {
	age := now.Sub(it.CreatedAt)
	hours := age.Hours()
	if hours < minAgeHours {
		hours = minAgeHours
	}
	velocity := (float64(len(it.Likers)) + 2*float64(len(it.Resharers)) + 1.5*float64(len(it.Replies))) / hours
	if age <= time.Hour {
		return velocity * 2
	}
	return velocity
}
