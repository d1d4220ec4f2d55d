package candidates

import (
	"context"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Collaborative recommends what the viewer's similar users engaged with.
type Collaborative struct {
	content store.Content
	cfg     Config
}

func NewCollaborative(content store.Content, cfg Config) *Collaborative {
	return &Collaborative{content: content, cfg: cfg.withDefaults()}
}

func (g *Collaborative) Name() model.Source { return model.SourceCollaborative }

// Generate scores 2 per similar liker and 3 per similar resharer.
func (g *Collaborative) Generate(ctx context.Context, req Request) ([]model.RankedCandidate, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	similar := req.Profile.TopSimilarUsers(g.cfg.SimilarUsers)
	if len(similar) == 0 {
		return nil, model.ErrEmptySignal
	}
	items, err := g.content.Scan(ctx, model.ContentQuery{
		EngagedByAny: similar,
		AuthorsNotIn: []string{req.UserID},
		NotEngagedBy: req.UserID,
		Limit:        g.cfg.MaxScan,
	})
	if err != nil {
		return nil, err
	}
	s := toSet(similar)
	return rank(items, req.UserID, req.Limit, model.SourceCollaborative, func(it *model.ContentItem) float64 {
		return 2*float64(count(it.Likers, s)) + 3*float64(count(it.Resharers, s))
	}), nil
}
