package candidates

import (
	"context"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// ContentBased recommends items tagged with the viewer's top hashtags.
type ContentBased struct {
	content store.Content
	cfg     Config
}

func NewContentBased(content store.Content, cfg Config) *ContentBased {
	return &ContentBased{content: content, cfg: cfg.withDefaults()}
}

func (g *ContentBased) Name() model.Source { return model.SourceContent }

func (g *ContentBased) Generate(ctx context.Context, req Request) ([]model.RankedCandidate, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	tags := req.Profile.TopHashtags(g.cfg.Hashtags)
	if len(tags) == 0 {
		return nil, model.ErrEmptySignal
	}
	items, err := g.content.Scan(ctx, model.ContentQuery{
		HashtagsAny:  tags,
		AuthorsNotIn: []string{req.UserID},
		NotEngagedBy: req.UserID,
		Limit:        g.cfg.MaxScan,
	})
	if err != nil {
		return nil, err
	}
	h := toSet(tags)
	return rank(items, req.UserID, req.Limit, model.SourceContent, ContentScore(h)), nil
}

// ContentScore is 3 per matching hashtag, 0.5 per like and 1 per reshare.
func ContentScore(tags map[string]struct{}) func(*model.ContentItem) float64 {
	return func(it *model.ContentItem) float64 {
		return 3*float64(count(it.Hashtags, tags)) + 0.5*float64(len(it.Likers)) + float64(len(it.Resharers))
	}
}
