package candidates

import (
	"context"
	"sort"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Social recommends posts by friends of friends.
type Social struct {
	social  store.Social
	content store.Content
	cfg     Config
}

func NewSocial(social store.Social, content store.Content, cfg Config) *Social {
	return &Social{social: social, content: content, cfg: cfg.withDefaults()}
}

func (g *Social) Name() model.Source { return model.SourceSocial }

func (g *Social) Generate(ctx context.Context, req Request) ([]model.RankedCandidate, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	authors, err := g.FriendsOfFriends(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return nil, model.ErrEmptySignal
	}
	items, err := g.content.Scan(ctx, model.ContentQuery{
		AuthorsIn:    authors,
		AuthorsNotIn: []string{req.UserID},
		NotEngagedBy: req.UserID,
		Limit:        g.cfg.MaxScan,
	})
	if err != nil {
		return nil, err
	}
	return rank(items, req.UserID, req.Limit, model.SourceSocial, func(it *model.ContentItem) float64 {
		return float64(len(it.Likers)) + 2*float64(len(it.Resharers))
	}), nil
}

// FriendsOfFriends returns users followed by someone userID follows, minus
// userID and anyone userID already follows, ordered by how many of userID's
// followees follow them.
func (g *Social) FriendsOfFriends(ctx context.Context, userID string) ([]string, error) {
	following, err := g.social.Following(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(following) == 0 {
		return nil, nil
	}
	second, err := g.social.FollowingOf(ctx, following)
	if err != nil {
		return nil, err
	}

	skip := toSet(following)
	skip[userID] = struct{}{}
	mutual := make(map[string]int)
	for _, f := range following {
		for _, id := range second[f] {
			if _, ok := skip[id]; ok {
				continue
			}
			mutual[id]++
		}
	}

	out := make([]string, 0, len(mutual))
	for id := range mutual {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if mutual[out[i]] != mutual[out[j]] {
			return mutual[out[i]] > mutual[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > g.cfg.SocialAuthors {
		out = out[:g.cfg.SocialAuthors]
	}
	return out, nil
}
