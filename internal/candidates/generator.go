// Package candidates holds the four candidate generators that feed the
// hybrid combiner. Each one reads the content and social stores, scores what
// it finds with its own formula and returns at most the requested number of
// items, never including the viewer's own posts or items the viewer already
// liked or reshared.
package candidates

import (
	"context"
	"sort"
	"time"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Request is one generator invocation.
type Request struct {
	UserID string
	Limit  int
	// Profile may be nil when the user has none and the lazy rebuild failed.
	Profile *model.PreferenceProfile
	Now     time.Time
}

// Generator produces scored candidates from one signal source. A generator
// with nothing to rank returns model.ErrEmptySignal.
type Generator interface {
	Name() model.Source
	Generate(ctx context.Context, req Request) ([]model.RankedCandidate, error)
}

// Config bounds how much each generator reads.
type Config struct {
	// MaxScan caps rows read per store scan.
	MaxScan int
	// SimilarUsers is how many of the profile's similar users seed the collaborative generator.
	SimilarUsers int
	// Hashtags is how many of the profile's top hashtags seed the content generator.
	Hashtags int
	// SocialAuthors caps the friends-of-friends authors considered.
	SocialAuthors int
	// TrendingWindow is how far back the trending generator looks.
	TrendingWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxScan:        5000,
		SimilarUsers:   20,
		Hashtags:       10,
		SocialAuthors:  20,
		TrendingWindow: 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxScan <= 0 {
		c.MaxScan = d.MaxScan
	}
	if c.SimilarUsers <= 0 {
		c.SimilarUsers = d.SimilarUsers
	}
	if c.Hashtags <= 0 {
		c.Hashtags = d.Hashtags
	}
	if c.SocialAuthors <= 0 {
		c.SocialAuthors = d.SocialAuthors
	}
	if c.TrendingWindow <= 0 {
		c.TrendingWindow = d.TrendingWindow
	}
	return c
}

// Standard returns the four generators in blend priority order.
func Standard(st store.Store, cfg Config) []Generator {
	return []Generator{
		NewCollaborative(st.Content(), cfg),
		NewContentBased(st.Content(), cfg),
		NewSocial(st.Social(), st.Content(), cfg),
		NewTrending(st.Content(), cfg),
	}
}

// Eligible reports whether an item may be shown to userID at all.
func Eligible(it *model.ContentItem, userID string) bool {
	return it.AuthorID != userID && !it.LikedBy(userID) && !it.ResharedBy(userID)
}

// rank scores eligible items, orders them by score then recency and keeps limit.
func rank(items []*model.ContentItem, userID string, limit int, src model.Source, score func(*model.ContentItem) float64) []model.RankedCandidate {
	out := make([]model.RankedCandidate, 0, len(items))
	for _, it := range items {
		if !Eligible(it, userID) {
			continue
		}
		out = append(out, model.RankedCandidate{Item: it, Score: score(it), Source: src})
	}
	SortRanked(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortRanked orders by score desc, then newest first, then id for stability.
func SortRanked(c []model.RankedCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		a, b := c[i].Item, c[j].Item
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func count(ids []string, in map[string]struct{}) int {
	n := 0
	for _, id := range ids {
		if _, ok := in[id]; ok {
			n++
		}
	}
	return n
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
