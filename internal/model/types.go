package model

import (
	"fmt"
	"strings"
	"time"
)

// ContentItem is a post as seen by the ranking engine. Engagement sets are
// materialized so scoring can be done in process.
type ContentItem struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	Hashtags  []string  `json:"hashtags"`
	Mentions  []string  `json:"mentions"`
	Likers    []string  `json:"likers"`
	Resharers []string  `json:"resharers"`
	Replies   []string  `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikedBy reports whether userID is among the item's likers.
func (c *ContentItem) LikedBy(userID string) bool { return contains(c.Likers, userID) }

// ResharedBy reports whether userID is among the item's resharers.
func (c *ContentItem) ResharedBy(userID string) bool { return contains(c.Resharers, userID) }

// Engagement is the combined liker and resharer count.
func (c *ContentItem) Engagement() int { return len(c.Likers) + len(c.Resharers) }

// NormalizeHashtags lowercases, trims a leading '#', and removes duplicates
// while keeping first-seen order.
func NormalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// InteractionKind enumerates the tracked user actions.
type InteractionKind string

const (
	KindView    InteractionKind = "view"
	KindClick   InteractionKind = "click"
	KindLike    InteractionKind = "like"
	KindReshare InteractionKind = "reshare"
	KindReply   InteractionKind = "reply"
	KindShare   InteractionKind = "share"
)

var kindWeights = map[InteractionKind]float64{
	KindView:    0.1,
	KindClick:   0.5,
	KindLike:    1,
	KindReshare: 2,
	KindReply:   3,
	KindShare:   1.5,
}

// Kinds returns all interaction kinds in a stable order.
func Kinds() []InteractionKind {
	return []InteractionKind{KindView, KindClick, KindLike, KindReshare, KindReply, KindShare}
}

// KindNames lists Kinds as plain strings, e.g. for usage text.
func KindNames() []string {
	out := make([]string, 0, len(kindWeights))
	for _, k := range Kinds() {
		out = append(out, string(k))
	}
	return out
}

// ParseInteractionKind validates a wire value.
func ParseInteractionKind(s string) (InteractionKind, error) {
	k := InteractionKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindWeights[k]; !ok {
		return "", NewValidationError("kind", fmt.Sprintf("unknown interaction kind %q (want one of %s)", s, strings.Join(KindNames(), ", ")))
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k InteractionKind) Valid() bool {
	_, ok := kindWeights[k]
	return ok
}

// Weight is the fixed signal weight of the kind; unknown kinds weigh 0.
func (k InteractionKind) Weight() float64 { return kindWeights[k] }

// FeedViewContentID is recorded as the content id of a feed-page view.
const FeedViewContentID = "feed_view"

// InteractionEvent is one append-only row of the interaction log.
type InteractionEvent struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	ContentID string          `json:"contentId"`
	Kind      InteractionKind `json:"kind"`
	Weight    float64         `json:"weight"`
	SessionID string          `json:"sessionId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// HashtagScore is one entry in a profile's ranked hashtag list.
type HashtagScore struct {
	Hashtag     string    `json:"hashtag"`
	Score       float64   `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SimilarUser is one entry in a profile's ranked similar-user list.
type SimilarUser struct {
	UserID         string    `json:"userId"`
	Score          float64   `json:"score"`
	LastCalculated time.Time `json:"lastCalculated"`
}

// SessionStats summarizes session-tagged interactions.
type SessionStats struct {
	Sessions            int     `json:"sessions"`
	AvgEventsPerSession float64 `json:"avgEventsPerSession"`
	AvgDurationSeconds  float64 `json:"avgDurationSeconds"`
}

// InteractionPatterns is the optional behavioural summary of a profile.
type InteractionPatterns struct {
	PeakHours          []int                       `json:"peakHours"`
	KindPreference     map[InteractionKind]float64 `json:"kindPreference"`
	Session            SessionStats                `json:"session"`
	ReshareToLikeRatio float64                     `json:"reshareToLikeRatio"`
	EventCount         int                         `json:"eventCount"`
}

// PreferenceProfile is a derived, recomputable cache of a user's interests.
type PreferenceProfile struct {
	UserID       string               `json:"userId"`
	Hashtags     []HashtagScore       `json:"hashtags"`
	SimilarUsers []SimilarUser        `json:"similarUsers"`
	Patterns     *InteractionPatterns `json:"patterns,omitempty"`
	LastUpdated  time.Time            `json:"lastUpdated"`
}

const (
	MaxProfileHashtags     = 20
	MaxProfileSimilarUsers = 50
)

// TopHashtags returns up to n hashtags in profile order.
func (p *PreferenceProfile) TopHashtags(n int) []string {
	if p == nil {
		return nil
	}
	if n <= 0 || n > len(p.Hashtags) {
		n = len(p.Hashtags)
	}
	out := make([]string, 0, n)
	for _, h := range p.Hashtags[:n] {
		out = append(out, h.Hashtag)
	}
	return out
}

// TopSimilarUsers returns up to n similar user ids in profile order.
func (p *PreferenceProfile) TopSimilarUsers(n int) []string {
	if p == nil {
		return nil
	}
	if n <= 0 || n > len(p.SimilarUsers) {
		n = len(p.SimilarUsers)
	}
	out := make([]string, 0, n)
	for _, s := range p.SimilarUsers[:n] {
		out = append(out, s.UserID)
	}
	return out
}

// Source tags where a ranked candidate came from.
type Source string

const (
	SourceCollaborative Source = "collaborative"
	SourceContent       Source = "content"
	SourceSocial        Source = "social"
	SourceTrending      Source = "trending"
	SourceFallback      Source = "fallback"
)

// RankedCandidate lives only for the duration of one feed request.
type RankedCandidate struct {
	Item   *ContentItem
	Score  float64
	Source Source
}

// ContentID is shorthand for the candidate's item id.
func (c RankedCandidate) ContentID() string { return c.Item.ID }

// FeedItem is a ranked item annotated for the viewer.
type FeedItem struct {
	*ContentItem
	Source   Source  `json:"source"`
	Score    float64 `json:"score"`
	Liked    bool    `json:"liked"`
	Reshared bool    `json:"reshared"`
}

// Feed is one page of ranked items.
type Feed struct {
	Items     []FeedItem `json:"items"`
	Page      int        `json:"page"`
	PageSize  int        `json:"pageSize"`
	HasMore   bool       `json:"hasMore"`
	Timestamp time.Time  `json:"timestamp"`
}
