// Package memstore is an in-process store.Store used for development
// (DB_DRIVER=memory) and for tests that need a store without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	items    map[string]*model.ContentItem
	follows  map[string]map[string]struct{}
	events   map[string][]*model.InteractionEvent
	profiles map[string]*model.PreferenceProfile
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		items:    make(map[string]*model.ContentItem),
		follows:  make(map[string]map[string]struct{}),
		events:   make(map[string][]*model.InteractionEvent),
		profiles: make(map[string]*model.PreferenceProfile),
	}
}

func (s *Store) Content() store.Content           { return (*content)(s) }
func (s *Store) Social() store.Social             { return (*social)(s) }
func (s *Store) Interactions() store.Interactions { return (*interactions)(s) }
func (s *Store) Profiles() store.Profiles         { return (*profiles)(s) }

// HealthPing always succeeds.
func (s *Store) HealthPing(context.Context) error { return nil }

func clone(c *model.ContentItem) *model.ContentItem {
	out := *c
	out.Hashtags = append([]string(nil), c.Hashtags...)
	out.Mentions = append([]string(nil), c.Mentions...)
	out.Likers = append([]string(nil), c.Likers...)
	out.Resharers = append([]string(nil), c.Resharers...)
	out.Replies = append([]string(nil), c.Replies...)
	return &out
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func set(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func anyIn(ids []string, m map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := m[id]; ok {
			return true
		}
	}
	return false
}

type content Store

func (c *content) Create(_ context.Context, in *model.ContentItem) (*model.ContentItem, error) {
	if in.AuthorID == "" {
		return nil, model.NewValidationError("authorId", "required")
	}
	out := clone(in)
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	out.CreatedAt = out.CreatedAt.UTC().Truncate(time.Millisecond)
	out.Hashtags = model.NormalizeHashtags(out.Hashtags)
	out.Mentions = uniq(out.Mentions)
	out.Likers = uniq(out.Likers)
	out.Resharers = uniq(out.Resharers)
	out.Replies = uniq(out.Replies)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[out.ID] = out
	return clone(out), nil
}

func (c *content) Get(_ context.Context, id string) (*model.ContentItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return clone(it), nil
}

func (c *content) Scan(_ context.Context, q model.ContentQuery) ([]*model.ContentItem, error) {
	authorsIn, authorsOut := set(q.AuthorsIn), set(q.AuthorsNotIn)
	tags, engaged := set(model.NormalizeHashtags(q.HashtagsAny)), set(q.EngagedByAny)

	c.mu.RLock()
	var out []*model.ContentItem
	for _, it := range c.items {
		if len(q.AuthorsIn) > 0 {
			if _, ok := authorsIn[it.AuthorID]; !ok {
				continue
			}
		}
		if _, ok := authorsOut[it.AuthorID]; ok {
			continue
		}
		if len(q.HashtagsAny) > 0 && !anyIn(it.Hashtags, tags) {
			continue
		}
		if len(q.EngagedByAny) > 0 && !anyIn(it.Likers, engaged) && !anyIn(it.Resharers, engaged) {
			continue
		}
		if q.LikedBy != "" && !it.LikedBy(q.LikedBy) {
			continue
		}
		if q.ResharedBy != "" && !it.ResharedBy(q.ResharedBy) {
			continue
		}
		if q.NotEngagedBy != "" && (it.LikedBy(q.NotEngagedBy) || it.ResharedBy(q.NotEngagedBy)) {
			continue
		}
		if !q.CreatedAfter.IsZero() && it.CreatedAt.Before(q.CreatedAfter) {
			continue
		}
		out = append(out, clone(it))
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func toggle(ids []string, id string, on bool) []string {
	for i, v := range ids {
		if v == id {
			if on {
				return ids
			}
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	if on {
		return append(ids, id)
	}
	return ids
}

func (c *content) SetLike(_ context.Context, contentID, userID string, liked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[contentID]
	if !ok {
		return model.ErrNotFound
	}
	it.Likers = toggle(it.Likers, userID, liked)
	return nil
}

func (c *content) SetReshare(_ context.Context, contentID, userID string, reshared bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[contentID]
	if !ok {
		return model.ErrNotFound
	}
	it.Resharers = toggle(it.Resharers, userID, reshared)
	return nil
}

func (c *content) AddReply(_ context.Context, contentID, replyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[contentID]
	if !ok {
		return model.ErrNotFound
	}
	it.Replies = toggle(it.Replies, replyID, true)
	return nil
}

func (c *content) CountLikes(_ context.Context, userIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(userIDs))
	want := set(userIDs)
	for id := range want {
		out[id] = 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		for _, l := range it.Likers {
			if _, ok := want[l]; ok {
				out[l]++
			}
		}
	}
	return out, nil
}

type social Store

func (s *social) Following(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.follows[userID]), nil
}

func (s *social) Followers(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for follower, followees := range s.follows {
		if _, ok := followees[userID]; ok {
			out = append(out, follower)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *social) FollowingOf(_ context.Context, userIDs []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(userIDs))
	for _, id := range userIDs {
		if f := sortedKeys(s.follows[id]); len(f) > 0 {
			out[id] = f
		}
	}
	return out, nil
}

func (s *social) Follow(_ context.Context, followerID, followeeID string) error {
	if followerID == "" || followeeID == "" {
		return model.NewValidationError("userId", "follower and followee are required")
	}
	if followerID == followeeID {
		return model.NewValidationError("followeeId", "cannot follow yourself")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.follows[followerID] == nil {
		s.follows[followerID] = make(map[string]struct{})
	}
	s.follows[followerID][followeeID] = struct{}{}
	return nil
}

func (s *social) Unfollow(_ context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows[followerID], followeeID)
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type interactions Store

func (i *interactions) Append(_ context.Context, e *model.InteractionEvent) (int, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	cp := *e
	cp.Timestamp = cp.Timestamp.UTC().Truncate(time.Millisecond)
	i.mu.Lock()
	defer i.mu.Unlock()
	i.events[e.UserID] = append(i.events[e.UserID], &cp)
	return len(i.events[e.UserID]), nil
}

func (i *interactions) Recent(_ context.Context, userID string, limit int) ([]*model.InteractionEvent, error) {
	i.mu.RLock()
	evs := make([]*model.InteractionEvent, 0, len(i.events[userID]))
	for _, e := range i.events[userID] {
		cp := *e
		evs = append(evs, &cp)
	}
	i.mu.RUnlock()
	sort.SliceStable(evs, func(a, b int) bool {
		if !evs[a].Timestamp.Equal(evs[b].Timestamp) {
			return evs[a].Timestamp.After(evs[b].Timestamp)
		}
		return evs[a].ID > evs[b].ID
	})
	if limit > 0 && len(evs) > limit {
		evs = evs[:limit]
	}
	return evs, nil
}

func (i *interactions) Count(_ context.Context, userID string) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.events[userID]), nil
}

type profiles Store

func (p *profiles) Get(_ context.Context, userID string) (*model.PreferenceProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	got, ok := p.profiles[userID]
	if !ok {
		return nil, model.ErrProfileMissing
	}
	return copyProfile(got), nil
}

func (p *profiles) Upsert(_ context.Context, in *model.PreferenceProfile) error {
	if in.UserID == "" {
		return model.NewValidationError("userId", "required")
	}
	cp := copyProfile(in)
	cp.LastUpdated = cp.LastUpdated.UTC().Truncate(time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[in.UserID] = cp
	return nil
}

func copyProfile(in *model.PreferenceProfile) *model.PreferenceProfile {
	out := *in
	out.Hashtags = append([]model.HashtagScore{}, in.Hashtags...)
	out.SimilarUsers = append([]model.SimilarUser{}, in.SimilarUsers...)
	if in.Patterns != nil {
		pt := *in.Patterns
		pt.PeakHours = append([]int(nil), in.Patterns.PeakHours...)
		pt.KindPreference = make(map[model.InteractionKind]float64, len(in.Patterns.KindPreference))
		for k, v := range in.Patterns.KindPreference {
			pt.KindPreference[k] = v
		}
		out.Patterns = &pt
	}
	return &out
}
