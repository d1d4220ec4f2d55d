package store

import (
	"context"

	"github.com/mycelian/mycelian-feed/internal/model"
)

// Store exposes the storage collaborators the ranking engine consumes.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Content() Content
	Social() Social
	Interactions() Interactions
	Profiles() Profiles
}

type Content interface {
	Create(ctx context.Context, c *model.ContentItem) (*model.ContentItem, error)
	// Get returns model.ErrNotFound for unknown ids.
	Get(ctx context.Context, contentID string) (*model.ContentItem, error)
	Scan(ctx context.Context, q model.ContentQuery) ([]*model.ContentItem, error)
	SetLike(ctx context.Context, contentID, userID string, liked bool) error
	SetReshare(ctx context.Context, contentID, userID string, reshared bool) error
	AddReply(ctx context.Context, contentID, replyID string) error
	// CountLikes returns each user's total like count; users with none map to 0.
	CountLikes(ctx context.Context, userIDs []string) (map[string]int, error)
}

type Social interface {
	Following(ctx context.Context, userID string) ([]string, error)
	Followers(ctx context.Context, userID string) ([]string, error)
	// FollowingOf returns the followed ids of each given user.
	FollowingOf(ctx context.Context, userIDs []string) (map[string][]string, error)
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
}

type Interactions interface {
	// Append inserts the event and returns the user's stored interaction
	// count, read in the same transaction as the insert.
	Append(ctx context.Context, e *model.InteractionEvent) (int, error)
	Recent(ctx context.Context, userID string, limit int) ([]*model.InteractionEvent, error)
	Count(ctx context.Context, userID string) (int, error)
}

type Profiles interface {
	// Get returns model.ErrProfileMissing when the user has no profile yet.
	Get(ctx context.Context, userID string) (*model.PreferenceProfile, error)
	// Upsert replaces the whole profile.
	Upsert(ctx context.Context, p *model.PreferenceProfile) error
}
