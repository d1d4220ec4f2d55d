package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/mycelian/mycelian-feed/internal/model"
)

type social struct {
	db *sql.DB
	d  Dialect
}

func (s *social) Following(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.column(ctx, `SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY followee_id`, userID)
	return ids, model.NewStoreError("social.following", err)
}

func (s *social) Followers(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.column(ctx, `SELECT follower_id FROM follows WHERE followee_id = ? ORDER BY follower_id`, userID)
	return ids, model.NewStoreError("social.followers", err)
}

func (s *social) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.d, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *social) FollowingOf(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	for _, chunk := range chunks(userIDs, inChunk) {
		b := newBuilder(s.d)
		b.write(`SELECT follower_id, followee_id FROM follows WHERE follower_id IN (` + b.list(chunk) +
			`) ORDER BY follower_id, followee_id`)
		if err := func() error {
			rows, err := s.db.QueryContext(ctx, b.String(), b.args...)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var follower, followee string
				if err := rows.Scan(&follower, &followee); err != nil {
					return err
				}
				out[follower] = append(out[follower], followee)
			}
			return rows.Err()
		}(); err != nil {
			return nil, model.NewStoreError("social.following_of", err)
		}
	}
	return out, nil
}

func (s *social) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == "" || followeeID == "" {
		return model.NewValidationError("userId", "follower and followee are required")
	}
	if followerID == followeeID {
		return model.NewValidationError("followeeId", "cannot follow yourself")
	}
	_, err := s.db.ExecContext(ctx, rebind(s.d,
		`INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?,?,?) ON CONFLICT DO NOTHING`),
		followerID, followeeID, toMillis(time.Now()))
	return model.NewStoreError("social.follow", err)
}

func (s *social) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := s.db.ExecContext(ctx, rebind(s.d,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`), followerID, followeeID)
	return model.NewStoreError("social.unfollow", err)
}
