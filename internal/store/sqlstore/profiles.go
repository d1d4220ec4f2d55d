package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/mycelian/mycelian-feed/internal/model"
)

type profiles struct {
	db *sql.DB
	d  Dialect
}

func (p *profiles) Get(ctx context.Context, userID string) (*model.PreferenceProfile, error) {
	var (
		hashtags, similar string
		patterns          sql.NullString
		updated           int64
	)
	row := p.db.QueryRowContext(ctx, rebind(p.d, `
        SELECT hashtags, similar_users, patterns, last_updated
        FROM preference_profiles WHERE user_id = ?`), userID)
	if err := row.Scan(&hashtags, &similar, &patterns, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrProfileMissing
		}
		return nil, model.NewStoreError("profiles.get", err)
	}

	out := &model.PreferenceProfile{UserID: userID, LastUpdated: fromMillis(updated)}
	if err := json.Unmarshal([]byte(hashtags), &out.Hashtags); err != nil {
		return nil, model.NewStoreError("profiles.decode", err)
	}
	if err := json.Unmarshal([]byte(similar), &out.SimilarUsers); err != nil {
		return nil, model.NewStoreError("profiles.decode", err)
	}
	if patterns.Valid && patterns.String != "" {
		out.Patterns = &model.InteractionPatterns{}
		if err := json.Unmarshal([]byte(patterns.String), out.Patterns); err != nil {
			return nil, model.NewStoreError("profiles.decode", err)
		}
	}
	return out, nil
}

func (p *profiles) Upsert(ctx context.Context, in *model.PreferenceProfile) error {
	if in.UserID == "" {
		return model.NewValidationError("userId", "required")
	}
	hashtags := in.Hashtags
	if hashtags == nil {
		hashtags = []model.HashtagScore{}
	}
	similar := in.SimilarUsers
	if similar == nil {
		similar = []model.SimilarUser{}
	}
	hb, err := json.Marshal(hashtags)
	if err != nil {
		return err
	}
	sb, err := json.Marshal(similar)
	if err != nil {
		return err
	}
	var patterns sql.NullString
	if in.Patterns != nil {
		pb, err := json.Marshal(in.Patterns)
		if err != nil {
			return err
		}
		patterns = nullString(string(pb))
	}

	_, err = p.db.ExecContext(ctx, rebind(p.d, `
        INSERT INTO preference_profiles (user_id, hashtags, similar_users, patterns, last_updated)
        VALUES (?,?,?,?,?)
        ON CONFLICT (user_id) DO UPDATE SET
            hashtags = excluded.hashtags,
            similar_users = excluded.similar_users,
            patterns = excluded.patterns,
            last_updated = excluded.last_updated`),
		in.UserID, string(hb), string(sb), patterns, toMillis(in.LastUpdated))
	return model.NewStoreError("profiles.upsert", err)
}
