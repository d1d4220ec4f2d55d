package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mycelian/mycelian-feed/internal/store/sqlstore"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Options tune the Postgres-backed store.
type Options struct {
	// Outbox makes every interaction append also enqueue an outbox row.
	Outbox bool
}

// NewWithDB constructs the store over an open database. The schema must exist.
func NewWithDB(db *sql.DB, opts Options) *sqlstore.Store {
	d := sqlstore.Postgres
	if opts.Outbox {
		d = d.WithOutbox()
	}
	return sqlstore.New(db, d)
}

// Bootstrap applies the schema; every statement is idempotent.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
        id          TEXT PRIMARY KEY,
        author_id   TEXT NOT NULL,
        body        TEXT NOT NULL DEFAULT '',
        created_at  BIGINT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_content_author ON content_items(author_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_content_created ON content_items(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS content_hashtags (
        content_id  TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
        hashtag     TEXT NOT NULL,
        PRIMARY KEY (content_id, hashtag)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_hashtags_tag ON content_hashtags(hashtag)`,
	`CREATE TABLE IF NOT EXISTS content_mentions (
        content_id  TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
        user_id     TEXT NOT NULL,
        PRIMARY KEY (content_id, user_id)
    )`,
	`CREATE TABLE IF NOT EXISTS content_likes (
        content_id  TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
        user_id     TEXT NOT NULL,
        created_at  BIGINT NOT NULL,
        PRIMARY KEY (content_id, user_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_likes_user ON content_likes(user_id)`,
	`CREATE TABLE IF NOT EXISTS content_reshares (
        content_id  TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
        user_id     TEXT NOT NULL,
        created_at  BIGINT NOT NULL,
        PRIMARY KEY (content_id, user_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_reshares_user ON content_reshares(user_id)`,
	`CREATE TABLE IF NOT EXISTS content_replies (
        content_id  TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
        reply_id    TEXT NOT NULL,
        PRIMARY KEY (content_id, reply_id)
    )`,
	`CREATE TABLE IF NOT EXISTS follows (
        follower_id TEXT NOT NULL,
        followee_id TEXT NOT NULL,
        created_at  BIGINT NOT NULL,
        PRIMARY KEY (follower_id, followee_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id)`,
	`CREATE TABLE IF NOT EXISTS interactions (
        id          TEXT PRIMARY KEY,
        user_id     TEXT NOT NULL,
        content_id  TEXT NOT NULL,
        kind        TEXT NOT NULL,
        weight      DOUBLE PRECISION NOT NULL,
        session_id  TEXT,
        occurred_at BIGINT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, occurred_at DESC)`,
	`CREATE TABLE IF NOT EXISTS preference_profiles (
        user_id       TEXT PRIMARY KEY,
        hashtags      TEXT NOT NULL,
        similar_users TEXT NOT NULL,
        patterns      TEXT,
        last_updated  BIGINT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS outbox (
        id              BIGSERIAL PRIMARY KEY,
        op              TEXT NOT NULL,
        aggregate_id    TEXT NOT NULL,
        payload         JSONB NOT NULL,
        status          TEXT NOT NULL DEFAULT 'pending',
        attempt_count   INT NOT NULL DEFAULT 0,
        next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        creation_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
        update_time     TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_ready ON outbox(status, next_attempt_at)`,
}
