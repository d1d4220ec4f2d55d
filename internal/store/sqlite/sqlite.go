package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mycelian/mycelian-feed/internal/store/sqlstore"
)

// Open opens (or creates) a SQLite database at path with WAL and foreign keys
// enabled, and applies the schema. A path starting with "file:" is used as the DSN.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps shared in-memory databases alive.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs the store over an open database.
func NewWithDB(db *sql.DB) *sqlstore.Store { return sqlstore.New(db, sqlstore.SQLite) }

// EnsureSchema creates tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
        id          TEXT PRIMARY KEY,
        author_id   TEXT NOT NULL,
        body        TEXT NOT NULL DEFAULT '',
        created_at  INTEGER NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_content_author ON content_items(author_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_content_created ON content_items(created_at)`,
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
        created_at  INTEGER NOT NULL,
        PRIMARY KEY (content_id, user_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_likes_user ON content_likes(user_id)`,
	`CREATE TABLE IF NOT EXISTS content_reshares (
        content_id  TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
        user_id     TEXT NOT NULL,
        created_at  INTEGER NOT NULL,
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
        created_at  INTEGER NOT NULL,
        PRIMARY KEY (follower_id, followee_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id)`,
	`CREATE TABLE IF NOT EXISTS interactions (
        id          TEXT PRIMARY KEY,
        user_id     TEXT NOT NULL,
        content_id  TEXT NOT NULL,
        kind        TEXT NOT NULL,
        weight      REAL NOT NULL,
        session_id  TEXT,
        occurred_at INTEGER NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS preference_profiles (
        user_id       TEXT PRIMARY KEY,
        hashtags      TEXT NOT NULL,
        similar_users TEXT NOT NULL,
        patterns      TEXT,
        last_updated  INTEGER NOT NULL
    )`,
}
