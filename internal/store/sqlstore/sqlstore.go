// Package sqlstore implements store.Store over database/sql. The postgres and
// sqlite packages supply the driver, schema and dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/mycelian/mycelian-feed/internal/store"
)

// Dialect captures the SQL differences between drivers.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
	// Outbox makes Interactions().Append also write an outbox row in the same tx.
	Outbox bool
	// UserLock, when set, is run first in Append with the user id and must
	// block until no other Append for that user is in flight, so every
	// append observes a distinct count.
	UserLock string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		UserLock:    `SELECT pg_advisory_xact_lock(hashtext(?))`,
	}
	// SQLite needs no lock: the pool holds a single connection.
	SQLite = Dialect{Name: "sqlite", Placeholder: func(int) string { return "?" }}
)

// WithOutbox returns a copy of d with outbox writes enabled.
func (d Dialect) WithOutbox() Dialect {
	d.Outbox = true
	return d
}

// inChunk bounds the number of bind parameters in one IN list.
const inChunk = 500

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New constructs a store over an open database with its schema applied.
func New(db *sql.DB, d Dialect) *Store { return &Store{db: db, d: d} }

type Store struct {
	db *sql.DB
	d  Dialect
}

var _ store.Store = (*Store)(nil)

func (s *Store) Content() store.Content           { return &content{db: s.db, d: s.d} }
func (s *Store) Social() store.Social             { return &social{db: s.db, d: s.d} }
func (s *Store) Interactions() store.Interactions { return &interactions{db: s.db, d: s.d} }
func (s *Store) Profiles() store.Profiles         { return &profiles{db: s.db, d: s.d} }

// DB exposes the underlying handle for the outbox worker and tests.
func (s *Store) DB() *sql.DB { return s.db }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// builder accumulates SQL text and positional arguments in lockstep.
type builder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newBuilder(d Dialect) *builder { return &builder{d: d} }

func (b *builder) write(s string) *builder {
	b.sb.WriteString(s)
	return b
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) list(vs []string) string {
	ph := make([]string, len(vs))
	for i, v := range vs {
		ph[i] = b.arg(v)
	}
	return strings.Join(ph, ",")
}

func (b *builder) String() string { return b.sb.String() }

// rebind rewrites a query written with '?' markers into the dialect's placeholders.
func rebind(d Dialect, q string) string {
	if d.Name == SQLite.Name {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteString(d.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
