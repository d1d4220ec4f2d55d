package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	q := `SELECT 1 FROM t WHERE a = ? AND b IN (?,?)`
	assert.Equal(t, q, rebind(SQLite, q))
	assert.Equal(t, `SELECT 1 FROM t WHERE a = $1 AND b IN ($2,$3)`, rebind(Postgres, q))
}

func TestBuilderKeepsArgsInOrder(t *testing.T) {
	b := newBuilder(Postgres)
	b.write(`x IN (` + b.list([]string{"a", "b"}) + `) AND y = ` + b.arg(7))
	assert.Equal(t, `x IN ($1,$2) AND y = $3`, b.String())
	assert.Equal(t, []any{"a", "b", 7}, b.args)
}

func TestChunks(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5"}
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}, {"5"}}, chunks(ids, 2))
	assert.Nil(t, chunks(nil, 2))
}

func TestWithOutboxCopies(t *testing.T) {
	d := Postgres.WithOutbox()
	assert.True(t, d.Outbox)
	assert.False(t, Postgres.Outbox)
}

func TestUserLockPerDialect(t *testing.T) {
	assert.Equal(t, `SELECT pg_advisory_xact_lock(hashtext($1))`, rebind(Postgres, Postgres.UserLock))
	assert.Equal(t, Postgres.UserLock, Postgres.WithOutbox().UserLock)
	assert.Empty(t, SQLite.UserLock)
}
