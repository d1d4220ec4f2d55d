package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
	"github.com/mycelian/mycelian-feed/internal/store/storetest"
)

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared&_pragma=foreign_keys(ON)"
	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db)
}

func TestSQLiteStore_Compliance(t *testing.T) {
	storetest.Run(t, newMemoryStore)
}

func TestOpen_OnDiskPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "feed.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = NewWithDB(db).Content().Create(ctx, &model.ContentItem{ID: "c1", AuthorID: "a"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	got, err := NewWithDB(db).Content().Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "a", got.AuthorID)
}

func TestHealthPing(t *testing.T) {
	s := newMemoryStore(t)
	pinger, ok := s.(interface{ HealthPing(context.Context) error })
	require.True(t, ok)
	require.NoError(t, pinger.HealthPing(context.Background()))
}
