package factory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/config"
	"github.com/mycelian/mycelian-feed/internal/model"
)

func TestNewStore_SQLite(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.SQLitePath = fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(ON)", uuid.New().String())

	s, err := NewStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NotNil(t, s.DB)

	_, err = s.Store.Profiles().Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, model.ErrProfileMissing)
}

func TestNewStore_Memory(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "memory"

	s, err := NewStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, s.DB)
	assert.NoError(t, s.Close())
}

func TestNewStore_UnknownDriver(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "mongo"

	_, err := NewStore(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
