package factory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/config"
	"github.com/mycelian/mycelian-feed/internal/store"
	"github.com/mycelian/mycelian-feed/internal/store/memstore"
	"github.com/mycelian/mycelian-feed/internal/store/postgres"
	"github.com/mycelian/mycelian-feed/internal/store/sqlite"
)

// Storage is the store plus the handle its owner has to close.
type Storage struct {
	Store store.Store
	// DB is nil for the memory driver.
	DB *sql.DB
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// NewStore opens the configured driver and makes sure its schema exists.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	bootstrapCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.BootstrapTimeoutSeconds)*time.Second)
	defer cancel()

	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres open: %w", err)
		}
		if err := postgres.Bootstrap(bootstrapCtx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres bootstrap: %w", err)
		}
		outbox := cfg.RebuildMode == config.RebuildOutbox
		log.Info().Bool("outbox", outbox).Msg("using postgres store")
		return &Storage{Store: postgres.NewWithDB(db, postgres.Options{Outbox: outbox}), DB: db}, nil

	case "sqlite":
		db, err := sqlite.Open(bootstrapCtx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		return &Storage{Store: sqlite.NewWithDB(db), DB: db}, nil

	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return &Storage{Store: memstore.New()}, nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}
