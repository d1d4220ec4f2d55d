//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
	"github.com/mycelian/mycelian-feed/internal/store/sqlstore"
	"github.com/mycelian/mycelian-feed/internal/store/storetest"
)

var testDSN string

// TestMain starts a disposable Postgres unless FEED_SERVICE_POSTGRES_DSN points at one.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("FEED_SERVICE_POSTGRES_DSN"); dsn != "" {
		testDSN = dsn
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "feed",
				"POSTGRES_PASSWORD": "feed",
				"POSTGRES_DB":       "feed",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Printf("Failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	testDSN = fmt.Sprintf("postgres://feed:feed@%s:%s/feed?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(testDSN)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	if err := Bootstrap(context.Background(), db); err != nil {
		t.Fatalf("postgres bootstrap: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db, Options{Outbox: true})
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}

func TestAppend_WritesOutboxRow(t *testing.T) {
	ctx := context.Background()
	s := makePGStore(t).(*sqlstore.Store)

	countOutbox := func() int {
		var n int
		if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE op = 'interaction_recorded'`).Scan(&n); err != nil {
			t.Fatalf("count outbox: %v", err)
		}
		return n
	}

	before := countOutbox()
	ev := &model.InteractionEvent{UserID: "outbox-user", ContentID: "c-1", Kind: model.KindLike, Weight: model.KindLike.Weight()}
	if _, err := s.Interactions().Append(ctx, ev); err != nil {
		t.Fatalf("append: %v", err)
	}
	if after := countOutbox(); after != before+1 {
		t.Fatalf("expected one new outbox row, before=%d after=%d", before, after)
	}
}
