package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
)

// writeOutbox inserts an outbox row inside the caller's transaction.
func writeOutbox(ctx context.Context, tx *sql.Tx, d Dialect, op, aggregateID string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, rebind(d,
		`INSERT INTO outbox (op, aggregate_id, payload) VALUES (?,?,?)`), op, aggregateID, b)
	return err
}
