package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mycelian/mycelian-feed/internal/events"
	"github.com/mycelian/mycelian-feed/internal/model"
)

type interactions struct {
	db *sql.DB
	d  Dialect
}

func (i *interactions) Append(ctx context.Context, e *model.InteractionEvent) (int, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, model.NewStoreError("interactions.append", err)
	}
	defer func() { _ = tx.Rollback() }()

	if i.d.UserLock != "" {
		if _, err := tx.ExecContext(ctx, rebind(i.d, i.d.UserLock), e.UserID); err != nil {
			return 0, model.NewStoreError("interactions.lock", err)
		}
	}

	if _, err := tx.ExecContext(ctx, rebind(i.d, `
        INSERT INTO interactions (id, user_id, content_id, kind, weight, session_id, occurred_at)
        VALUES (?,?,?,?,?,?,?)`),
		e.ID, e.UserID, e.ContentID, string(e.Kind), e.Weight, nullString(e.SessionID), toMillis(e.Timestamp)); err != nil {
		return 0, model.NewStoreError("interactions.append", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, rebind(i.d,
		`SELECT COUNT(*) FROM interactions WHERE user_id = ?`), e.UserID).Scan(&count); err != nil {
		return 0, model.NewStoreError("interactions.count", err)
	}

	if i.d.Outbox {
		evt := events.InteractionRecorded{UserID: e.UserID, EventID: e.ID, Count: count}
		if err := writeOutbox(ctx, tx, i.d, events.OpInteractionRecorded, e.UserID, evt); err != nil {
			return 0, model.NewStoreError("interactions.outbox", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, model.NewStoreError("interactions.append", err)
	}
	return count, nil
}

func (i *interactions) Recent(ctx context.Context, userID string, limit int) ([]*model.InteractionEvent, error) {
	b := newBuilder(i.d)
	b.write(`SELECT id, user_id, content_id, kind, weight, session_id, occurred_at FROM interactions WHERE user_id = ` +
		b.arg(userID) + ` ORDER BY occurred_at DESC, id DESC`)
	if limit > 0 {
		b.write(` LIMIT ` + b.arg(limit))
	}
	rows, err := i.db.QueryContext(ctx, b.String(), b.args...)
	if err != nil {
		return nil, model.NewStoreError("interactions.recent", err)
	}
	defer rows.Close()

	var out []*model.InteractionEvent
	for rows.Next() {
		var (
			e       model.InteractionEvent
			kind    string
			session sql.NullString
			at      int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ContentID, &kind, &e.Weight, &session, &at); err != nil {
			return nil, model.NewStoreError("interactions.recent", err)
		}
		e.Kind = model.InteractionKind(kind)
		e.SessionID = session.String
		e.Timestamp = fromMillis(at)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("interactions.recent", err)
	}
	return out, nil
}

func (i *interactions) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := i.db.QueryRowContext(ctx, rebind(i.d, `SELECT COUNT(*) FROM interactions WHERE user_id = ?`), userID).Scan(&n)
	return n, model.NewStoreError("interactions.count", err)
}
