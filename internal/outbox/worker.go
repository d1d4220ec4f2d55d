// Package outbox drains the Postgres outbox table. Interaction appends write
// an interaction_recorded row in the same transaction as the event, so the
// profile rebuild trigger survives crashes between the append and the rebuild.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/events"
	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/metrics"
)

const (
	selectReadyRowsSQL = `
SELECT id, op, payload, aggregate_id
FROM outbox
WHERE status = 'pending' AND next_attempt_at <= now()
ORDER BY id ASC
FOR UPDATE SKIP LOCKED
LIMIT $1`

	markDoneSQL = `UPDATE outbox SET status='done', update_time=now() WHERE id=$1`

	// Rows that keep failing are parked as 'dead' after $2 attempts.
	markFailedSQL = `
UPDATE outbox
SET attempt_count = attempt_count + 1,
    status = CASE WHEN attempt_count + 1 >= $2 THEN 'dead' ELSE status END,
    next_attempt_at = now() + make_interval(secs => LEAST(POWER(2, attempt_count+1), 300)),
    update_time = now()
WHERE id=$1`
)

// Handler consumes interaction events; *profile.Scheduler satisfies it.
type Handler interface {
	Handle(ctx context.Context, evt events.InteractionRecorded) error
}

// Config controls batch size and polling cadence.
type Config struct {
	BatchSize   int           // number of rows to lease per cycle
	Interval    time.Duration // poll interval
	MaxAttempts int
}

// Worker processes outbox rows and hands them to the profile scheduler.
type Worker struct {
	db      *sql.DB
	log     zerolog.Logger
	handler Handler
	cfg     Config
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(db *sql.DB, h Handler, cfg Config, log zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Worker{db: db, log: logger.Component(log, "outbox_worker"), handler: h, cfg: cfg}
}

// Run starts the polling loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("batch", w.cfg.BatchSize).Dur("interval", w.cfg.Interval).Msg("outbox worker starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("outbox worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				// Log and continue; per-row backoff prevents hot-looping
				w.log.Error().Err(err).Msg("outbox processOnce")
			}
		}
	}
}

type job struct {
	id          int64
	op          string
	aggregateID string
	payload     []byte
}

// ProcessOnce leases one batch and handles it, returning how many rows it leased.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	jobs, err := w.leaseBatch(ctx, tx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, tx.Commit()
	}

	for _, j := range jobs {
		if err := w.handle(ctx, j); err != nil {
			metrics.OutboxRows.WithLabelValues("failed").Inc()
			w.log.Warn().Err(err).Int64("id", j.id).Str("op", j.op).Str("user_id", j.aggregateID).Msg("outbox job failed")
			if e := w.markFailed(ctx, tx, j.id); e != nil {
				w.log.Error().Err(e).Int64("id", j.id).Msg("markFailed error")
			}
			continue
		}
		metrics.OutboxRows.WithLabelValues("done").Inc()
		if e := w.markDone(ctx, tx, j.id); e != nil {
			w.log.Error().Err(e).Int64("id", j.id).Msg("markDone error")
		}
	}

	return len(jobs), tx.Commit()
}

// leaseBatch locks and returns up to batchSize ready outbox rows.
func (w *Worker) leaseBatch(ctx context.Context, tx *sql.Tx, batchSize int) ([]job, error) {
	rows, err := tx.QueryContext(ctx, selectReadyRowsSQL, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []job
	for rows.Next() {
		var j job
		if err := rows.Scan(&j.id, &j.op, &j.payload, &j.aggregateID); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// handle executes the outbox operation.
func (w *Worker) handle(ctx context.Context, j job) error {
	switch j.op {
	case events.OpInteractionRecorded:
		var evt events.InteractionRecorded
		if err := json.Unmarshal(j.payload, &evt); err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
		if evt.UserID == "" {
			evt.UserID = j.aggregateID
		}
		return w.handler.Handle(ctx, evt)
	default:
		return fmt.Errorf("unknown op: %s", j.op)
	}
}

func (w *Worker) markDone(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, markDoneSQL, id)
	return err
}

func (w *Worker) markFailed(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, markFailedSQL, id, w.cfg.MaxAttempts)
	return err
}
