// Package interactions appends weighted user actions to the interaction log.
package interactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/events"
	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/metrics"
	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Recorder never returns errors: tracking loss is logged and counted.
type Recorder struct {
	st    store.Interactions
	pub   events.Publisher
	clock func() time.Time
	log   zerolog.Logger
}

// NewRecorder builds a recorder. pub may be nil when events reach the
// scheduler through the store's outbox instead of the in-process bus.
func NewRecorder(st store.Interactions, pub events.Publisher, log zerolog.Logger) *Recorder {
	return &Recorder{
		st:    st,
		pub:   pub,
		clock: func() time.Time { return time.Now().UTC() },
		log:   logger.Component(log, "interaction_recorder"),
	}
}

// Record appends one interaction and announces the user's new total.
func (r *Recorder) Record(ctx context.Context, userID, contentID string, kind model.InteractionKind, sessionID string) {
	if userID == "" || contentID == "" || !kind.Valid() {
		metrics.InteractionRecordFailures.Inc()
		r.log.Warn().
			Str("user_id", userID).
			Str("content_id", contentID).
			Str("kind", string(kind)).
			Msg("dropping invalid interaction")
		return
	}

	ev := &model.InteractionEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		ContentID: contentID,
		Kind:      kind,
		Weight:    kind.Weight(),
		SessionID: sessionID,
		Timestamp: r.clock(),
	}
	count, err := r.st.Append(ctx, ev)
	if err != nil {
		metrics.InteractionRecordFailures.Inc()
		r.log.Error().Err(err).
			Str("user_id", userID).
			Str("kind", string(kind)).
			Msg("interaction append failed")
		return
	}
	metrics.InteractionsRecorded.WithLabelValues(string(kind)).Inc()

	if r.pub == nil {
		return
	}
	if !r.pub.Publish(events.InteractionRecorded{UserID: userID, EventID: ev.ID, Count: count}) {
		metrics.EventsDropped.Inc()
		r.log.Warn().Str("user_id", userID).Int("count", count).Msg("event bus full; interaction event dropped")
	}
}
