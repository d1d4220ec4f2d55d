package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mycelian/mycelian-feed/internal/events"
	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/metrics"
	"github.com/mycelian/mycelian-feed/internal/model"
)

// Rebuild triggers, used as metric labels.
const (
	TriggerThreshold = "threshold"
	TriggerLazy      = "lazy"
	TriggerManual    = "manual"
)

// Rebuilder is satisfied by *Builder.
type Rebuilder interface {
	Rebuild(ctx context.Context, userID string) (*model.PreferenceProfile, error)
}

// SchedulerConfig tunes when and how rebuilds run.
type SchedulerConfig struct {
	// Every rebuilds a profile when the user's interaction count is a multiple of it.
	Every           int
	Workers         int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	// RebuildTimeout bounds a single rebuild started from an event.
	RebuildTimeout time.Duration
}

// Scheduler turns interaction events into profile rebuilds. All rebuilds,
// whatever their trigger, pass through one circuit breaker.
type Scheduler struct {
	rb      Rebuilder
	cfg     SchedulerConfig
	breaker *gobreaker.CircuitBreaker[*model.PreferenceProfile]
	log     zerolog.Logger
}

func NewScheduler(rb Rebuilder, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	if cfg.Every <= 0 {
		cfg.Every = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.RebuildTimeout <= 0 {
		cfg.RebuildTimeout = 30 * time.Second
	}
	s := &Scheduler{
		rb:  rb,
		cfg: cfg,
		log: logger.Component(log, "profile_scheduler"),
	}
	s.breaker = gobreaker.NewCircuitBreaker[*model.PreferenceProfile](gobreaker.Settings{
		Name:        "profile-rebuild",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || model.IsValidationError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return s
}

// Due reports whether a stored interaction count crosses the rebuild threshold.
func (s *Scheduler) Due(count int) bool {
	return count > 0 && count%s.cfg.Every == 0
}

// Handle rebuilds the user's profile when the event's count is due. The
// returned error lets an outbox consumer retry; the bus consumer only logs it.
func (s *Scheduler) Handle(ctx context.Context, evt events.InteractionRecorded) error {
	if !s.Due(evt.Count) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RebuildTimeout)
	defer cancel()
	_, err := s.Rebuild(ctx, evt.UserID, TriggerThreshold)
	return err
}

// Rebuild runs one rebuild through the breaker.
func (s *Scheduler) Rebuild(ctx context.Context, userID, trigger string) (*model.PreferenceProfile, error) {
	started := time.Now()
	p, err := s.breaker.Execute(func() (*model.PreferenceProfile, error) {
		return s.rb.Rebuild(ctx, userID)
	})
	switch {
	case err == nil:
		metrics.ObserveRebuild(trigger, "ok", started)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ObserveRebuild(trigger, "skipped", started)
		s.log.Debug().Str("user_id", userID).Str("trigger", trigger).Msg("rebuild skipped: breaker open")
	default:
		metrics.ObserveRebuild(trigger, "error", started)
		s.log.Error().Err(err).Str("user_id", userID).Str("trigger", trigger).Msg("profile rebuild failed")
	}
	return p, err
}

// BreakerState exposes the breaker state for health reporting.
func (s *Scheduler) BreakerState() string { return s.breaker.State().String() }

// Run consumes events with a fixed worker pool until ctx ends or the channel closes.
func (s *Scheduler) Run(ctx context.Context, in <-chan events.InteractionRecorded) {
	s.log.Info().Int("workers", s.cfg.Workers).Int("every", s.cfg.Every).Msg("profile scheduler starting")
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt, ok := <-in:
					if !ok {
						return
					}
					_ = s.Handle(ctx, evt)
				}
			}
		}()
	}
	wg.Wait()
	s.log.Info().Msg("profile scheduler stopped")
}
