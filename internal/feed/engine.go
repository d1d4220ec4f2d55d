// Package feed assembles ranked feed pages. It fans a request out to the
// candidate generators, blends their output with the hybrid combiner and
// falls back to a non-personalized feed when nothing personal is available.
package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/candidates"
	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/metrics"
	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/profile"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Recorder appends interactions; *interactions.Recorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, userID, contentID string, kind model.InteractionKind, sessionID string)
}

// ProfileRebuilder rebuilds a profile on demand; *profile.Scheduler satisfies it.
type ProfileRebuilder interface {
	Rebuild(ctx context.Context, userID, trigger string) (*model.PreferenceProfile, error)
}

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	// MaxPage bounds the page number a caller may ask for.
	MaxPage int
	// MaxCandidates caps how many items one generator is asked for.
	MaxCandidates    int
	GeneratorTimeout time.Duration
	ShuffleWindow    time.Duration
	TrackFeedViews   bool
}

func DefaultConfig() Config {
	return Config{
		DefaultPageSize:  20,
		MaxPageSize:      100,
		MaxPage:          500,
		MaxCandidates:    5000,
		GeneratorTimeout: 2 * time.Second,
		ShuffleWindow:    15 * time.Minute,
		TrackFeedViews:   true,
	}
}

// Engine serves feed pages and records interactions.
type Engine struct {
	profiles   store.Profiles
	generators []candidates.Generator
	fallback   *Fallback
	recorder   Recorder
	rebuilder  ProfileRebuilder
	cfg        Config
	clock      func() time.Time
	log        zerolog.Logger

	bg sync.WaitGroup
}

// NewEngine wires an engine. Generators run concurrently but their output is
// blended in slice order, which sets dedup priority.
func NewEngine(
	profiles store.Profiles,
	generators []candidates.Generator,
	fallback *Fallback,
	recorder Recorder,
	rebuilder ProfileRebuilder,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	d := DefaultConfig()
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = d.DefaultPageSize
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.MaxPage <= 0 {
		cfg.MaxPage = d.MaxPage
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = d.MaxCandidates
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = d.GeneratorTimeout
	}
	return &Engine{
		profiles:   profiles,
		generators: generators,
		fallback:   fallback,
		recorder:   recorder,
		rebuilder:  rebuilder,
		cfg:        cfg,
		clock:      func() time.Time { return time.Now().UTC() },
		log:        logger.Component(log, "feed_engine"),
	}
}

// GetFeed returns one page of userID's feed. Only invalid arguments produce
// an error; storage trouble degrades the page, down to an empty one.
func (e *Engine) GetFeed(ctx context.Context, userID string, page, pageSize int, sessionID string) (*model.Feed, error) {
	if userID == "" {
		return nil, model.NewValidationError("userId", "required")
	}
	if page < 1 {
		page = 1
	}
	if page > e.cfg.MaxPage {
		return nil, model.NewValidationError("page", fmt.Sprintf("must be at most %d", e.cfg.MaxPage))
	}
	if pageSize <= 0 {
		pageSize = e.cfg.DefaultPageSize
	}
	if pageSize > e.cfg.MaxPageSize {
		pageSize = e.cfg.MaxPageSize
	}

	started := time.Now()
	now := e.clock()
	if e.cfg.TrackFeedViews && e.recorder != nil {
		e.trackView(ctx, userID, sessionID)
	}

	rng := newRNG(userID, page, now, e.cfg.ShuffleWindow)
	path := metrics.PathHybrid
	picked := e.hybrid(ctx, userID, page, pageSize, now)
	if picked == nil {
		path = metrics.PathFallback
		var err error
		if picked, err = e.coldStart(ctx, userID, page, pageSize, rng); err != nil {
			e.log.Error().Err(err).Str("user_id", userID).Msg("fallback failed; serving empty feed")
			path = metrics.PathEmpty
		}
	} else {
		picked = interleave(picked, rng)
	}
	if len(picked) == 0 && path != metrics.PathEmpty {
		path = metrics.PathEmpty
	}

	metrics.FeedRequests.WithLabelValues(path).Inc()
	metrics.FeedRequestDuration.Observe(time.Since(started).Seconds())
	e.log.Debug().
		Str("user_id", userID).
		Int("page", page).
		Int("page_size", pageSize).
		Int("items", len(picked)).
		Str("path", path).
		Dur("elapsed", time.Since(started)).
		Msg("feed served")

	return &model.Feed{
		Items:     annotate(picked, userID),
		Page:      page,
		PageSize:  pageSize,
		HasMore:   len(picked) == pageSize,
		Timestamp: now,
	}, nil
}

// hybrid returns the page's candidates before shuffling. It returns nil when
// no generator produced anything, which sends the request to the fallback;
// an exhausted but non-empty pool yields an empty, non-nil page.
func (e *Engine) hybrid(ctx context.Context, userID string, page, pageSize int, now time.Time) []model.RankedCandidate {
	quotas := make([]int, len(e.generators))
	for i, g := range e.generators {
		quotas[i] = Quota(generatorShare[g.Name()], pageSize)
	}
	quotas = windows(quotas, pageSize)
	req := candidates.Request{UserID: userID, Profile: e.resolveProfile(ctx, userID), Now: now}

	lists := make([][]model.RankedCandidate, len(e.generators))
	var wg sync.WaitGroup
	for i, g := range e.generators {
		wg.Add(1)
		go func(i int, g candidates.Generator) {
			defer wg.Done()
			r := req
			r.Limit = trancheLimit(quotas[i], page, e.cfg.MaxCandidates)
			lists[i] = e.generate(ctx, g, r)
		}(i, g)
	}
	wg.Wait()

	var total int
	for _, l := range lists {
		total += len(l)
	}
	if total == 0 {
		return nil
	}
	return append([]model.RankedCandidate{}, pageWindow(lists, quotas, page)...)
}

// generate runs one generator under its own deadline. Failures and panics
// become an empty list so one broken signal never breaks the feed.
func (e *Engine) generate(ctx context.Context, g candidates.Generator, req candidates.Request) (out []model.RankedCandidate) {
	src := string(g.Name())
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.GeneratorTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("source", src).Interface("panic", r).Msg("generator panicked")
			metrics.ObserveGenerator(src, started, 0, true)
			out = nil
		}
	}()

	out, err := g.Generate(ctx, req)
	switch {
	case err == nil:
		metrics.ObserveGenerator(src, started, len(out), false)
		return out
	case errors.Is(err, model.ErrEmptySignal):
		metrics.ObserveGenerator(src, started, 0, false)
		e.log.Debug().Str("source", src).Str("user_id", req.UserID).Msg("generator has no signal")
	default:
		metrics.ObserveGenerator(src, started, 0, true)
		e.log.Warn().Err(err).Str("source", src).Str("user_id", req.UserID).Msg("generator failed")
	}
	return nil
}

// resolveProfile loads the user's profile, rebuilding it synchronously when
// missing. A nil result leaves the profile-driven generators without signal.
func (e *Engine) resolveProfile(ctx context.Context, userID string) *model.PreferenceProfile {
	p, err := e.profiles.Get(ctx, userID)
	if err == nil {
		return p
	}
	if !errors.Is(err, model.ErrProfileMissing) {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("profile read failed")
		return nil
	}
	if e.rebuilder == nil {
		return nil
	}
	p, err = e.rebuilder.Rebuild(ctx, userID, profile.TriggerLazy)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("lazy profile rebuild failed")
		return nil
	}
	return p
}

func (e *Engine) coldStart(ctx context.Context, userID string, page, pageSize int, rng *rand.Rand) ([]model.RankedCandidate, error) {
	if e.fallback == nil {
		return nil, ErrFallbackUnavailable
	}
	f, p, d := fallbackLimits(pageSize)
	tiers, err := e.fallback.Tiers(ctx, userID, [3]int{f, p, d}, page)
	if err != nil {
		return nil, fmt.Errorf("fallback tiers: %w", err)
	}
	picked := pageWindow(tiers, []int{f, p, d}, page)
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return truncate(picked, pageSize), nil
}

// RecordInteraction appends one interaction. It never fails the caller;
// problems are logged and counted by the recorder.
func (e *Engine) RecordInteraction(ctx context.Context, userID, contentID string, kind model.InteractionKind, sessionID string) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(context.WithoutCancel(ctx), userID, contentID, kind, sessionID)
}

// trackView records the feed view without delaying the response.
func (e *Engine) trackView(ctx context.Context, userID, sessionID string) {
	ctx = context.WithoutCancel(ctx)
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		e.recorder.Record(ctx, userID, model.FeedViewContentID, model.KindView, sessionID)
	}()
}

// Wait blocks until background view tracking has finished.
func (e *Engine) Wait() { e.bg.Wait() }

func annotate(picked []model.RankedCandidate, userID string) []model.FeedItem {
	out := make([]model.FeedItem, 0, len(picked))
	for _, c := range picked {
		out = append(out, model.FeedItem{
			ContentItem: c.Item,
			Source:      c.Source,
			Score:       c.Score,
			Liked:       c.Item.LikedBy(userID),
			Reshared:    c.Item.ResharedBy(userID),
		})
	}
	return out
}
