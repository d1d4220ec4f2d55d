package feedservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/api"
	"github.com/mycelian/mycelian-feed/internal/candidates"
	"github.com/mycelian/mycelian-feed/internal/config"
	"github.com/mycelian/mycelian-feed/internal/events"
	"github.com/mycelian/mycelian-feed/internal/factory"
	"github.com/mycelian/mycelian-feed/internal/feed"
	"github.com/mycelian/mycelian-feed/internal/health"
	"github.com/mycelian/mycelian-feed/internal/interactions"
	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/profile"
	"github.com/mycelian/mycelian-feed/internal/services"
	"github.com/mycelian/mycelian-feed/internal/store"
)

const serviceName = "feed-service"

// Run starts the feed service HTTP server and blocks until shutdown or error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		log := logger.New(serviceName, "info")
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log := logger.New(serviceName, cfg.LogLevel)

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("rebuild_mode", cfg.RebuildMode).
		Msg("Feed service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	storage, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}
	defer func() { _ = storage.Close() }()

	d := wire(cfg, storage.Store, log)

	// The inline scheduler consumes the bus; in outbox mode the profile worker does.
	// It outlives the signal so queued events drain once the bus is closed.
	schedCtx, schedCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer schedCancel()
	schedDone := make(chan struct{})
	if d.bus != nil {
		go func() {
			defer close(schedDone)
			d.scheduler.Run(schedCtx, d.bus.Subscribe())
		}()
	} else {
		close(schedDone)
	}

	svcHealth := startHealthCheckers(ctx, cfg, log, storage.Store)
	router := api.NewRouter(d.engine, d.profiles, svcHealth.IsHealthy, log,
		api.WithComponents(components(svcHealth, d.scheduler)))

	// Block startup until dependencies report healthy; fail fast otherwise
	startup := time.Duration(cfg.BootstrapTimeoutSeconds+cfg.HealthIntervalSeconds) * time.Second
	if err := health.WaitUntilHealthy(ctx, svcHealth, startup); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		d.engine.Wait()
		drainScheduler(ctxShutdown, d.bus, schedDone, schedCancel, log)
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

type deps struct {
	engine    *feed.Engine
	profiles  *services.ProfileService
	scheduler *profile.Scheduler
	// bus is nil in outbox mode.
	bus *events.Bus
}

// wire builds the ranking and profile components over one store.
func wire(cfg *config.Config, st store.Store, log zerolog.Logger) deps {
	builder := profile.NewBuilder(st, profile.Config{
		RecentWindow:   1000,
		MinCommonLikes: cfg.MinCommonLikes,
		MinTotalLikes:  cfg.MinTotalLikes,
	}, log)
	scheduler := profile.NewScheduler(builder, profile.SchedulerConfig{
		Every:           cfg.RebuildEvery,
		Workers:         cfg.RebuildWorkers,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerTimeout:  cfg.BreakerTimeout,
	}, log)

	var (
		bus *events.Bus
		pub events.Publisher
	)
	if cfg.RebuildMode == config.RebuildInline {
		bus = events.NewBus(cfg.EventBuffer)
		pub = bus
	}
	recorder := interactions.NewRecorder(st.Interactions(), pub, log)

	engine := feed.NewEngine(
		st.Profiles(),
		candidates.Standard(st, candidates.Config{MaxScan: cfg.MaxScan}),
		feed.NewFallback(st.Content(), st.Social(), cfg.MaxScan, log),
		recorder,
		scheduler,
		feed.Config{
			DefaultPageSize:  cfg.DefaultPageSize,
			MaxPageSize:      cfg.MaxPageSize,
			MaxPage:          cfg.MaxPage,
			MaxCandidates:    cfg.MaxScan,
			GeneratorTimeout: cfg.GeneratorTimeout,
			ShuffleWindow:    cfg.ShuffleWindow,
			TrackFeedViews:   cfg.TrackFeedViews,
		},
		log,
	)
	return deps{
		engine:    engine,
		profiles:  services.NewProfileService(st.Profiles(), scheduler),
		scheduler: scheduler,
		bus:       bus,
	}
}

// drainScheduler closes the bus once nothing can publish and waits for the
// scheduler to finish queued rebuilds, abandoning them when ctx expires.
func drainScheduler(ctx context.Context, bus *events.Bus, done <-chan struct{}, cancel context.CancelFunc, log zerolog.Logger) {
	if bus != nil {
		log.Info().Int("queued", bus.Len()).Msg("Draining rebuild events")
		bus.Close()
	}
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("rebuild drain timed out")
		cancel()
		<-done
	}
}

func components(svc *health.ServiceHealthChecker, sched *profile.Scheduler) api.ComponentsFunc {
	return func() map[string]string {
		out := map[string]string{"rebuild_breaker": sched.BreakerState()}
		for name, up := range svc.Components() {
			if up {
				out[name] = "up"
			} else {
				out[name] = "down"
			}
		}
		return out
	}
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()
	return errCh
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
