package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/api/recovery"
	"github.com/mycelian/mycelian-feed/internal/model"
)

// FeedService is the ranking engine as seen by the HTTP layer.
type FeedService interface {
	GetFeed(ctx context.Context, userID string, page, pageSize int, sessionID string) (*model.Feed, error)
	RecordInteraction(ctx context.Context, userID, contentID string, kind model.InteractionKind, sessionID string)
}

type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*model.PreferenceProfile, error)
	RebuildProfile(ctx context.Context, userID string) (*model.PreferenceProfile, error)
}

// SessionHeader carries the client's session id for interaction tracking.
const SessionHeader = "X-Session-Id"

// Option adjusts optional router behaviour.
type Option func(*routerOptions)

type routerOptions struct {
	components ComponentsFunc
}

// WithComponents adds per-component status to the health response.
func WithComponents(f ComponentsFunc) Option {
	return func(o *routerOptions) { o.components = f }
}

// NewRouter builds the HTTP routes.
func NewRouter(feed FeedService, profiles ProfileService, health HealthFunc, log zerolog.Logger, opts ...Option) *mux.Router {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware(log))

	feedHandler := NewFeedHandler(feed)
	profileHandler := NewProfileHandler(profiles)
	healthHandler := NewHealthHandler(health)
	healthHandler.components = o.components

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/api/users/{userId}/feed", feedHandler.GetFeed).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/interactions", feedHandler.RecordInteraction).Methods(http.MethodPost)

	router.HandleFunc("/api/users/{userId}/profile", profileHandler.GetProfile).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/profile/rebuild", profileHandler.RebuildProfile).Methods(http.MethodPost)

	return router
}
