package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-feed/internal/api/respond"
	"github.com/mycelian/mycelian-feed/internal/metrics"
)

// Middleware turns a handler panic into a 500 and a counted, logged event.
// The route template, not the raw path, labels the metric.
func Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				route := routeTemplate(r)
				metrics.HandlerPanics.WithLabelValues(route).Inc()

				ev := log.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("route", route).
					Str("url", r.URL.String()).
					Bytes("stack", debug.Stack())
				if uid := mux.Vars(r)["userId"]; uid != "" {
					ev = ev.Str("user_id", uid)
				}
				ev.Msg("panic recovered")

				respond.WriteInternalError(w, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
