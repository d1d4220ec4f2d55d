package api

import (
	"net/http"
	"time"

	"github.com/mycelian/mycelian-feed/internal/api/respond"
)

// HealthFunc reports overall service health.
type HealthFunc func() bool

// ComponentsFunc reports informational status per component, e.g. the
// rebuild breaker state. It never changes the overall status code.
type ComponentsFunc func() map[string]string

// HealthHandler handles health check endpoints
type HealthHandler struct {
	isHealthy  HealthFunc
	components ComponentsFunc
}

func NewHealthHandler(f HealthFunc) *HealthHandler {
	if f == nil {
		f = func() bool { return false }
	}
	return &HealthHandler{isHealthy: f}
}

// CheckHealth handles GET /api/health; 503 while any dependency is down.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if !h.isHealthy() {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	body := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.components != nil {
		body["components"] = h.components()
	}
	respond.WriteJSON(w, code, body)
}
