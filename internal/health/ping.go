package health

import (
	"context"
	"errors"
)

// ErrStartupTimeout is returned when dependencies never became healthy.
var ErrStartupTimeout = errors.New("startup aborted: dependencies not healthy in time")

// HealthPinger can be implemented by components to expose a specialized
// health check. HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
