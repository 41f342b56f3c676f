package retailer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between outbound calls.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate returns a gate admitting one call per interval. A non-positive
// interval disables the gate.
func NewGate(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{limiter: rate.NewLimiter(limit, 1)}
}

// Acquire blocks until the next call may proceed or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
