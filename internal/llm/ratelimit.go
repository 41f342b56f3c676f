package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const defaultRequestsPerMinute = 50

// rateLimited spaces calls to the wrapped assistant.
type rateLimited struct {
	next    Assistant
	limiter *rate.Limiter
}

// newRateLimited allows requestsPerMinute calls per minute, with bursts of
// up to a tenth of that.
func newRateLimited(next Assistant, requestsPerMinute int) *rateLimited {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst),
	}
}

func (r *rateLimited) Call(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter canceled: %w", err)
	}
	return r.next.Call(ctx, prompt)
}
