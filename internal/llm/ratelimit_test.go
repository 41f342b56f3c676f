package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimited_Burst(t *testing.T) {
	mock := &MockAssistant{CallFn: Reply("ok")}
	rl := newRateLimited(mock, 600)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 60; i++ {
		_, err := rl.Call(ctx, "p")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 2*time.Second, "burst should pass without waiting")
	assert.Equal(t, 60, mock.CallCount())
}

func TestRateLimited_Waits(t *testing.T) {
	mock := &MockAssistant{CallFn: Reply("ok")}
	rl := newRateLimited(mock, 600) // one token per 100ms, burst 60
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		_, err := rl.Call(ctx, "p")
		require.NoError(t, err)
	}

	start := time.Now()
	_, err := rl.Call(ctx, "p")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimited_ContextCancelled(t *testing.T) {
	mock := &MockAssistant{CallFn: Reply("ok")}
	rl := newRateLimited(mock, 1)

	_, err := rl.Call(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = rl.Call(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestNewRateLimited_Defaults(t *testing.T) {
	rl := newRateLimited(&MockAssistant{}, 0)
	assert.Equal(t, defaultRequestsPerMinute/10, rl.limiter.Burst())

	rl = newRateLimited(&MockAssistant{}, 3)
	assert.Equal(t, 1, rl.limiter.Burst())
}
