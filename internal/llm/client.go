package llm

import (
	"context"
	"log/slog"
	"time"
)

// Assistant answers a single free-form prompt.
type Assistant interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// Config holds the settings for creating an Assistant.
type Config struct {
	Logger      *slog.Logger
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	System      string
	Temperature float64
	Timeout     time.Duration
	MaxTokens   int
	RateLimit   int // requests per minute
}

const defaultSystemPrompt = "You are a careful grocery shopping assistant. " +
	"Respond with ONLY the JSON requested, with no commentary before or after it."
