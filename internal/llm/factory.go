package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/grocer/internal/common"
)

// NewAssistant creates a rate-limited assistant for the configured provider.
func NewAssistant(cfg Config) (Assistant, error) {
	var (
		assistant Assistant
		err       error
	)
	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "":
		assistant, err = newAnthropicClient(cfg)
	case "openai":
		assistant, err = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMissingConfig, err)
	}

	return newRateLimited(assistant, cfg.RateLimit), nil
}
