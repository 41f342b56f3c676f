package llm

import (
	"fmt"
	"net/http"

	"github.com/Veraticus/grocer/internal/common"
)

// ProviderError is a non-200 reply from a model provider.
type ProviderError struct {
	Provider   string
	Body       string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap lets callers match throttling with errors.Is(err, common.ErrRateLimit).
func (e *ProviderError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return common.ErrRateLimit
	}
	return nil
}
