// Package llm provides abstractions for chat-completions backends.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewSystemMessage("Write a short reply."),
//	    types.NewUserMessage("hello world"),
//	})
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/entrhq/hoverpilot/pkg/types"
)

// Provider defines the interface for chat-completions backends.
type Provider interface {
	// Complete sends messages and returns the assistant's full reply.
	//
	// Failures reported by the backend are returned as *APIError so callers
	// can tell rate limiting apart from other errors.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}

// APIError is a non-success HTTP response from a backend.
type APIError struct {
	StatusCode int
	Body       string

	// RetryAfter is the backend's requested delay, zero when absent.
	RetryAfter time.Duration
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the backend rejected the call for rate limiting.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err wraps a rate-limit APIError.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RateLimited()
}
