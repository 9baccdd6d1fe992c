package ai

import (
	"context"
	"errors"
)

// ErrRateLimited is returned by generators when the provider asks the caller
// to slow down. It is transient.
var ErrRateLimited = errors.New("rate limited by model provider")

// Generator sends a single prompt to a hosted model and returns its text.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
