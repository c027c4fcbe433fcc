package llm

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned when no completion provider is configured.
var ErrProviderUnavailable = errors.New("completion provider unavailable")

// DeltaFunc receives one text delta from a streaming completion. Returning an
// error aborts the stream and the error is returned from Stream.
type DeltaFunc func(delta string) error

// Provider is a chat completion backend.
type Provider interface {
	// Name is the provider's short name, e.g. "openai".
	Name() string

	// Complete performs a non-streaming completion.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream performs a streaming completion, calling onDelta for every
	// non-empty delta in arrival order.
	Stream(ctx context.Context, req *CompletionRequest, onDelta DeltaFunc) (*CompletionResponse, error)
}
