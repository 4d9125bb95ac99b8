// Package generator defines the contract every layer of the generation chain
// implements. Decorators hold a Generator and implement Generator, so the
// chain is assembled by composition: backend service, then cache, then monitor.
package generator

import (
	"context"

	"github.com/blueberrycongee/llmcore/pkg/types"
)

// TokenFunc receives one streamed token. It is called synchronously and in
// arrival order. Returning a non-nil error stops the stream and the error is
// returned from StreamResponse.
type TokenFunc func(token string) error

// Generator is the inbound contract of the chain.
type Generator interface {
	// GenerateResponse produces the full text for one request.
	GenerateResponse(ctx context.Context, req types.GenerationRequest) (string, error)

	// StreamResponse streams the reply to prompt, one token per onToken call.
	StreamResponse(ctx context.Context, prompt string, onToken TokenFunc) error
}

// Funcs adapts plain functions to a Generator. A nil field fails with
// ErrNotImplemented.
type Funcs struct {
	Generate func(ctx context.Context, req types.GenerationRequest) (string, error)
	Stream   func(ctx context.Context, prompt string, onToken TokenFunc) error
}

// GenerateResponse implements Generator.
func (f Funcs) GenerateResponse(ctx context.Context, req types.GenerationRequest) (string, error) {
	if f.Generate == nil {
		return "", ErrNotImplemented
	}
	return f.Generate(ctx, req)
}

// StreamResponse implements Generator.
func (f Funcs) StreamResponse(ctx context.Context, prompt string, onToken TokenFunc) error {
	if f.Stream == nil {
		return ErrNotImplemented
	}
	return f.Stream(ctx, prompt, onToken)
}
