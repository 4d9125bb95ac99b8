// Package generation implements the undecorated generation service. It owns
// mode selection and forwards to the backend; caching and monitoring are
// layered on top by decorators.
package generation

import (
	"context"
	"errors"

	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

// ErrNilTokenFunc is returned when StreamResponse is called without a callback.
var ErrNilTokenFunc = errors.New("generation: nil token callback")

// Backend is the subset of the backend client the service needs.
type Backend interface {
	Complete(ctx context.Context, req types.GenerationRequest) (string, error)
	Stream(ctx context.Context, prompt string, onToken generator.TokenFunc) error
}

// Service is the innermost generator.Generator.
type Service struct {
	backend   Backend
	modelType types.ModelType
}

var _ generator.Generator = (*Service)(nil)

// New creates a Service for modelType.
func New(modelType types.ModelType, backend Backend) *Service {
	return &Service{backend: backend, modelType: modelType}
}

// GenerateResponse returns the complete reply for req.
func (s *Service) GenerateResponse(ctx context.Context, req types.GenerationRequest) (string, error) {
	if s.modelType != types.ModelTypeLocal {
		return "", llmerrors.NewUnsupportedModeError(string(s.modelType), "generate")
	}
	return s.backend.Complete(ctx, req)
}

// StreamResponse streams the reply to prompt through onToken.
func (s *Service) StreamResponse(ctx context.Context, prompt string, onToken generator.TokenFunc) error {
	if onToken == nil {
		return ErrNilTokenFunc
	}
	if s.modelType != types.ModelTypeLocal {
		return llmerrors.NewUnsupportedModeError(string(s.modelType), "stream")
	}
	return s.backend.Stream(ctx, prompt, onToken)
}
