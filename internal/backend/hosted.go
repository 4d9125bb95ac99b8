package backend

import (
	"context"

	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

// HostedTransport stands in for a hosted API. Hosted calls are not
// implemented; every operation fails with *errors.UnsupportedModeError.
type HostedTransport struct{}

// Name implements Transport.
func (HostedTransport) Name() string {
	return string(types.ModelTypeHosted)
}

// Complete implements Transport.
func (HostedTransport) Complete(context.Context, types.GenerationRequest) (string, error) {
	return "", llmerrors.NewUnsupportedModeError(string(types.ModelTypeHosted), "complete")
}

// Stream implements Transport.
func (HostedTransport) Stream(context.Context, string, generator.TokenFunc) error {
	return llmerrors.NewUnsupportedModeError(string(types.ModelTypeHosted), "stream")
}

// Ping implements Transport.
func (HostedTransport) Ping(context.Context) error {
	return llmerrors.NewUnsupportedModeError(string(types.ModelTypeHosted), "ping")
}
