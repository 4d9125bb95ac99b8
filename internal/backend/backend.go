// Package backend is the lowest layer of the generation chain. A Client owns
// exactly one Transport, selected from the configured model type, and turns
// every failure into a typed error after logging one diagnostic record.
// The client never retries.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blueberrycongee/llmcore/internal/config"
	"github.com/blueberrycongee/llmcore/internal/observability"
	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

// Transport performs the actual model calls.
type Transport interface {
	Name() string
	Complete(ctx context.Context, req types.GenerationRequest) (string, error)
	Stream(ctx context.Context, prompt string, onToken generator.TokenFunc) error
	Ping(ctx context.Context) error
}

// Client is the backend client.
type Client struct {
	transport Transport
	modelType types.ModelType
	model     string
	timeout   time.Duration
	logger    *observability.Logger

	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used by the local transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger for diagnostic records.
func WithLogger(l *observability.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithTransport replaces the transport selected from the model type.
func WithTransport(t Transport) Option {
	return func(cl *Client) {
		cl.transport = t
	}
}

// New creates a Client for the model described by model. timeout bounds each
// Complete call; zero disables the bound.
func New(model config.ModelConfig, backendCfg config.BackendConfig, opts ...Option) (*Client, error) {
	c := &Client{
		modelType: model.Type,
		model:     model.Name,
		timeout:   backendCfg.Timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = observability.NewDiscardLogger()
	}

	if c.transport == nil {
		switch model.Type {
		case types.ModelTypeLocal:
			c.transport = NewOllamaTransport(model.Endpoint, model.Name, c.httpClient)
		case types.ModelTypeHosted:
			c.transport = HostedTransport{}
		default:
			return nil, fmt.Errorf("backend: unknown model type %q", model.Type)
		}
	}

	c.logger = c.logger.WithFields("component", "backend", "transport", c.transport.Name())
	return c, nil
}

// ModelType returns the configured model type.
func (c *Client) ModelType() types.ModelType {
	return c.modelType
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete performs one non-streaming call.
func (c *Client) Complete(ctx context.Context, req types.GenerationRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.transport.Complete(ctx, req)
	if err != nil {
		c.logFailure(ctx, "complete", start, err)
		return "", err
	}
	return text, nil
}

// Stream performs one streaming call. An error returned by onToken stops the
// stream and is returned as is, without a diagnostic record.
func (c *Client) Stream(ctx context.Context, prompt string, onToken generator.TokenFunc) error {
	stopped := false
	wrapped := func(token string) error {
		if err := onToken(token); err != nil {
			stopped = true
			return err
		}
		return nil
	}

	start := time.Now()
	err := c.transport.Stream(ctx, prompt, wrapped)
	if err != nil && !stopped {
		c.logFailure(ctx, "stream", start, err)
	}
	return err
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.transport.Ping(ctx)
}

func (c *Client) logFailure(ctx context.Context, operation string, start time.Time, err error) {
	c.logger.WithRequestID(ctx).RedactedWarn("backend call failed",
		"operation", operation,
		"model", c.model,
		"error_type", llmerrors.Kind(err),
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
