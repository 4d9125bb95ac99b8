// Package monitor implements the outermost decorator of the generation chain.
// It times every call and emits exactly one structured record per call:
// "llm_request" on success or "llm_error" on failure. It never alters the
// value or error returned by the wrapped generator.
package monitor

import (
	"context"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/llmcore/internal/metrics"
	"github.com/blueberrycongee/llmcore/internal/observability"
	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

// Record types.
const (
	RecordRequest = "llm_request"
	RecordError   = "llm_error"
)

// Monitored decorates a Generator with logging, tracing and metrics.
type Monitored struct {
	next      generator.Generator
	modelType types.ModelType
	model     string

	logger  *observability.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ generator.Generator = (*Monitored)(nil)

// Option configures a Monitored decorator.
type Option func(*Monitored)

// WithLogger sets the sink for llm_request and llm_error records.
func WithLogger(l *observability.Logger) Option {
	return func(m *Monitored) {
		m.logger = l
	}
}

// WithTracer sets the tracer used for per-call spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Monitored) {
		m.tracer = t
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitored) {
		m.metrics = mt
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitored) {
		m.now = now
	}
}

// New wraps next. modelType and model are reported on every record.
func New(next generator.Generator, modelType types.ModelType, model string, opts ...Option) *Monitored {
	m := &Monitored{
		next:      next,
		modelType: modelType,
		model:     model,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = observability.NewDiscardLogger()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(observability.TracerName)
	}
	return m
}

// GenerateResponse delegates to the wrapped generator and records the outcome.
func (m *Monitored) GenerateResponse(ctx context.Context, req types.GenerationRequest) (string, error) {
	ctx, requestID := observability.GetOrCreateRequestID(ctx)
	ctx, span := observability.StartLLMSpan(ctx, m.tracer, "llm.generate", m.spanAttributes(false))
	defer span.End()

	start := m.now()
	result, err := m.next.GenerateResponse(ctx, req)
	elapsed := m.now().Sub(start)

	if err != nil {
		observability.RecordError(span, err)
		m.recordFailure(metrics.OperationGenerate, elapsed, err)
		m.logError(ctx, requestID, err, req.Prompt, req.SystemPrompt, false)
		return result, err
	}

	promptLength := utf8.RuneCountInString(req.Prompt)
	responseLength := utf8.RuneCountInString(result)
	observability.RecordLLMResponse(span, promptLength, responseLength)
	m.metrics.RecordRequest(metrics.OperationGenerate, string(m.modelType), m.model, metrics.StatusSuccess, elapsed)
	m.logRequest(ctx, requestID, elapsed, promptLength, responseLength, false)
	return result, nil
}

// StreamResponse forwards every token unchanged and records the outcome once
// the stream ends. response_length is the total length of delivered tokens.
func (m *Monitored) StreamResponse(ctx context.Context, prompt string, onToken generator.TokenFunc) error {
	ctx, requestID := observability.GetOrCreateRequestID(ctx)
	ctx, span := observability.StartLLMSpan(ctx, m.tracer, "llm.stream", m.spanAttributes(true))
	defer span.End()

	var responseLength, tokens int
	counted := onToken
	if onToken != nil {
		counted = func(token string) error {
			responseLength += utf8.RuneCountInString(token)
			tokens++
			return onToken(token)
		}
	}

	start := m.now()
	err := m.next.StreamResponse(ctx, prompt, counted)
	elapsed := m.now().Sub(start)
	m.metrics.RecordStreamTokens(string(m.modelType), m.model, tokens)

	if err != nil {
		observability.RecordError(span, err)
		m.recordFailure(metrics.OperationStream, elapsed, err)
		m.logError(ctx, requestID, err, prompt, "", true)
		return err
	}

	promptLength := utf8.RuneCountInString(prompt)
	observability.RecordLLMResponse(span, promptLength, responseLength)
	m.metrics.RecordRequest(metrics.OperationStream, string(m.modelType), m.model, metrics.StatusSuccess, elapsed)
	m.logRequest(ctx, requestID, elapsed, promptLength, responseLength, true)
	return nil
}

func (m *Monitored) spanAttributes(stream bool) observability.LLMSpanAttributes {
	return observability.LLMSpanAttributes{
		ModelType: string(m.modelType),
		Model:     m.model,
		Stream:    stream,
	}
}

func (m *Monitored) recordFailure(operation string, elapsed time.Duration, err error) {
	m.metrics.RecordRequest(operation, string(m.modelType), m.model, metrics.StatusError, elapsed)
	m.metrics.RecordError(operation, llmerrors.Kind(err))
}

func (m *Monitored) logRequest(ctx context.Context, requestID string, elapsed time.Duration, promptLength, responseLength int, stream bool) {
	m.logger.InfoContext(ctx, RecordRequest,
		"type", RecordRequest,
		"duration_ms", elapsed.Milliseconds(),
		"model_type", string(m.modelType),
		"model_name", m.model,
		"prompt_length", promptLength,
		"response_length", responseLength,
		"stream", stream,
		"request_id", requestID,
	)
}

// logError keeps prompt and system_prompt verbatim; only the error text is
// redacted since it may embed endpoint credentials.
func (m *Monitored) logError(ctx context.Context, requestID string, err error, prompt, systemPrompt string, stream bool) {
	m.logger.ErrorContext(ctx, RecordError,
		"type", RecordError,
		"error", m.logger.Redact(err.Error()),
		"error_type", llmerrors.Kind(err),
		"prompt", prompt,
		"system_prompt", systemPrompt,
		"stream", stream,
		"request_id", requestID,
	)
}
