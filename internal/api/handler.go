// Package api exposes the generation chain over HTTP.
package api //nolint:revive // package name is intentional

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/llmcore/internal/httputil"
	"github.com/blueberrycongee/llmcore/internal/observability"
	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

// Pinger checks backend reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// GenerateResponse is the reply of POST /v1/generate.
type GenerateResponse struct {
	Response string `json:"response"`
}

// StreamRequest is the body of POST /v1/stream.
type StreamRequest struct {
	Prompt string `json:"prompt"`
}

// StreamEvent is one NDJSON line of a POST /v1/stream reply.
type StreamEvent struct {
	Token string       `json:"token,omitempty"`
	Done  bool         `json:"done,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// Handler serves the generation endpoints.
type Handler struct {
	gen         generator.Generator
	pinger      Pinger
	logger      *observability.Logger
	maxBodySize int64
}

// NewHandler creates a new API handler. pinger may be nil, in which case
// readiness always succeeds.
func NewHandler(gen generator.Generator, pinger Pinger, logger *observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NewDiscardLogger()
	}
	return &Handler{
		gen:         gen,
		pinger:      pinger,
		logger:      logger,
		maxBodySize: DefaultMaxBodySize,
	}
}

// Generate handles POST /v1/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, llmerrors.NewInvalidRequestError("", "", "prompt is required"))
		return
	}

	text, err := h.gen.GenerateResponse(r.Context(), types.GenerationRequest{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Response: text})
}

// Stream handles POST /v1/stream. Tokens are written as NDJSON lines and
// flushed one by one; the reply ends with {"done":true} or an error line.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, llmerrors.NewInvalidRequestError("", "", "prompt is required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, llmerrors.NewInternalError("", "", "streaming not supported"))
		return
	}

	enc := json.NewEncoder(w)
	started := false
	err := h.gen.StreamResponse(r.Context(), req.Prompt, func(token string) error {
		if !started {
			w.Header().Set("Content-Type", contentTypeNDJSON)
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(StreamEvent{Token: token}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	if err != nil {
		if !started {
			writeError(w, err)
			return
		}
		_, detail := errorDetail(err)
		if encErr := enc.Encode(StreamEvent{Error: &detail}); encErr != nil {
			h.logger.WithRequestID(r.Context()).Debug("stream error not delivered", "error", encErr)
		}
		flusher.Flush()
		return
	}

	if !started {
		w.Header().Set("Content-Type", contentTypeNDJSON)
		w.WriteHeader(http.StatusOK)
	}
	_ = enc.Encode(StreamEvent{Done: true})
	flusher.Flush()
}

// HealthLive handles GET /health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady handles GET /health/ready by pinging the backend.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.WithRequestID(r.Context()).RedactedWarn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  h.logger.Redact(err.Error()),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(r *http.Request, v any) error {
	body, err := httputil.ReadLimited(r.Body, h.maxBodySize)
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		return llmerrors.NewInvalidRequestError("", "", "request body too large")
	}
	if err != nil {
		return llmerrors.NewInvalidRequestError("", "", "failed to read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return llmerrors.NewInvalidRequestError("", "", "invalid JSON body")
	}
	return nil
}
