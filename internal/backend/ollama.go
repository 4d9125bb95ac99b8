package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/llmcore/internal/httputil"
	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

const (
	// OllamaProviderName labels errors and log records of the local transport.
	OllamaProviderName = "ollama"

	chatPath = "/api/chat"
	tagsPath = "/api/tags"
)

var errMissingMessage = errors.New(`reply has no "message" object`)

// OllamaTransport talks to an Ollama-compatible local chat endpoint.
type OllamaTransport struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaTransport creates a transport for endpoint (e.g. http://localhost:11434).
// A nil client uses an http.Client without a global timeout so that long
// streams are bounded only by their context.
func NewOllamaTransport(endpoint, model string, client *http.Client) *OllamaTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaTransport{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   client,
	}
}

// Name implements Transport.
func (t *OllamaTransport) Name() string {
	return OllamaProviderName
}

// Complete sends one non-streaming chat request.
func (t *OllamaTransport) Complete(ctx context.Context, req types.GenerationRequest) (string, error) {
	resp, err := t.post(ctx, &types.ChatRequest{
		Model:    t.model,
		Messages: req.Messages(),
		Stream:   false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := httputil.ReadLimited(resp.Body, httputil.MaxResponseBodyBytes)
	if err != nil {
		return "", llmerrors.NewTransportError(t.Name(), t.model, err)
	}

	var chatResp types.ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", llmerrors.NewMalformedResponseError(t.Name(), t.model, err)
	}
	if chatResp.Error != "" {
		return "", llmerrors.NewInternalError(t.Name(), t.model, chatResp.Error)
	}
	if !chatResp.HasMessage() {
		return "", llmerrors.NewMalformedResponseError(t.Name(), t.model, errMissingMessage)
	}

	return chatResp.Content(), nil
}

// Stream sends a streaming chat request with a single user message and hands
// each non-empty content chunk to onToken in arrival order.
func (t *OllamaTransport) Stream(ctx context.Context, prompt string, onToken generator.TokenFunc) error {
	resp, err := t.post(ctx, &types.ChatRequest{
		Model:    t.model,
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return err
	}

	stream := NewStreamReader(resp.Body, t.Name(), t.model)
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return llmerrors.NewTransportError(t.Name(), t.model, err)
		}

		chunk, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// A cancelled request surfaces as a read error; report the cause.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return llmerrors.NewTransportError(t.Name(), t.model, ctxErr)
			}
			return err
		}

		if content := chunk.Content(); content != "" {
			if err := onToken(content); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
}

// Ping lists installed models to check that the endpoint is reachable.
func (t *OllamaTransport) Ping(ctx context.Context) error {
	_, err := t.Models(ctx)
	return err
}

// Models returns the models installed on the endpoint.
func (t *OllamaTransport) Models(ctx context.Context) ([]types.ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+tagsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list types.ModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, llmerrors.NewMalformedResponseError(t.Name(), t.model, err)
	}
	return list.Models, nil
}

func (t *OllamaTransport) post(ctx context.Context, req *types.ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "application/x-ndjson")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	return t.do(httpReq)
}

// do executes the request and converts failures to *errors.LLMError. On
// success the caller owns the response body.
func (t *OllamaTransport) do(req *http.Request) (*http.Response, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, llmerrors.NewTransportError(t.Name(), t.model, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body := httputil.Truncate(resp.Body, httputil.MaxErrorBodyBytes)
		return nil, t.mapError(resp.StatusCode, body)
	}
	return resp, nil
}

// mapError converts an error response such as {"error":"model 'x' not found"}.
func (t *OllamaTransport) mapError(statusCode int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return llmerrors.FromStatus(t.Name(), t.model, statusCode, message)
}
