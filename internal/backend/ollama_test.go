package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

func decodeChatRequest(t *testing.T, r *http.Request) types.ChatRequest {
	t.Helper()
	var req types.ChatRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func writeNDJSON(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		fmt.Fprintln(w, line)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func collectTokens(tokens *[]string) func(string) error {
	return func(token string) error {
		*tokens = append(*tokens, token)
		return nil
	}
}

func TestOllamaTransport_Complete(t *testing.T) {
	var got types.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got = decodeChatRequest(t, r)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"llama2","message":{"role":"assistant","content":"Hi there"},"done":true}`)
	}))
	defer server.Close()

	transport := NewOllamaTransport(server.URL+"/", "llama2", server.Client())
	text, err := transport.Complete(context.Background(), types.GenerationRequest{
		Prompt:       "Hello",
		SystemPrompt: "Be brief",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
	assert.Equal(t, "llama2", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, []types.ChatMessage{
		{Role: types.RoleSystem, Content: "Be brief"},
		{Role: types.RoleUser, Content: "Hello"},
	}, got.Messages)
}

func TestOllamaTransport_Complete_NoSystemPrompt(t *testing.T) {
	var got types.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeChatRequest(t, r)
		io.WriteString(w, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
	}))
	defer server.Close()

	_, err := NewOllamaTransport(server.URL, "llama2", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, types.RoleUser, got.Messages[0].Role)
}

func TestOllamaTransport_Complete_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model 'llama9' not found"}`)
	}))
	defer server.Close()

	_, err := NewOllamaTransport(server.URL, "llama9", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	var llmErr *llmerrors.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llmerrors.TypeNotFound, llmErr.Type)
	assert.Equal(t, "model 'llama9' not found", llmErr.Message)
	assert.Equal(t, OllamaProviderName, llmErr.Provider)
	assert.Equal(t, "llama9", llmErr.Model)
}

func TestOllamaTransport_Complete_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOllamaTransport(server.URL, "llama2", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	var llmErr *llmerrors.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llmerrors.TypeInternalError, llmErr.Type)
	assert.Equal(t, "upstream exploded", llmErr.Message)
}

func TestOllamaTransport_Complete_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"message":`)
	}))
	defer server.Close()

	_, err := NewOllamaTransport(server.URL, "llama2", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	var llmErr *llmerrors.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llmerrors.TypeMalformedResponse, llmErr.Type)
}

func TestOllamaTransport_Complete_MissingMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "null", body: `null`},
		{name: "done only", body: `{"done":true}`},
		{name: "generate endpoint shape", body: `{"response":"hi","done":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			text, err := NewOllamaTransport(server.URL, "llama2", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

			assert.Empty(t, text)
			var llmErr *llmerrors.LLMError
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, llmerrors.TypeMalformedResponse, llmErr.Type)
		})
	}
}

func TestOllamaTransport_Complete_EmptyContentIsValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer server.Close()

	text, err := NewOllamaTransport(server.URL, "llama2", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestOllamaTransport_Complete_InBandError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"error":"out of memory"}`)
	}))
	defer server.Close()

	_, err := NewOllamaTransport(server.URL, "llama2", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestOllamaTransport_Complete_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := NewOllamaTransport(endpoint, "llama2", nil).Complete(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	require.Error(t, err)
	assert.True(t, llmerrors.IsTransport(err))
	assert.Equal(t, llmerrors.TypeTransport, llmerrors.Kind(err))
}

func TestOllamaTransport_Stream(t *testing.T) {
	var got types.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeChatRequest(t, r)
		writeNDJSON(w,
			`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
			``,
			`{"message":{"role":"assistant","content":""},"done":false}`,
			`{"message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
			`{"message":{"role":"assistant","content":"ignored"},"done":false}`,
		)
	}))
	defer server.Close()

	var tokens []string
	err := NewOllamaTransport(server.URL, "llama2", nil).Stream(context.Background(), "Hello", collectTokens(&tokens))

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, tokens)
	assert.True(t, got.Stream)
	assert.Equal(t, []types.ChatMessage{{Role: types.RoleUser, Content: "Hello"}}, got.Messages)
}

func TestOllamaTransport_Stream_EOFWithoutDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeNDJSON(w, `{"message":{"content":"partial"},"done":false}`)
	}))
	defer server.Close()

	var tokens []string
	err := NewOllamaTransport(server.URL, "llama2", nil).Stream(context.Background(), "Hello", collectTokens(&tokens))

	require.NoError(t, err)
	assert.Equal(t, []string{"partial"}, tokens)
}

func TestOllamaTransport_Stream_InBandError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeNDJSON(w,
			`{"message":{"content":"a"},"done":false}`,
			`{"error":"model crashed"}`,
		)
	}))
	defer server.Close()

	var tokens []string
	err := NewOllamaTransport(server.URL, "llama2", nil).Stream(context.Background(), "Hello", collectTokens(&tokens))

	require.Error(t, err)
	assert.True(t, llmerrors.IsTransport(err))
	assert.Contains(t, err.Error(), "model crashed")
	assert.Equal(t, []string{"a"}, tokens)
}

func TestOllamaTransport_Stream_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":"loading model"}`)
	}))
	defer server.Close()

	called := false
	err := NewOllamaTransport(server.URL, "llama2", nil).Stream(context.Background(), "Hello", func(string) error {
		called = true
		return nil
	})

	assert.Equal(t, llmerrors.TypeServiceUnavailable, llmerrors.Kind(err))
	assert.False(t, called)
}

func TestOllamaTransport_Stream_CallbackStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeNDJSON(w,
			`{"message":{"content":"one"},"done":false}`,
			`{"message":{"content":"two"},"done":false}`,
			`{"message":{"content":""},"done":true}`,
		)
	}))
	defer server.Close()

	errStop := errors.New("stop")
	var tokens []string
	err := NewOllamaTransport(server.URL, "llama2", nil).Stream(context.Background(), "Hello", func(token string) error {
		tokens = append(tokens, token)
		return errStop
	})

	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, []string{"one"}, tokens)
}

func TestOllamaTransport_Stream_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeNDJSON(w, `{"message":{"content":"first"},"done":false}`)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tokens []string
	err := NewOllamaTransport(server.URL, "llama2", nil).Stream(ctx, "Hello", func(token string) error {
		tokens = append(tokens, token)
		cancel()
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, tokens)
}

func TestOllamaTransport_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		io.WriteString(w, `{"models":[{"name":"llama2:latest","model":"llama2:latest","size":3825819519}]}`)
	}))
	defer server.Close()

	transport := NewOllamaTransport(server.URL, "llama2", nil)
	require.NoError(t, transport.Ping(context.Background()))

	models, err := transport.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama2:latest", models[0].Name)
}

func TestOllamaTransport_Ping_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewOllamaTransport(server.URL, "llama2", nil).Ping(context.Background())

	var llmErr *llmerrors.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), llmErr.Message)
}

func TestStreamReader(t *testing.T) {
	body := io.NopCloser(strings.NewReader("\n{\"message\":{\"content\":\"a\"}}\n{\"done\":true}\n{\"message\":{\"content\":\"b\"}}\n"))
	stream := NewStreamReader(body, "ollama", "llama2")

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "a", chunk.Content())

	chunk, err = stream.Recv()
	require.NoError(t, err)
	assert.True(t, chunk.Done)

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
}

func TestStreamReader_ChunkWithoutMessage(t *testing.T) {
	body := io.NopCloser(strings.NewReader("{\"message\":{\"content\":\"a\"}}\n{\"response\":\"b\",\"done\":false}\n"))
	stream := NewStreamReader(body, "ollama", "llama2")

	_, err := stream.Recv()
	require.NoError(t, err)

	_, err = stream.Recv()
	assert.Equal(t, llmerrors.TypeMalformedResponse, llmerrors.Kind(err))

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStreamReader_Malformed(t *testing.T) {
	stream := NewStreamReader(io.NopCloser(strings.NewReader("not json\n")), "ollama", "llama2")

	_, err := stream.Recv()
	assert.Equal(t, llmerrors.TypeMalformedResponse, llmerrors.Kind(err))

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStreamReader_ReadError(t *testing.T) {
	stream := NewStreamReader(io.NopCloser(failingReader{}), "ollama", "llama2")

	_, err := stream.Recv()
	assert.True(t, llmerrors.IsTransport(err))
	assert.Contains(t, err.Error(), "connection reset")
}
