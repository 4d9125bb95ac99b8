package backend

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/goccy/go-json"

	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

const (
	initialLineBuffer = 4096
	maxLineBuffer     = 1 << 20
)

// StreamReader reads newline-delimited JSON chat chunks from a streaming
// response body.
//
// Example:
//
//	stream := NewStreamReader(resp.Body, "ollama", "llama2")
//	defer stream.Close()
//
//	for {
//	    chunk, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Content())
//	}
type StreamReader struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	provider string
	model    string

	done      bool
	closeOnce sync.Once
	closeErr  error
}

// NewStreamReader creates a StreamReader over body. provider and model are
// only used to label errors.
func NewStreamReader(body io.ReadCloser, provider, model string) *StreamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, initialLineBuffer), maxLineBuffer)

	return &StreamReader{
		body:     body,
		scanner:  scanner,
		provider: provider,
		model:    model,
	}
}

// Recv returns the next chunk. It returns io.EOF after the chunk flagged done,
// or when the body ends. An in-band error line is returned as *errors.LLMError.
// Recv must not be called concurrently.
func (s *StreamReader) Recv() (*types.ChatResponse, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk types.ChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.done = true
			return nil, llmerrors.NewMalformedResponseError(s.provider, s.model, err)
		}
		if chunk.Error != "" {
			s.done = true
			return nil, llmerrors.NewInternalError(s.provider, s.model, chunk.Error)
		}
		if chunk.Done {
			s.done = true
		} else if !chunk.HasMessage() {
			s.done = true
			return nil, llmerrors.NewMalformedResponseError(s.provider, s.model, errMissingMessage)
		}
		return &chunk, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, llmerrors.NewTransportError(s.provider, s.model, err)
	}
	return nil, io.EOF
}

// Close releases the body. It is safe to call more than once and from
// another goroutine than the one calling Recv.
func (s *StreamReader) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
