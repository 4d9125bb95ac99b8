package api //nolint:revive // package name is intentional

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes the error payload.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// errorDetail builds the payload and status for err.
func errorDetail(err error) (int, ErrorDetail) {
	var llmErr *llmerrors.LLMError
	var modeErr *llmerrors.UnsupportedModeError
	switch {
	case errors.As(err, &llmErr):
		return llmErr.HTTPStatusCode(), ErrorDetail{Message: llmErr.Message, Type: llmErr.Type}
	case errors.As(err, &modeErr):
		return http.StatusNotImplemented, ErrorDetail{Message: modeErr.Error(), Type: "unsupported_mode"}
	default:
		return llmerrors.StatusCode(err), ErrorDetail{Message: err.Error(), Type: llmerrors.Kind(err)}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, detail := errorDetail(err)
	writeJSON(w, status, ErrorResponse{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
