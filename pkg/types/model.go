package types

import (
	"fmt"
	"strings"
)

const MaxModelNameLength = 256

// ModelType selects the backend transport.
type ModelType string

const (
	ModelTypeLocal  ModelType = "local"  // Local chat endpoint (Ollama-compatible)
	ModelTypeHosted ModelType = "hosted" // Hosted API; no transport is implemented
)

// ParseModelType normalizes a configured model type.
// "openai" is accepted as an alias of hosted.
func ParseModelType(s string) (ModelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModelTypeLocal):
		return ModelTypeLocal, nil
	case string(ModelTypeHosted), "openai":
		return ModelTypeHosted, nil
	default:
		return "", fmt.Errorf("unknown model type %q", s)
	}
}

// ValidateModelName checks that a model name is within acceptable bounds.
func ValidateModelName(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model name is required")
	}
	if len(model) > MaxModelNameLength {
		return fmt.Errorf("model is too long (max %d characters)", MaxModelNameLength)
	}
	return nil
}
