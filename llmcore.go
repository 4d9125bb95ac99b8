// Package llmcore provides a uniform generation interface to a large language
// model backend, with response caching and structured observability.
//
// The chain is assembled explicitly by composition:
//
//	monitor -> cache -> generation service -> backend client -> model
//
// Basic usage:
//
//	cfg, err := llmcore.LoadConfig(llmcore.LoadOptions{File: "config.yaml", EnvFile: ".env"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := llmcore.New(cfg, llmcore.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	text, err := client.GenerateResponse(ctx, llmcore.GenerationRequest{Prompt: "Hello"})
package llmcore

import (
	"github.com/blueberrycongee/llmcore/internal/backend"
	"github.com/blueberrycongee/llmcore/internal/cache"
	"github.com/blueberrycongee/llmcore/internal/config"
	"github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

// Version is the current version of llmcore.
const Version = "0.1.0"

// Re-export core types for convenience.
type (
	// GenerationRequest is a single generation call.
	GenerationRequest = types.GenerationRequest

	// ModelType selects the backend transport.
	ModelType = types.ModelType

	// Generator is implemented by every layer of the chain and by Client.
	Generator = generator.Generator

	// TokenFunc receives streamed tokens.
	TokenFunc = generator.TokenFunc

	// Config is the configuration snapshot.
	Config = config.Config

	// LoadOptions controls LoadConfig.
	LoadOptions = config.LoadOptions

	// Store keeps cached responses.
	Store = cache.Store

	// CacheStats holds cache statistics.
	CacheStats = cache.CacheStats

	// Transport performs backend calls.
	Transport = backend.Transport

	// LLMError is a backend transport failure.
	LLMError = errors.LLMError

	// UnsupportedModeError is returned for modes without a transport.
	UnsupportedModeError = errors.UnsupportedModeError
)

// Model types.
const (
	ModelTypeLocal  = types.ModelTypeLocal
	ModelTypeHosted = types.ModelTypeHosted
)

// ErrUnsupportedMode matches every UnsupportedModeError via errors.Is.
var ErrUnsupportedMode = errors.ErrUnsupportedMode

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// LoadConfig reads the configuration snapshot from file, .env and environment.
func LoadConfig(opts LoadOptions) (*Config, error) {
	return config.Load(opts)
}

// NewMemoryStore returns the default in-process cache store.
var NewMemoryStore = cache.NewMemoryStore
