package api //nolint:revive // package name is intentional

const (
	// DefaultMaxBodySize is the default maximum request body size (10MB).
	// This accommodates large prompts while preventing abuse.
	DefaultMaxBodySize = 10 * 1024 * 1024

	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)
