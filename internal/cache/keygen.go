package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/blueberrycongee/llmcore/pkg/types"
)

// DefaultKeyGenerator implements KeyGenerator using SHA-256 hashing.
type DefaultKeyGenerator struct {
	// Prefix is prepended to all generated keys.
	Prefix string
}

// NewKeyGenerator creates a new DefaultKeyGenerator with optional prefix.
func NewKeyGenerator(prefix string) *DefaultKeyGenerator {
	return &DefaultKeyGenerator{Prefix: prefix}
}

// Generate hashes the pair (prompt, systemPrompt). Each field is written as
// its byte length followed by its raw bytes, so distinct pairs never share
// an encoding, invalid UTF-8 included. The key format is [prefix:]sha256hex.
func (g *DefaultKeyGenerator) Generate(req types.GenerationRequest) string {
	h := sha256.New()
	writeField(h, req.Prompt)
	writeField(h, req.SystemPrompt)
	hashHex := hex.EncodeToString(h.Sum(nil))

	if g.Prefix == "" {
		return hashHex
	}
	return g.Prefix + ":" + hashHex
}

func writeField(h hash.Hash, s string) {
	var size [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(size[:], uint64(len(s)))
	h.Write(size[:n])
	h.Write([]byte(s))
}
