// Package id provides identifier generation for the portal.
//
// Two kinds of identifiers are produced:
//   - Request IDs: prefixed ULIDs, sortable by time, used to correlate logs
//   - Launch tokens: 24 random bytes, base64url without padding, used as
//     the unguessable path segment of /play/<token>/
package id

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// RequestID identifies an API request
type RequestID string

// LaunchToken identifies a pending play session
type LaunchToken string

// ============================================================================
// Prefixes and Sizes
// ============================================================================

const (
	RequestPrefix = "req"

	// TokenBytes is the amount of entropy in a launch token.
	TokenBytes = 24
)

// TokenLength is the encoded length of a launch token.
var TokenLength = base64.RawURLEncoding.EncodedLen(TokenBytes)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs and launch tokens
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
		now:     time.Now,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
		now:     time.Now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// Token reads TokenBytes of entropy and encodes them URL-safe.
func (g *Generator) Token() (LaunchToken, error) {
	buf := make([]byte, TokenBytes)

	g.entropyMu.Lock()
	_, err := io.ReadFull(g.entropy, buf)
	g.entropyMu.Unlock()

	if err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return LaunchToken(base64.RawURLEncoding.EncodeToString(buf)), nil
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id RequestID) String() string   { return string(id) }
func (id LaunchToken) String() string { return string(id) }

// ============================================================================
// Validation
// ============================================================================

// IsLaunchToken reports whether s has the shape of a launch token. It says
// nothing about whether the token was ever issued.
func IsLaunchToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}
