// Package id provides centralized ID generation for the desktop engine.
//
// Two families of identifiers are used:
//   - ULIDs with type prefixes for long-lived identities (sessions,
//     realtime connections, app instances). Prefixes keep logs readable.
//   - UUIDs for short-lived correlation tokens (prompts, upload items)
//     that are echoed back by the browser.
//
// Operation IDs are not generated here: they are a per-session monotonic
// counter owned by the operation tracker.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a logged-in desktop session
type SessionID string

// SocketID identifies a realtime connection. It doubles as the
// originator id sent with every mutating filesystem call.
type SocketID string

// InstanceID identifies an app instance that may watch items
type InstanceID string

// PromptID correlates a prompt with the browser's answer
type PromptID string

const (
	SessionPrefix  = "sess"
	SocketPrefix   = "sock"
	InstancePrefix = "inst"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
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

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewSocketID generates a new realtime connection ID
func NewSocketID() SocketID {
	return SocketID(Default().GenerateWithPrefix(SocketPrefix))
}

// NewInstanceID generates a new app instance ID
func NewInstanceID() InstanceID {
	return InstanceID(Default().GenerateWithPrefix(InstancePrefix))
}

// NewTraceID generates a request trace or span ID
func NewTraceID() string {
	return Default().Generate().String()
}

// NewPromptID generates a prompt correlation token
func NewPromptID() PromptID {
	return PromptID(uuid.NewString())
}

// NewUploadItemID generates an upload item correlation token
func NewUploadItemID() string {
	return uuid.NewString()
}

func (id SessionID) String() string  { return string(id) }
func (id SocketID) String() string   { return string(id) }
func (id InstanceID) String() string { return string(id) }
func (id PromptID) String() string   { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
