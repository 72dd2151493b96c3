// Package id provides ULID generation for request and event
// identifiers. ULIDs sort lexicographically by creation time, which
// keeps log correlation cheap.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies one API request through logs and trace spans.
type RequestID string

func (id RequestID) String() string { return string(id) }

// Generator generates ULIDs from a guarded entropy source.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = &Generator{entropy: rand.Reader}
	})
	return defaultGenerator
}

// Generate creates a new ULID string.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// NewRequestID generates a prefixed request identifier.
func NewRequestID() RequestID {
	return RequestID("req_" + Default().Generate())
}

// IsValid reports whether s parses as a bare ULID.
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}
