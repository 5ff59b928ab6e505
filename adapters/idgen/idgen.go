// Package idgen provides ID generation implementations.
package idgen

import (
	"crypto/rand"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/artpar/documind/ports"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// UUID generates random UUIDs (chat messages).
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// ULID generates lexically sortable IDs (usage events).
// IDs created in the same millisecond are monotonic.
type ULID struct {
	mu      sync.Mutex
	clock   ports.Clock
	entropy *ulid.MonotonicEntropy
}

// NewULID creates a ULID generator stamped by the given clock.
func NewULID(clock ports.Clock) *ULID {
	return &ULID{
		clock:   clock,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New generates the next ULID.
func (g *ULID) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.clock.Now()), g.entropy).String()
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*ULID)(nil)
	_ ports.IDGenerator = (*Sequential)(nil)
)
