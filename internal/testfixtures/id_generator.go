package testfixtures

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var fixtureNamespace = uuid.MustParse("6f1c8a52-8a0e-4b8e-9a53-5d0f5a3c1e2b")

// IDGenerator produces deterministic identifiers for tests.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	uuids   bool
	counter uint64
}

// NewIDGenerator constructs a generator that yields identifiers with the given
// prefix. When prefix is empty, "id" is used.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// NewUUIDGenerator yields repeatable UUIDs derived from seed, for stores
// whose id columns are typed.
func NewUUIDGenerator(seed string) *IDGenerator {
	g := NewIDGenerator(seed)
	g.uuids = true
	return g
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	id := fmt.Sprintf("%s-%d", g.prefix, g.counter)
	if g.uuids {
		return uuid.NewSHA1(fixtureNamespace, []byte(id)).String()
	}
	return id
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset restarts the sequence.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
