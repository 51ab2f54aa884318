package testfixtures

import (
	"testing"

	"github.com/google/uuid"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("entity")

	first := gen.Next()
	second := gen.Next()

	if first != "entity-1" || second != "entity-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset()
	if next := gen.Next(); next != "entity-1" {
		t.Fatalf("expected entity-1 after reset, got %q", next)
	}
}

func TestUUIDGeneratorIsRepeatable(t *testing.T) {
	a := NewUUIDGenerator("users")
	b := NewUUIDGenerator("users")

	first := a.Next()
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a UUID, got %q", first)
	}
	if first != b.Next() {
		t.Fatalf("expected identical sequences for identical seeds")
	}
	if first == a.Next() {
		t.Fatalf("expected distinct ids within a sequence")
	}
}
