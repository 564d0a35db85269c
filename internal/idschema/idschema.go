// Package idschema implements the pluggable identifier policy a
// Collection uses to generate and validate record ids.
package idschema

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Schema generates and validates record identifiers. Implementations must
// be safe for concurrent use.
type Schema interface {
	// Generate returns a fresh id for a record about to be created. The
	// record's current fields are provided in case a scheme wants to
	// derive the id from content (the default UUID scheme ignores it).
	Generate(record map[string]any) string
	// Validate reports whether id could have been produced by this
	// scheme, or is otherwise an acceptable externally supplied id.
	Validate(id string) bool
}

// UUIDSchema generates canonical, lowercase UUIDv4 identifiers. This is
// the default schema used when a Collection is not configured otherwise.
type UUIDSchema struct{}

// Generate returns a new random UUIDv4.
func (UUIDSchema) Generate(record map[string]any) string {
	return uuid.New().String()
}

// Validate reports whether id parses as a UUID of any version.
func (UUIDSchema) Validate(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// MonotonicSchema generates zero-padded, strictly increasing decimal ids
// from an in-process counter. Useful for tests and deterministic demos;
// unsuitable for multi-process writers since the counter is local.
type MonotonicSchema struct {
	counter atomic.Uint64
	width   int
}

// NewMonotonicSchema returns a MonotonicSchema whose generated ids are
// zero-padded to width digits (0 disables padding).
func NewMonotonicSchema(width int) *MonotonicSchema {
	return &MonotonicSchema{width: width}
}

// Generate returns the next counter value as a decimal string.
func (m *MonotonicSchema) Generate(record map[string]any) string {
	n := m.counter.Add(1)
	if m.width <= 0 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%0*d", m.width, n)
}

// Validate reports whether id is a non-empty string of decimal digits.
func (m *MonotonicSchema) Validate(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
