// Package uuid provides record identifiers backed by google/uuid.
package uuid

import (
	"github.com/google/uuid"
)

// Generator creates UUID v7 strings. The time-ordered prefix keeps freshly
// inserted rows clustered in B-tree indexes.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string, falling back to a random UUIDv4 when the
// v7 clock sequence cannot be read.
func (Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
