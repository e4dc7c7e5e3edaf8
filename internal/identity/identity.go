// Package identity provides the opaque 128-bit keys used to reference
// desktop snapshots from recorded positions.
package identity

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// ID is a globally unique 128-bit identifier with a canonical string form.
type ID struct {
	u uuid.UUID
}

// Nil is the zero ID.
var Nil ID

// Generator produces fresh IDs. Stores accept a Generator so that tests can
// supply deterministic identifiers.
type Generator func() ID

// New returns a random (version 4) ID.
func New() ID {
	return ID{u: uuid.New()}
}

// Parse converts the canonical string form (with or without braces) to an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("identity: invalid id %q: %w", s, err)
	}
	return ID{u: u}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the canonical upper-case form xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func (id ID) String() string {
	return upper(id.u.String())
}

// IsZero reports whether id is the Nil ID.
func (id ID) IsZero() bool {
	return id.u == uuid.Nil
}

// Compare orders IDs by their byte representation, returning -1, 0 or +1.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id.u[:], other.u[:])
}

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool {
	return id.Compare(other) < 0
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Sequence returns a Generator that yields IDs derived from an incrementing
// counter. It is meant for tests and reproducible fixtures.
func Sequence(start uint64) Generator {
	next := start
	return func() ID {
		var u uuid.UUID
		for i := 0; i < 8; i++ {
			u[15-i] = byte(next >> (8 * i))
		}
		next++
		return ID{u: u}
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
