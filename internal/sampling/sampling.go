// Package sampling provides the alignment identifier shared by nodes and
// event sets whose events live on the same per-index timestamps.
//
// Two datasets are aligned exactly when their IDs are equal. Element-wise
// operators rely on this to combine features without re-matching timestamps.
// IDs survive serialization, so a graph loaded from disk keeps the alignment
// relations it was saved with.
package sampling

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is an opaque alignment token. The zero ID is never produced by New.
type ID struct {
	u uuid.UUID
}

// New returns a fresh, unique ID.
func New() ID {
	return ID{u: uuid.New()}
}

// Parse decodes an ID from its String form.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid sampling id %q: %w", s, err)
	}
	return ID{u: u}, nil
}

// String returns the canonical textual form.
func (id ID) String() string {
	return id.u.String()
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.u == uuid.Nil
}
