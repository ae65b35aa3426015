// Package types holds shared domain primitives: time-ordered identifiers.
package types

import (
	"bytes"
	"sync"

	"github.com/google/uuid"
)

var idMu sync.Mutex
var lastID uuid.UUID

// NewID returns a UUIDv7 that is strictly greater than every id previously
// returned by this process. Lexicographic byte order therefore reflects
// creation order, which the room's record map relies on.
func NewID() uuid.UUID {
	idMu.Lock()
	defer idMu.Unlock()
	for {
		id, err := uuid.NewV7()
		if err != nil {
			// crypto/rand failure; uuid.NewV7 only fails if the entropy
			// source does, which is unrecoverable anyway.
			panic(err)
		}
		if bytes.Compare(id[:], lastID[:]) > 0 {
			lastID = id
			return id
		}
	}
}

// Less reports whether a was created before b (byte order of v7 ids).
func Less(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// After reports whether a was created after b.
func After(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) > 0
}
