// Package idempotency makes retried client requests safe: the first
// successful execution's response is stored under the client-supplied key
// and replayed verbatim for every later request bearing the same key.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrSerialization marks a record that cannot be encoded or decoded. It is
// fatal: it means stored state is corrupt or the response shape changed
// incompatibly, never a transient condition.
var ErrSerialization = errors.New("idempotency record serialization failure")

// Store persists operation responses keyed by client idempotency keys.
// Records never expire; a committed result stays replayable for the lifetime
// of the record regardless of later state changes.
type Store interface {
	// Get decodes the stored response for key into the value pointed to by
	// into. A missing key yields (false, nil), never an error.
	Get(ctx context.Context, key uuid.UUID, into any) (bool, error)

	// Put encodes and stores the response. Each key is written at most once
	// per logical operation; a redundant write is not an error.
	Put(ctx context.Context, key uuid.UUID, response any) error
}

// MemoryStore is an in-process Store used by tests and single-node setups
// that can tolerate losing replay state on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(_ context.Context, key uuid.UUID, into any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.records[key.String()]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, into); err != nil {
		return false, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return true, nil
}

func (s *MemoryStore) Put(_ context.Context, key uuid.UUID, response any) error {
	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key.String()]; exists {
		return nil
	}
	s.records[key.String()] = raw
	return nil
}
