package security

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a bridge has no security record.
var ErrNotFound = errors.New("no security record for bridge")

// Store reads persisted security records. The records are populated by an
// external ingestion process; this core never writes them.
type Store interface {
	Fetch(ctx context.Context, bridgeID string) (*Record, error)
	ListBridges(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-memory implementation of Store, used in demo mode
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record // keyed by lowercased bridge name
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Put stores a record, replacing any existing one for the bridge.
func (s *MemoryStore) Put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[normalizeBridge(rec.Bridge)] = rec
}

func (s *MemoryStore) Fetch(ctx context.Context, bridgeID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[normalizeBridge(bridgeID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListBridges(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Bridge)
	}
	return out, nil
}
