package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mbd888/bridgerank/internal/quote"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// Memory is an in-process Cache used in demo mode and tests. Entries are
// stored as serialized snapshots so cached results cannot alias live ones.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	stop  chan struct{}
	once  sync.Once
}

// NewMemory creates an in-memory cache with a background sweeper.
func NewMemory() *Memory {
	m := &Memory{
		items: make(map[string]memoryEntry),
		stop:  make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.items {
				if now.After(e.expiresAt) {
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) Get(ctx context.Context, key string) (*quote.AggregatedResult, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	var result quote.AggregatedResult
	if err := json.Unmarshal(e.payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Set overwrites the entry for the key: last writer wins, concurrent
// duplicate aggregations are equivalent.
func (m *Memory) Set(ctx context.Context, key string, result *quote.AggregatedResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.items[key] = memoryEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}
