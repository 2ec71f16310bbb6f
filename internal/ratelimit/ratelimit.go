// Package ratelimit gates inbound requests per credential using rolling
// per-minute and per-hour counters.
//
// Both windows are checked atomically before any provider work begins;
// exceeding either rejects the request. Counters age out as their window
// slides.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the check-and-increment contract. Allow returns false when
// either window is at its limit. Whether a rejected attempt consumes
// quota is backend-specific: Memory only counts accepted calls, while
// the Redis fixed-window limiter increments its counters before
// checking, so sustained rejected traffic keeps the windows full.
type Limiter interface {
	Allow(ctx context.Context, key string, perMinute, perHour int) (bool, error)
}

type keyState struct {
	// hits holds the timestamps of accepted calls within the trailing
	// hour, oldest first.
	hits     []time.Time
	lastSeen time.Time
}

// Memory is an in-process sliding-window Limiter. One lock guards all
// keys; increment-and-check is atomic under concurrent requests bearing
// the same key.
type Memory struct {
	mu    sync.Mutex
	keys  map[string]*keyState
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemory creates an in-memory limiter with a background janitor that
// drops keys idle for over an hour.
func NewMemory() *Memory {
	m := &Memory{
		keys: make(map[string]*keyState),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go m.cleanup()
	return m
}

func (m *Memory) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := m.now().Add(-time.Hour)
			m.mu.Lock()
			for key, st := range m.keys {
				if st.lastSeen.Before(cutoff) {
					delete(m.keys, key)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Stop stops the janitor goroutine.
func (m *Memory) Stop() {
	m.once.Do(func() { close(m.stop) })
}

// Allow checks both windows and records the call if admitted.
func (m *Memory) Allow(ctx context.Context, key string, perMinute, perHour int) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.keys[key]
	if !ok {
		st = &keyState{}
		m.keys[key] = st
	}
	st.lastSeen = now

	// drop hits that slid out of the hour window
	hourCutoff := now.Add(-time.Hour)
	trimmed := st.hits[:0]
	for _, h := range st.hits {
		if h.After(hourCutoff) {
			trimmed = append(trimmed, h)
		}
	}
	st.hits = trimmed

	if len(st.hits) >= perHour {
		return false, nil
	}

	minuteCutoff := now.Add(-time.Minute)
	inMinute := 0
	for i := len(st.hits) - 1; i >= 0; i-- {
		if !st.hits[i].After(minuteCutoff) {
			break
		}
		inMinute++
	}
	if inMinute >= perMinute {
		return false, nil
	}

	st.hits = append(st.hits, now)
	return true, nil
}
