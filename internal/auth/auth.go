// Package auth issues and validates API keys for the quote API.
//
// Authentication model:
// - Quote and security endpoints: API key optional; anonymous callers get
//   the shared anonymous rate-limit tier
// - Key administration: requires the admin secret
// - Each key carries its own permissions and per-minute/per-hour limits
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

// Errors
var (
	ErrNoAPIKey      = errors.New("API key required")
	ErrInvalidAPIKey = errors.New("invalid or expired API key")
	ErrForbidden     = errors.New("key lacks the required permission")
	ErrKeyNotFound   = errors.New("API key not found")
)

// Permissions recognized on a key.
const (
	PermRead  = "read"
	PermAdmin = "admin"
)

// Default per-key limits applied when a key is generated without
// explicit overrides.
const (
	DefaultPerMinute = 60
	DefaultPerHour   = 1000
)

// APIKey is the stored metadata for one issued key. The raw key itself
// is never persisted, only its SHA-256 hash.
type APIKey struct {
	ID                 string     `json:"id"`
	Hash               string     `json:"-"`
	Name               string     `json:"name"`
	Permissions        []string   `json:"permissions"`
	RateLimitPerMinute int        `json:"rateLimitPerMinute"`
	RateLimitPerHour   int        `json:"rateLimitPerHour"`
	Active             bool       `json:"active"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastUsed           time.Time  `json:"lastUsed,omitempty"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// HasPermission reports whether the key grants perm. Admin implies read.
func (k *APIKey) HasPermission(perm string) bool {
	for _, p := range k.Permissions {
		if p == perm || p == PermAdmin {
			return true
		}
	}
	return false
}

// Store persists API keys
type Store interface {
	Create(ctx context.Context, key *APIKey) error
	GetByHash(ctx context.Context, hash string) (*APIKey, error)
	List(ctx context.Context) ([]*APIKey, error)
	Update(ctx context.Context, key *APIKey) error
	Delete(ctx context.Context, id string) error
}

// Manager handles key issuance and validation
type Manager struct {
	store Store
}

// NewManager creates a new auth manager
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// GenerateOptions tunes a newly issued key. Zero values fall back to
// sensible defaults.
type GenerateOptions struct {
	Permissions []string
	PerMinute   int
	PerHour     int
	ExpiresAt   *time.Time
}

// GenerateKey creates a new API key.
// Returns the raw key (shown once) and the stored metadata.
func (m *Manager) GenerateKey(ctx context.Context, name string, opts GenerateOptions) (rawKey string, key *APIKey, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, err
	}

	rawKey = "bk_" + hex.EncodeToString(b)

	perms := opts.Permissions
	if len(perms) == 0 {
		perms = []string{PermRead}
	}
	perMinute := opts.PerMinute
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	perHour := opts.PerHour
	if perHour <= 0 {
		perHour = DefaultPerHour
	}

	key = &APIKey{
		ID:                 "ak_" + hex.EncodeToString(b[:8]),
		Hash:               hashKey(rawKey),
		Name:               name,
		Permissions:        perms,
		RateLimitPerMinute: perMinute,
		RateLimitPerHour:   perHour,
		Active:             true,
		CreatedAt:          time.Now(),
		ExpiresAt:          opts.ExpiresAt,
	}

	if err := m.store.Create(ctx, key); err != nil {
		return "", nil, err
	}

	return rawKey, key, nil
}

// ValidateKey validates a presented key and returns its metadata.
func (m *Manager) ValidateKey(ctx context.Context, rawKey string) (*APIKey, error) {
	if rawKey == "" {
		return nil, ErrNoAPIKey
	}

	rawKey = strings.TrimPrefix(rawKey, "Bearer ")
	rawKey = strings.TrimSpace(rawKey)

	if !strings.HasPrefix(rawKey, "bk_") {
		return nil, ErrInvalidAPIKey
	}

	hash := hashKey(rawKey)
	key, err := m.store.GetByHash(ctx, hash)
	if err != nil {
		return nil, ErrInvalidAPIKey
	}

	if !key.Active {
		return nil, ErrInvalidAPIKey
	}
	if key.ExpiresAt != nil && time.Now().After(*key.ExpiresAt) {
		return nil, ErrInvalidAPIKey
	}

	// Update last used (fire and forget)
	go func() {
		key.LastUsed = time.Now()
		m.store.Update(context.Background(), key)
	}()

	return key, nil
}

// ListKeys returns all issued keys.
func (m *Manager) ListKeys(ctx context.Context) ([]*APIKey, error) {
	return m.store.List(ctx)
}

// RevokeKey deactivates an API key.
func (m *Manager) RevokeKey(ctx context.Context, keyID string) error {
	keys, err := m.store.List(ctx)
	if err != nil {
		return err
	}

	for _, k := range keys {
		if k.ID == keyID {
			k.Active = false
			return m.store.Update(ctx, k)
		}
	}

	return ErrKeyNotFound
}

func hashKey(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKey // by ID
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*APIKey),
	}
}

func (s *MemoryStore) Create(ctx context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	return nil
}

func (s *MemoryStore) GetByHash(ctx context.Context, hash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Hash == hash {
			return k, nil
		}
	}
	return nil, ErrKeyNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*APIKey, 0, len(s.keys))
	for _, k := range s.keys {
		result = append(result, k)
	}
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	return nil
}
