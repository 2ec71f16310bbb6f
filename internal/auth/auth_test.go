package auth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestGenerateKey(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	rawKey, key, err := mgr.GenerateKey(ctx, "Test key", GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	// Check raw key format
	if !strings.HasPrefix(rawKey, "bk_") {
		t.Errorf("Expected raw key to start with bk_, got %s", rawKey[:10])
	}
	if len(rawKey) != 67 { // "bk_" + 64 hex chars
		t.Errorf("Expected raw key length 67, got %d", len(rawKey))
	}

	// Check key metadata and defaults
	if !strings.HasPrefix(key.ID, "ak_") {
		t.Errorf("Expected key ID to start with ak_, got %s", key.ID)
	}
	if key.Name != "Test key" {
		t.Errorf("Expected name 'Test key', got %s", key.Name)
	}
	if len(key.Permissions) != 1 || key.Permissions[0] != PermRead {
		t.Errorf("Expected default read permission, got %v", key.Permissions)
	}
	if key.RateLimitPerMinute != DefaultPerMinute {
		t.Errorf("Expected default per-minute limit %d, got %d", DefaultPerMinute, key.RateLimitPerMinute)
	}
	if key.RateLimitPerHour != DefaultPerHour {
		t.Errorf("Expected default per-hour limit %d, got %d", DefaultPerHour, key.RateLimitPerHour)
	}
	if !key.Active {
		t.Error("New keys should be active")
	}
}

func TestGenerateKeyWithOptions(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	expires := time.Now().Add(24 * time.Hour)
	_, key, err := mgr.GenerateKey(ctx, "Partner", GenerateOptions{
		Permissions: []string{PermAdmin},
		PerMinute:   120,
		PerHour:     5000,
		ExpiresAt:   &expires,
	})
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if key.RateLimitPerMinute != 120 || key.RateLimitPerHour != 5000 {
		t.Errorf("Expected custom limits 120/5000, got %d/%d", key.RateLimitPerMinute, key.RateLimitPerHour)
	}
	if !key.HasPermission(PermAdmin) {
		t.Error("Expected admin permission")
	}
	// admin implies read
	if !key.HasPermission(PermRead) {
		t.Error("Admin key should also grant read")
	}
	if key.ExpiresAt == nil || !key.ExpiresAt.Equal(expires) {
		t.Error("Expected expiry to be stored")
	}
}

func TestValidateKey(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	rawKey, _, err := mgr.GenerateKey(ctx, "Primary", GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	// Validate with correct key
	key, err := mgr.ValidateKey(ctx, rawKey)
	if err != nil {
		t.Errorf("ValidateKey failed for valid key: %v", err)
	}
	if key.Name != "Primary" {
		t.Errorf("Expected name Primary, got %s", key.Name)
	}

	// Validate with Bearer prefix
	if _, err = mgr.ValidateKey(ctx, "Bearer "+rawKey); err != nil {
		t.Errorf("ValidateKey failed with Bearer prefix: %v", err)
	}

	// Validate with wrong key
	_, err = mgr.ValidateKey(ctx, "bk_wrongkey12345678901234567890123456789012345678901234567890")
	if err != ErrInvalidAPIKey {
		t.Errorf("Expected ErrInvalidAPIKey for wrong key, got: %v", err)
	}

	// Validate with empty key
	_, err = mgr.ValidateKey(ctx, "")
	if err != ErrNoAPIKey {
		t.Errorf("Expected ErrNoAPIKey for empty key, got: %v", err)
	}

	// Validate with malformed key
	_, err = mgr.ValidateKey(ctx, "not_a_valid_key")
	if err != ErrInvalidAPIKey {
		t.Errorf("Expected ErrInvalidAPIKey for malformed key, got: %v", err)
	}
}

func TestValidateExpiredKey(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	rawKey, _, err := mgr.GenerateKey(ctx, "Stale", GenerateOptions{ExpiresAt: &expired})
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if _, err := mgr.ValidateKey(ctx, rawKey); err != ErrInvalidAPIKey {
		t.Errorf("Expected ErrInvalidAPIKey for expired key, got: %v", err)
	}
}

func TestListKeys(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	mgr.GenerateKey(ctx, "Key 1", GenerateOptions{})
	mgr.GenerateKey(ctx, "Key 2", GenerateOptions{})
	mgr.GenerateKey(ctx, "Key 3", GenerateOptions{})

	keys, err := mgr.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("Expected 3 keys, got %d", len(keys))
	}
}

func TestRevokeKey(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	rawKey, key, _ := mgr.GenerateKey(ctx, "To revoke", GenerateOptions{})

	// Validate before revoke
	if _, err := mgr.ValidateKey(ctx, rawKey); err != nil {
		t.Errorf("Key should be valid before revoke")
	}

	if err := mgr.RevokeKey(ctx, key.ID); err != nil {
		t.Fatalf("RevokeKey failed: %v", err)
	}

	// Validate after revoke - should fail
	if _, err := mgr.ValidateKey(ctx, rawKey); err != ErrInvalidAPIKey {
		t.Errorf("Expected ErrInvalidAPIKey after revoke, got: %v", err)
	}

	// Revoking an unknown ID reports not found
	if err := mgr.RevokeKey(ctx, "ak_missing"); err != ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound, got: %v", err)
	}
}

func TestKeyHashNotExposed(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	rawKey, _, _ := mgr.GenerateKey(ctx, "Test", GenerateOptions{})

	key, _ := mgr.ValidateKey(ctx, rawKey)

	if key.Hash == rawKey {
		t.Error("Hash should not equal raw key")
	}
	if key.Hash == "" {
		t.Error("Hash should be set")
	}
}
