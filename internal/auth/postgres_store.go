package auth

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// PostgresStore persists API keys in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed auth store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create stores a new API key
func (p *PostgresStore) Create(ctx context.Context, key *APIKey) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, name, permissions, rate_limit_per_minute, rate_limit_per_hour, active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, key.ID, key.Hash, key.Name, pq.Array(key.Permissions),
		key.RateLimitPerMinute, key.RateLimitPerHour, key.Active, key.CreatedAt, key.ExpiresAt)
	return err
}

// GetByHash retrieves an API key by its hash
func (p *PostgresStore) GetByHash(ctx context.Context, hash string) (*APIKey, error) {
	key := &APIKey{}
	var expiresAt sql.NullTime
	var lastUsed sql.NullTime

	err := p.db.QueryRowContext(ctx, `
		SELECT id, key_hash, name, permissions, rate_limit_per_minute, rate_limit_per_hour, active, created_at, last_used_at, expires_at
		FROM api_keys WHERE key_hash = $1
	`, hash).Scan(
		&key.ID, &key.Hash, &key.Name, pq.Array(&key.Permissions),
		&key.RateLimitPerMinute, &key.RateLimitPerHour, &key.Active,
		&key.CreatedAt, &lastUsed, &expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}
	if lastUsed.Valid {
		key.LastUsed = lastUsed.Time
	}
	return key, nil
}

// List retrieves all issued API keys, newest first
func (p *PostgresStore) List(ctx context.Context) ([]*APIKey, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, key_hash, name, permissions, rate_limit_per_minute, rate_limit_per_hour, active, created_at, last_used_at, expires_at
		FROM api_keys ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []*APIKey
	for rows.Next() {
		key := &APIKey{}
		var expiresAt sql.NullTime
		var lastUsed sql.NullTime

		if err := rows.Scan(
			&key.ID, &key.Hash, &key.Name, pq.Array(&key.Permissions),
			&key.RateLimitPerMinute, &key.RateLimitPerHour, &key.Active,
			&key.CreatedAt, &lastUsed, &expiresAt,
		); err != nil {
			return nil, err
		}

		if expiresAt.Valid {
			key.ExpiresAt = &expiresAt.Time
		}
		if lastUsed.Valid {
			key.LastUsed = lastUsed.Time
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Update updates a key's mutable fields
func (p *PostgresStore) Update(ctx context.Context, key *APIKey) error {
	var lastUsed interface{}
	if !key.LastUsed.IsZero() {
		lastUsed = key.LastUsed
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = $1, active = $2 WHERE id = $3
	`, lastUsed, key.Active, key.ID)
	return err
}

// Delete removes an API key
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return err
}
