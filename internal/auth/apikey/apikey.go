// Package apikey issues and validates the API keys that guard the
// detector's mutating endpoints. Raw keys are generated with crypto/rand
// and only their SHA-256 digest is stored, so a key is shown once, at
// creation.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/postgres"
	"github.com/google/uuid"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrExpiredKey = errors.New("api key expired")
)

// KeyInfo is the stored metadata of a key. The raw key never appears here.
type KeyInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Keys manages API keys.
type Keys interface {
	Validate(ctx context.Context, rawKey string) (*KeyInfo, error)
	Create(ctx context.Context, name string, expiresAt *time.Time) (rawKey string, info KeyInfo, err error)
	Revoke(ctx context.Context, id string) error
	List(ctx context.Context) ([]KeyInfo, error)
}

// Postgres keeps keys in the api_keys table created by postgres.Client.Migrate.
type Postgres struct {
	db     *postgres.Client
	now    func() time.Time
	logger *slog.Logger
}

func NewPostgres(db *postgres.Client) *Postgres {
	return &Postgres{
		db:     db,
		now:    time.Now,
		logger: logger.WithComponent("apikey-store"),
	}
}

// Validate looks up an active key by the hash of rawKey.
func (p *Postgres) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	var info KeyInfo
	var expiresAt sql.NullTime
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT id, name, is_active, created_at, expires_at
		 FROM api_keys
		 WHERE key_hash = $1 AND is_active = true`,
		HashKey(rawKey),
	).Scan(&info.ID, &info.Name, &info.IsActive, &info.CreatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}

	if expiresAt.Valid {
		if expiresAt.Time.Before(p.now()) {
			return nil, ErrExpiredKey
		}
		info.ExpiresAt = &expiresAt.Time
	}
	return &info, nil
}

// Create stores a new key and returns the raw key alongside its metadata.
func (p *Postgres) Create(ctx context.Context, name string, expiresAt *time.Time) (string, KeyInfo, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return "", KeyInfo{}, err
	}
	info := KeyInfo{
		ID:        uuid.NewString(),
		Name:      name,
		IsActive:  true,
		CreatedAt: p.now().UTC(),
		ExpiresAt: expiresAt,
	}

	var expiry sql.NullTime
	if expiresAt != nil {
		expiry = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	_, err = p.db.DB.ExecContext(ctx,
		`INSERT INTO api_keys (id, key_hash, name, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		info.ID, HashKey(rawKey), name, info.CreatedAt, expiry,
	)
	if err != nil {
		return "", KeyInfo{}, fmt.Errorf("creating api key: %w", err)
	}

	p.logger.Info("api key created", "id", info.ID, "name", name)
	return rawKey, info, nil
}

// Revoke deactivates the key with the given id.
func (p *Postgres) Revoke(ctx context.Context, id string) error {
	result, err := p.db.DB.ExecContext(ctx,
		`UPDATE api_keys SET is_active = false WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrInvalidKey
	}
	p.logger.Info("api key revoked", "id", id)
	return nil
}

// List returns the active keys, newest first.
func (p *Postgres) List(ctx context.Context) ([]KeyInfo, error) {
	rows, err := p.db.DB.QueryContext(ctx,
		`SELECT id, name, is_active, created_at, expires_at FROM api_keys WHERE is_active = true ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		var k KeyInfo
		var expiresAt sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.IsActive, &k.CreatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRawKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
