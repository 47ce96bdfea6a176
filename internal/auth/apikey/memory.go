package apikey

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Keys used by tests and single-node setups.
type Memory struct {
	mu     sync.RWMutex
	byHash map[string]*KeyInfo
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{byHash: make(map[string]*KeyInfo), now: time.Now}
}

func (m *Memory) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.byHash[HashKey(rawKey)]
	if !ok || !info.IsActive {
		return nil, ErrInvalidKey
	}
	if info.ExpiresAt != nil && info.ExpiresAt.Before(m.now()) {
		return nil, ErrExpiredKey
	}
	out := *info
	return &out, nil
}

func (m *Memory) Create(ctx context.Context, name string, expiresAt *time.Time) (string, KeyInfo, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return "", KeyInfo{}, err
	}
	info := KeyInfo{
		ID:        uuid.NewString(),
		Name:      name,
		IsActive:  true,
		CreatedAt: m.now().UTC(),
		ExpiresAt: expiresAt,
	}
	m.mu.Lock()
	m.byHash[HashKey(rawKey)] = &info
	m.mu.Unlock()
	return rawKey, info, nil
}

func (m *Memory) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.byHash {
		if info.ID == id && info.IsActive {
			info.IsActive = false
			return nil
		}
	}
	return ErrInvalidKey
}

func (m *Memory) List(ctx context.Context) ([]KeyInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []KeyInfo
	for _, info := range m.byHash {
		if info.IsActive {
			keys = append(keys, *info)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}
