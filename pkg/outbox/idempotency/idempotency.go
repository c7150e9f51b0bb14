package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/attesthealth/attest-backend/pkg/redis"
)

// Manager tracks processed delivery keys per scope using Redis SETNX with a
// TTL. Keys follow the `attest:idempotency:evt:processed:<scope>:<key>`
// pattern. The webhook pipeline keys it by content hash, so it is a fast-path
// guard only; the database unique constraint remains the source of truth.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks keys as processed for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkProcessed returns true if the key has already been processed and
// otherwise marks it as processed with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, scope, key string) (bool, error) {
	storeKey, err := m.processedKey(scope, key)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, storeKey, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete unmarks a key so a later delivery can be reprocessed. Called when the
// work guarded by the mark fails after the mark was taken.
func (m *Manager) Delete(ctx context.Context, scope, key string) error {
	storeKey, err := m.processedKey(scope, key)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, storeKey)
}

func (m *Manager) processedKey(scope, key string) (string, error) {
	if scope == "" {
		return "", errors.New("scope name is required")
	}
	if key == "" {
		return "", errors.New("key is required")
	}
	prefixed := fmt.Sprintf("evt:processed:%s", scope)
	return m.store.IdempotencyKey(prefixed, key), nil
}
