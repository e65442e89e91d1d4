package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys under which the application snapshots are kept.
const (
	KeyAccounts        = "accounts"
	KeyTransactions    = "transactions"
	KeyVendors         = "vendors"
	KeyPendingPayments = "pendingPayments"
	KeyAuthenticated   = "isAuthenticated"
	KeySessionToken    = "sessionToken"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("key not found")

// Store is a flat string key/value store. Values are whole snapshots; there is
// no partial update and no transaction spanning keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// LoadJSON decodes the value at key into dst. It reports false without error
// when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it at key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
