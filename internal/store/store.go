// Package store is the key-value persistence boundary. Values are opaque JSON
// blobs under fixed keys; a missing key means "not enrolled" or "defaults".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has never been set
var ErrNotFound = errors.New("key not found")

// Fixed identifiers, scoped per user with UserKey
const (
	KeyFaceDescriptor = "safi_face_descriptor"
	KeyVoiceFeatures  = "safi_voice_features"
	KeySecurityLog    = "safi_security_log"
	KeyFaceThreshold  = "safi_face_threshold"
	KeySettings       = "safi_user_settings"
	KeyProfile        = "safi_user_profile"
	KeyTransactions   = "safi_user_transactions"
	KeyAlerts         = "safi_user_alerts"
)

// KV is the key-value persistence port
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Purger is implemented by stores that can drop every key of a user at once
type Purger interface {
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// UserKey namespaces a fixed key under a user
func UserKey(userID, key string) string {
	return userID + ":" + key
}

// GetJSON decodes the value at key into T. found is false when the key is missing.
func GetJSON[T any](ctx context.Context, kv KV, key string) (v T, found bool, err error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// SetJSON marshals v and stores it under key
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
