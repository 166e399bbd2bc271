package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// KV is the string key-value substrate the client persists its derived
// state into. A missing key reads as the empty string.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Get returns the value stored under key, or "" if absent.
func (db *DB) Get(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts key.
func (db *DB) Set(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key; removing an absent key is not an error.
func (db *DB) Remove(key string) error {
	if _, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv remove %q: %w", key, err)
	}
	return nil
}

// MemKV is an in-memory KV used by tests and by consumers without a database.
type MemKV struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemKV returns an empty MemKV.
func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string]string)}
}

func (m *MemKV) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MemKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// LoadJSON decodes the JSON value under key into v. Missing, empty or
// unparseable values are not errors; only a failing store is.
func LoadJSON(kv KV, key string, v any) error {
	raw, err := kv.Get(key)
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(raw), v)
	return nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return kv.Set(key, string(b))
}

// LoadStringMap reads a JSON object of strings. Anything that is not such an
// object reads as an empty map.
func LoadStringMap(kv KV, key string) (map[string]string, error) {
	m := make(map[string]string)
	raw, err := kv.Get(key)
	if err != nil {
		return m, err
	}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return make(map[string]string), nil
	}
	return m, nil
}
