// Package alias maintains the learned mapping between anonymized alias
// identifiers and the phone-addressed identifiers they stand for.
package alias

import (
	"fmt"
	"sync"

	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/store"
	"go.uber.org/zap"
)

// StorageKey is the KV key the mapping is persisted under.
const StorageKey = "wpp_lid_map"

// Cache is the persisted alias mapping. Entries are advisory: lookups that
// miss never remove anything and a wrong entry is only ever overwritten.
type Cache struct {
	kv     store.KV
	logger *zap.Logger

	mu     sync.RWMutex
	m      map[string]string
	loaded bool
}

// New creates a cache backed by kv. The stored mapping is read lazily.
func New(kv store.KV, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{kv: kv, logger: logger}
}

func (c *Cache) ensureLoaded() {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	m, err := store.LoadStringMap(c.kv, StorageKey)
	if err != nil {
		c.logger.Warn("alias map unreadable, starting empty", zap.Error(err))
	}
	c.m = m
	c.loaded = true
}

// Snapshot returns a copy of the mapping, stable for the duration of one
// operation.
func (c *Cache) Snapshot() jid.MapMapping {
	c.ensureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(jid.MapMapping, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

// Lookup implements jid.Mapping against the live mapping.
func (c *Cache) Lookup(id string) (string, bool) {
	c.ensureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return jid.MapMapping(c.m).Lookup(id)
}

// Resolve returns the phone-addressed identifier learned for an alias.
func (c *Cache) Resolve(id string) (string, bool) {
	if !jid.IsAlias(id) {
		return "", false
	}
	v, ok := c.Lookup(id)
	if !ok || !jid.IsPhone(v) {
		return "", false
	}
	return v, true
}

// Len reports the number of stored entries (both directions).
func (c *Cache) Len() int {
	c.ensureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Learn records alias -> canonical and canonical -> alias and persists the
// mapping immediately. It reports whether anything changed.
func (c *Cache) Learn(alias, canonical string) (bool, error) {
	alias = jid.Bare(alias)
	if !jid.IsAlias(alias) {
		return false, fmt.Errorf("learn: %q is not an alias identifier", alias)
	}
	phone, ok := jid.AsPhone(canonical)
	if !ok {
		return false, fmt.Errorf("learn: %q is not a phone identifier", canonical)
	}

	c.ensureLoaded()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m[alias] == phone && c.m[phone] == alias {
		return false, nil
	}
	c.m[alias] = phone
	c.m[phone] = alias
	if err := store.SaveJSON(c.kv, StorageKey, c.m); err != nil {
		return true, fmt.Errorf("persist alias map: %w", err)
	}
	c.logger.Debug("alias learned", zap.String("alias", alias), zap.String("canonical", phone))
	return true, nil
}

// LearnAll applies candidates in order and returns how many changed the
// mapping. Invalid candidates are skipped; the first persistence error is
// returned after every candidate was tried.
func (c *Cache) LearnAll(cands []Candidate) (int, error) {
	var firstErr error
	n := 0
	for _, cand := range cands {
		changed, err := c.Learn(cand.Alias, cand.Canonical)
		if changed {
			n++
		}
		if err != nil && changed && firstErr == nil {
			firstErr = err
		}
	}
	return n, firstErr
}
