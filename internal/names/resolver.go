// Package names picks the display label for a conversation or sender out of
// several sources of uneven reliability.
package names

import (
	"fmt"
	"sync"

	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
)

// KV keys.
const (
	CustomNamesKey     = "wpp_custom_names"
	DiscoveredNamesKey = "wpp_discovered_names"
)

// Source is one keyed name table.
type Source int

const (
	SourceCustom Source = iota
	SourceDirectory
	SourceDiscovered
)

func (s Source) String() string {
	switch s {
	case SourceCustom:
		return "custom"
	case SourceDirectory:
		return "directory"
	case SourceDiscovered:
		return "discovered"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Precedence orders the keyed tables. Each table is checked for the raw id
// and then its mapped counterpart before moving on; the caller fallback and
// broadcast names come after all of them.
var Precedence = []Source{SourceCustom, SourceDirectory, SourceDiscovered}

// Namer resolves display names.
type Namer interface {
	Resolve(id, fallback string, broadcast ...string) string
}

// Resolver resolves display names from user overrides, the contact
// directory and names discovered on incoming messages.
type Resolver struct {
	kv      store.KV
	mapping jid.Mapping
	logger  *zap.Logger

	mu         sync.RWMutex
	loaded     bool
	custom     map[string]string
	discovered map[string]string
	directory  map[string]string
}

// NewResolver creates a resolver. mapping may be nil.
func NewResolver(kv store.KV, mapping jid.Mapping, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		kv:        kv,
		mapping:   mapping,
		logger:    logger,
		directory: make(map[string]string),
	}
}

func (r *Resolver) ensureLoaded() {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return
	}
	var err error
	if r.custom, err = store.LoadStringMap(r.kv, CustomNamesKey); err != nil {
		r.logger.Warn("custom names unreadable", zap.Error(err))
	}
	if r.discovered, err = store.LoadStringMap(r.kv, DiscoveredNamesKey); err != nil {
		r.logger.Warn("discovered names unreadable", zap.Error(err))
	}
	r.loaded = true
}

func (r *Resolver) table(s Source) map[string]string {
	switch s {
	case SourceCustom:
		return r.custom
	case SourceDirectory:
		return r.directory
	case SourceDiscovered:
		return r.discovered
	}
	return nil
}

// Resolve returns the first qualifying candidate for id, or a formatted
// phone number when none qualifies.
func (r *Resolver) Resolve(id, fallback string, broadcast ...string) string {
	r.ensureLoaded()
	keys := r.keys(id)

	r.mu.RLock()
	for _, src := range Precedence {
		t := r.table(src)
		for _, k := range keys {
			if name := t[k]; IsRealName(name) {
				r.mu.RUnlock()
				return Clean(name)
			}
		}
	}
	r.mu.RUnlock()

	if IsRealName(fallback) {
		return Clean(fallback)
	}
	for _, b := range broadcast {
		if IsRealName(b) {
			return Clean(b)
		}
	}
	// Aliases fall back to the phone they map to.
	if jid.IsAlias(id) {
		for _, k := range keys[1:] {
			if jid.IsPhone(k) {
				return FormatPhone(k)
			}
		}
	}
	return FormatPhone(id)
}

// keys returns the raw id and its mapped counterpart.
func (r *Resolver) keys(id string) []string {
	raw := jid.Bare(id)
	keys := []string{raw}
	if r.mapping != nil {
		if other, ok := r.mapping.Lookup(raw); ok && other != raw {
			keys = append(keys, jid.Bare(other))
		}
	}
	return keys
}

// SetCustomName stores a user override for id. An empty name removes it.
func (r *Resolver) SetCustomName(id, name string) error {
	r.ensureLoaded()
	key := jid.Bare(id)
	if key == "" {
		return fmt.Errorf("set custom name: empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if name = Clean(name); name == "" {
		delete(r.custom, key)
	} else {
		r.custom[key] = name
	}
	if err := store.SaveJSON(r.kv, CustomNamesKey, r.custom); err != nil {
		return fmt.Errorf("persist custom names: %w", err)
	}
	return nil
}

// CustomName returns the override stored for id, if any.
func (r *Resolver) CustomName(id string) string {
	r.ensureLoaded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.custom[jid.Bare(id)]
}

// Discover records names seen on incoming traffic, keyed by identifier.
// Only real names that differ from the stored one are written; persistence
// failures are logged and swallowed.
func (r *Resolver) Discover(found map[string]string) int {
	r.ensureLoaded()
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, name := range found {
		key := jid.Bare(id)
		name = Clean(name)
		if key == "" || !IsRealName(name) || r.discovered[key] == name {
			continue
		}
		r.discovered[key] = name
		n++
	}
	if n > 0 {
		if err := store.SaveJSON(r.kv, DiscoveredNamesKey, r.discovered); err != nil {
			r.logger.Warn("persist discovered names failed", zap.Error(err))
		}
	}
	return n
}

// UpdateDirectory replaces the in-memory directory index. Each contact is
// indexed under its id and its alternate id with its best real name.
func (r *Resolver) UpdateDirectory(contacts []wa.Contact) int {
	dir := make(map[string]string, len(contacts))
	for _, c := range contacts {
		name := DirectoryName(c)
		if name == "" {
			continue
		}
		for _, id := range []string{c.ID, c.AltID} {
			if id != "" {
				dir[jid.Bare(id)] = name
			}
		}
	}

	r.mu.Lock()
	r.directory = dir
	r.mu.Unlock()
	return len(dir)
}

// DirectoryName picks the most reliable real name of a directory record.
func DirectoryName(c wa.Contact) string {
	for _, n := range []string{c.VerifiedName, c.Name, c.PushName} {
		if IsRealName(n) {
			return Clean(n)
		}
	}
	return ""
}
