package sync

import (
	"time"

	"github.com/matheus3301/wppbridge/internal/store"
	"go.uber.org/zap"
)

// Reconciler manages sync checkpoints.
type Reconciler struct {
	kv     store.KV
	logger *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(kv store.KV, logger *zap.Logger) *Reconciler {
	return &Reconciler{kv: kv, logger: logger}
}

// UpdateCheckpoint updates a sync checkpoint value.
func (r *Reconciler) UpdateCheckpoint(key, value string) error {
	return r.kv.Set("sync:"+key, value)
}

// GetCheckpoint retrieves a sync checkpoint value; empty if never set.
func (r *Reconciler) GetCheckpoint(key string) (string, error) {
	return r.kv.Get("sync:" + key)
}

// LastSynced reports when the contact directory was last synced.
func LastSynced(kv store.KV) (time.Time, bool) {
	v, err := NewReconciler(kv, nil).GetCheckpoint(CheckpointKey)
	if err != nil || v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
