package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/bus"
	"github.com/matheus3301/wppbridge/internal/names"
	"github.com/matheus3301/wppbridge/internal/status"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
)

// CheckpointKey records the time of the last completed contact sync.
const CheckpointKey = "contacts_synced_at"

// Directory lists the gateway's contacts.
type Directory interface {
	FetchContacts(ctx context.Context) ([]wa.Contact, error)
}

// Result summarizes one contact sync.
type Result struct {
	Contacts int       `json:"contacts"`
	Learned  int       `json:"learned"`
	Named    int       `json:"named"`
	SyncedAt time.Time `json:"synced_at"`
}

// Engine copies the gateway contact directory into the store, the alias
// cache and the name resolver. It runs once on its own the first time the
// instance connection is seen open.
type Engine struct {
	dir        Directory
	db         *store.DB
	cache      *alias.Cache
	names      *names.Resolver
	reconciler *Reconciler
	bus        *bus.Bus
	logger     *zap.Logger
	cancel     context.CancelFunc
	triggered  atomic.Bool
}

// NewEngine creates a new sync engine.
func NewEngine(dir Directory, db *store.DB, cache *alias.Cache, resolver *names.Resolver, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		dir:        dir,
		db:         db,
		cache:      cache,
		names:      resolver,
		reconciler: NewReconciler(db, logger),
		bus:        b,
		logger:     logger,
	}
}

// Start subscribes to status changes and runs EnsureSynced when the
// connection opens.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("session.", 16)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				change, ok := evt.Payload.(status.StatusChange)
				if !ok || change.To != status.Open {
					continue
				}
				if _, err := e.EnsureSynced(ctx); err != nil {
					e.logger.Warn("automatic contact sync failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

// EnsureSynced runs SyncContacts unless it already ran, or is running, in
// this process. A failed run re-arms the trigger.
func (e *Engine) EnsureSynced(ctx context.Context) (bool, error) {
	if !e.triggered.CompareAndSwap(false, true) {
		return false, nil
	}
	if _, err := e.SyncContacts(ctx); err != nil {
		e.triggered.Store(false)
		return false, err
	}
	return true, nil
}

// SyncContacts fetches the directory and persists it.
func (e *Engine) SyncContacts(ctx context.Context) (Result, error) {
	contacts, err := e.dir.FetchContacts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch contacts: %w", err)
	}

	rows := make([]store.Contact, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, store.Contact{
			JID:          c.ID,
			AltJID:       c.AltID,
			Name:         c.Name,
			PushName:     c.PushName,
			VerifiedName: c.VerifiedName,
		})
	}
	if err := e.db.BulkUpsertContacts(rows); err != nil {
		return Result{}, fmt.Errorf("store contacts: %w", err)
	}

	res := Result{Contacts: len(contacts), SyncedAt: time.Now()}
	res.Learned, res.Named = e.absorb(contacts)

	if err := e.reconciler.UpdateCheckpoint(CheckpointKey, res.SyncedAt.UTC().Format(time.RFC3339)); err != nil {
		e.logger.Warn("failed to record sync checkpoint", zap.Error(err))
	}
	e.bus.Emit(bus.KindContactsSynced, res)
	e.logger.Info("contacts synced",
		zap.Int("contacts", res.Contacts),
		zap.Int("learned", res.Learned),
		zap.Int("named", res.Named),
	)
	return res, nil
}

// Warm feeds previously stored contacts to the alias cache and the name
// resolver, so names survive a restart before the next sync.
func (e *Engine) Warm() error {
	rows, err := e.db.ListContacts()
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}
	contacts := make([]wa.Contact, 0, len(rows))
	for _, r := range rows {
		contacts = append(contacts, wa.Contact{
			ID:           r.JID,
			AltID:        r.AltJID,
			Name:         r.Name,
			PushName:     r.PushName,
			VerifiedName: r.VerifiedName,
		})
	}
	learned, named := e.absorb(contacts)
	e.logger.Debug("contacts loaded", zap.Int("contacts", len(contacts)), zap.Int("learned", learned), zap.Int("named", named))
	return nil
}

func (e *Engine) absorb(contacts []wa.Contact) (learned, named int) {
	var cands []alias.Candidate
	for _, c := range contacts {
		if cand, ok := alias.FromContact(c); ok {
			cands = append(cands, cand)
		}
	}
	learned, err := e.cache.LearnAll(cands)
	if err != nil {
		e.logger.Warn("failed to persist learned aliases", zap.Error(err))
	}
	return learned, e.names.UpdateDirectory(contacts)
}
