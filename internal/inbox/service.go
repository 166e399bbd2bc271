// Package inbox merges the contact directory, the raw chat list and recent
// messages into one conversation list.
package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/names"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
)

// StatsKey is the KV key of the last refresh snapshot.
const StatsKey = "wpp_inbox_stats"

// DefaultMessageWindow is how many recent messages a refresh inspects.
const DefaultMessageWindow = 200

// Source is the slice of the gateway client the inbox needs.
type Source interface {
	FetchContacts(ctx context.Context) ([]wa.Contact, error)
	FetchChats(ctx context.Context) ([]wa.Chat, error)
	RecentMessages(ctx context.Context, limit int) ([]wa.Message, error)
}

// Stats summarizes the last inbox refresh.
type Stats struct {
	Conversations int   `json:"conversations"`
	Unread        int   `json:"unread"`
	Contacts      int   `json:"contacts"`
	Learned       int   `json:"learned"`
	RefreshedAt   int64 `json:"refreshed_at"`
}

// Service refreshes the inbox.
type Service struct {
	src    Source
	cache  *alias.Cache
	names  *names.Resolver
	kv     store.KV
	window int
	logger *zap.Logger
}

// NewService creates an inbox service. A non-positive window uses
// DefaultMessageWindow.
func NewService(src Source, cache *alias.Cache, resolver *names.Resolver, kv store.KV, window int, logger *zap.Logger) *Service {
	if window <= 0 {
		window = DefaultMessageWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{src: src, cache: cache, names: resolver, kv: kv, window: window, logger: logger}
}

// FetchChats refreshes and returns the inbox. Each source degrades to empty
// on failure; an error is returned only when all of them failed.
func (s *Service) FetchChats(ctx context.Context) ([]wa.Conversation, error) {
	var in Input
	var errs []error

	contacts, err := s.src.FetchContacts(ctx)
	if err != nil {
		s.logger.Warn("contact directory unavailable", zap.Error(err))
		errs = append(errs, err)
	}
	in.Contacts = contacts

	chats, err := s.src.FetchChats(ctx)
	if err != nil {
		s.logger.Warn("chat list unavailable", zap.Error(err))
		errs = append(errs, err)
	}
	in.Chats = chats

	msgs, err := s.src.RecentMessages(ctx, s.window)
	if err != nil {
		s.logger.Warn("recent messages unavailable", zap.Error(err))
		errs = append(errs, err)
	}
	in.Messages = msgs

	if len(errs) == 3 {
		return nil, errors.Join(errs...)
	}

	// Learn first, then synthesize against a stable snapshot.
	learned, err := s.cache.LearnAll(Extract(in))
	if err != nil {
		s.logger.Warn("persist learned aliases failed", zap.Error(err))
	}
	if len(in.Contacts) > 0 {
		s.names.UpdateDirectory(in.Contacts)
	}
	s.names.Discover(DiscoveredNames(in.Messages))

	convs := Synthesize(in, s.cache.Snapshot(), s.names)

	stats := Stats{
		Conversations: len(convs),
		Contacts:      len(in.Contacts),
		Learned:       learned,
		RefreshedAt:   time.Now().Unix(),
	}
	for _, c := range convs {
		stats.Unread += c.UnreadCount
	}
	if err := store.SaveJSON(s.kv, StatsKey, stats); err != nil {
		s.logger.Debug("save inbox stats failed", zap.Error(err))
	}
	s.logger.Info("inbox refreshed",
		zap.Int("conversations", stats.Conversations),
		zap.Int("chats", len(in.Chats)),
		zap.Int("messages", len(in.Messages)),
		zap.Int("learned", learned))
	return convs, nil
}

// LoadStats reads the last refresh snapshot; zero if none was saved.
func LoadStats(kv store.KV) (Stats, error) {
	var st Stats
	err := store.LoadJSON(kv, StatsKey, &st)
	return st, err
}
