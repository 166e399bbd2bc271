// Package history fetches a conversation's messages and reconciles the
// gateway's unreliable filtering, duplicates and ordering.
package history

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
)

// Request sizing. The gateway paginates coarsely, so more records than
// needed are requested and trimmed locally.
const (
	requestSlack = 20
	minRequest   = 100
	maxRequest   = 5000

	// ScanDepth is how many of the newest messages are mined for alias hints.
	ScanDepth = 10
)

// Source is the slice of the gateway client history needs.
type Source interface {
	FindMessages(ctx context.Context, remoteJID string, limit int) ([]wa.Message, error)
	MarkRead(ctx context.Context, keys []wa.MessageKey) error
}

// Service retrieves conversation history.
type Service struct {
	src    Source
	cache  *alias.Cache
	logger *zap.Logger
}

// NewService creates a history service.
func NewService(src Source, cache *alias.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{src: src, cache: cache, logger: logger}
}

// RequestLimit returns how many records to ask the gateway for.
func RequestLimit(count int) int {
	return min(max(count+requestSlack, minRequest), maxRequest)
}

// FetchMessages returns at most count messages of the conversation, newest
// first, without duplicate ids. When the conversation has a learned
// counterpart its history is merged in. Afterwards the newest messages of an
// alias conversation are mined for the alias's phone identifier.
func (s *Service) FetchMessages(ctx context.Context, conversationID string, count int) ([]wa.Message, error) {
	if count <= 0 {
		return nil, nil
	}
	limit := RequestLimit(count)

	msgs, err := s.src.FindMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	if other, ok := s.cache.Lookup(conversationID); ok && other != conversationID {
		extra, err := s.src.FindMessages(ctx, other, limit)
		if err != nil {
			s.logger.Debug("counterpart history unavailable", zap.String("id", other), zap.Error(err))
		}
		msgs = append(msgs, extra...)
	}

	out := Reconcile(msgs, conversationID, count, s.cache.Snapshot())

	if jid.IsAlias(conversationID) {
		if n, err := s.cache.LearnAll(alias.Scan(out, ScanDepth)); err != nil {
			s.logger.Warn("persist learned aliases failed", zap.Error(err))
		} else if n > 0 {
			s.logger.Info("aliases learned from history", zap.String("id", conversationID), zap.Int("count", n))
		}
	}
	return out, nil
}

// Reconcile keeps the messages of conversationID, drops repeated ids keeping
// the first occurrence, sorts newest first and truncates to count. Records
// without an id are deduplicated by sender, time and content.
func Reconcile(msgs []wa.Message, conversationID string, count int, m jid.Mapping) []wa.Message {
	seen := make(map[string]bool, len(msgs))
	out := make([]wa.Message, 0, min(len(msgs), max(count, 0)))
	for _, msg := range msgs {
		if !jid.Equivalent(msg.Key.RemoteJID, conversationID, m) {
			continue
		}
		key := dedupKey(msg)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if count >= 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

func dedupKey(msg wa.Message) string {
	if msg.Key.ID != "" {
		return "id:" + msg.Key.ID
	}
	c := msg.Content
	return strings.Join([]string{
		"noid",
		jid.Normalize(jid.Bare(msg.Key.RemoteJID)),
		strconv.FormatBool(msg.Key.FromMe),
		strconv.FormatInt(msg.Timestamp, 10),
		c.Type, c.Text, c.Caption, c.FileName,
	}, "\x00")
}

// MarkRead marks the incoming messages among msgs as read. Failures are
// logged and swallowed.
func (s *Service) MarkRead(ctx context.Context, msgs []wa.Message) {
	var keys []wa.MessageKey
	for _, m := range msgs {
		if !m.Key.FromMe && m.Key.ID != "" {
			keys = append(keys, m.Key)
		}
	}
	if err := s.src.MarkRead(ctx, keys); err != nil {
		s.logger.Debug("mark read failed", zap.Int("messages", len(keys)), zap.Error(err))
	}
}
