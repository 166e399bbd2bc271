package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/matheus3301/wppbridge/internal/bus"
	"github.com/matheus3301/wppbridge/internal/delivery"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
)

// Deliverer is the delivery engine.
type Deliverer interface {
	SendText(ctx context.Context, target, text string, quoted *wa.Quoted) (delivery.Result, error)
	SendMedia(ctx context.Context, target string, media wa.Media) (delivery.Result, error)
}

// Receipt is a journaled send.
type Receipt struct {
	ClientMsgID string `json:"client_msg_id"`
	delivery.Result
}

// Ack is the payload of message.send_ack events.
type Ack struct {
	ClientMsgID string
	ServerMsgID string
	Target      string
	Strategy    string
}

// Failure is the payload of message.send_failed events.
type Failure struct {
	ClientMsgID string
	Target      string
	Error       string
}

// Sender journals every outbound message around the delivery engine:
// queued, sending, then sent or failed.
type Sender struct {
	db        *store.DB
	deliverer Deliverer
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, deliverer Deliverer, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:        db,
		deliverer: deliverer,
		bus:       b,
		logger:    logger,
	}
}

// SendText journals and delivers a text message.
func (s *Sender) SendText(ctx context.Context, target, text string, quoted *wa.Quoted) (Receipt, error) {
	entry := &store.OutboxEntry{Kind: string(delivery.KindText), Target: target, Body: text}
	return s.send(ctx, entry, func() (delivery.Result, error) {
		return s.deliverer.SendText(ctx, target, text, quoted)
	})
}

// SendMedia journals and delivers a media message. Only a preview of the
// media is journaled.
func (s *Sender) SendMedia(ctx context.Context, target string, media wa.Media) (Receipt, error) {
	preview := wa.Preview(wa.Content{Type: media.Type, Caption: media.Caption, FileName: media.FileName})
	entry := &store.OutboxEntry{Kind: string(delivery.KindMedia), Target: target, Body: preview}
	return s.send(ctx, entry, func() (delivery.Result, error) {
		return s.deliverer.SendMedia(ctx, target, media)
	})
}

// send returns delivery errors unwrapped so callers can inspect them.
func (s *Sender) send(ctx context.Context, entry *store.OutboxEntry, deliver func() (delivery.Result, error)) (Receipt, error) {
	entry.ClientMsgID = uuid.NewString()
	if err := s.db.QueueOutbox(entry); err != nil {
		return Receipt{}, fmt.Errorf("queue outbox: %w", err)
	}
	s.bus.Emit(bus.KindOutboxQueued, entry.ClientMsgID)
	receipt := Receipt{ClientMsgID: entry.ClientMsgID}

	if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
		s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
	}

	res, err := deliver()
	if err != nil {
		s.logger.Error("failed to send message", zap.Error(err),
			zap.String("client_msg_id", entry.ClientMsgID), zap.String("target", entry.Target))
		s.fail(entry.ClientMsgID, entry.Target, err.Error())
		return receipt, err
	}
	receipt.Result = res

	if err := s.db.MarkOutboxSent(entry.ClientMsgID, res.MessageID, res.Target, res.Strategy); err != nil {
		s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
	}
	s.logger.Info("message sent",
		zap.String("client_msg_id", entry.ClientMsgID),
		zap.String("server_msg_id", res.MessageID),
		zap.String("strategy", res.Strategy),
	)
	s.bus.Emit(bus.KindSendAck, Ack{
		ClientMsgID: entry.ClientMsgID,
		ServerMsgID: res.MessageID,
		Target:      res.Target,
		Strategy:    res.Strategy,
	})
	return receipt, nil
}

func (s *Sender) fail(clientMsgID, target, reason string) {
	if err := s.db.MarkOutboxFailed(clientMsgID, reason); err != nil {
		s.logger.Error("failed to mark failed", zap.Error(err), zap.String("client_msg_id", clientMsgID))
	}
	s.bus.Emit(bus.KindSendFailed, Failure{ClientMsgID: clientMsgID, Target: target, Error: reason})
}

// Recover fails entries a previous process left unfinished. Sends are not
// replayed: the gateway may already have delivered them.
func (s *Sender) Recover() (int, error) {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		return 0, fmt.Errorf("read outbox: %w", err)
	}
	for _, e := range pending {
		s.fail(e.ClientMsgID, e.Target, "interrupted before delivery was confirmed")
	}
	if len(pending) > 0 {
		s.logger.Warn("outbox entries interrupted", zap.Int("count", len(pending)))
	}
	return len(pending), nil
}

// Recent returns the newest journal entries.
func (s *Sender) Recent(limit int) ([]store.OutboxEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.db.RecentOutbox(limit)
}
