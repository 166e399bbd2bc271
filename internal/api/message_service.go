package api

import (
	"context"
	"strings"

	"github.com/matheus3301/wppbridge/internal/history"
	"github.com/matheus3301/wppbridge/internal/outbox"
	"go.uber.org/zap"
)

// DefaultMessageCount is used when ListMessages is called without a count.
const DefaultMessageCount = 50

// MessageService implements the MessageService gRPC service.
type MessageService struct {
	history *history.Service
	sender  *outbox.Sender
	logger  *zap.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(h *history.Service, sender *outbox.Sender, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{history: h, sender: sender, logger: logger}
}

func (s *MessageService) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		return nil, invalid("conversation_id is required")
	}
	count := req.Count
	if count <= 0 {
		count = DefaultMessageCount
	}

	msgs, err := s.history.FetchMessages(ctx, id, count)
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	if req.MarkRead {
		s.history.MarkRead(ctx, msgs)
	}
	return &ListMessagesResponse{Messages: msgs}, nil
}

func (s *MessageService) SendText(ctx context.Context, req *SendTextRequest) (*SendResponse, error) {
	if strings.TrimSpace(req.Target) == "" {
		return nil, invalid("target is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, invalid("text is required")
	}
	receipt, err := s.sender.SendText(ctx, req.Target, req.Text, req.Quoted)
	if err != nil {
		return nil, toStatus("send text", err)
	}
	return &SendResponse{Receipt: receipt}, nil
}

func (s *MessageService) SendMedia(ctx context.Context, req *SendMediaRequest) (*SendResponse, error) {
	if strings.TrimSpace(req.Target) == "" {
		return nil, invalid("target is required")
	}
	if req.Media.Data == "" {
		return nil, invalid("media data is required")
	}
	receipt, err := s.sender.SendMedia(ctx, req.Target, req.Media)
	if err != nil {
		return nil, toStatus("send media", err)
	}
	return &SendResponse{Receipt: receipt}, nil
}

func (s *MessageService) ListOutbox(_ context.Context, req *ListOutboxRequest) (*ListOutboxResponse, error) {
	entries, err := s.sender.Recent(req.Limit)
	if err != nil {
		return nil, toStatus("list outbox", err)
	}
	return &ListOutboxResponse{Entries: entries}, nil
}
