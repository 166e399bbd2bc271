package api

import (
	"context"
	"strings"

	"github.com/matheus3301/wppbridge/internal/inbox"
	"github.com/matheus3301/wppbridge/internal/names"
	intsync "github.com/matheus3301/wppbridge/internal/sync"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InboxService implements the InboxService gRPC service.
type InboxService struct {
	inbox  *inbox.Service
	syncer *intsync.Engine
	names  *names.Resolver
	logger *zap.Logger

	refresh singleflight.Group
}

// NewInboxService creates a new inbox service.
func NewInboxService(in *inbox.Service, syncer *intsync.Engine, resolver *names.Resolver, logger *zap.Logger) *InboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboxService{inbox: in, syncer: syncer, names: resolver, logger: logger}
}

// ListChats refreshes the inbox. Concurrent callers share one refresh, which
// outlives any single caller going away.
func (s *InboxService) ListChats(ctx context.Context, _ *ListChatsRequest) (*ListChatsResponse, error) {
	ch := s.refresh.DoChan("inbox", func() (any, error) {
		return s.inbox.FetchChats(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, toStatus("list chats", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, toStatus("list chats", r.Err)
		}
		if r.Shared {
			s.logger.Debug("inbox refresh shared")
		}
		return &ListChatsResponse{Conversations: r.Val.([]wa.Conversation)}, nil
	}
}

func (s *InboxService) SyncContacts(ctx context.Context, _ *SyncContactsRequest) (*SyncContactsResponse, error) {
	res, err := s.syncer.SyncContacts(ctx)
	if err != nil {
		return nil, toStatus("sync contacts", err)
	}
	return &SyncContactsResponse{Result: res}, nil
}

func (s *InboxService) ResolveName(_ context.Context, req *ResolveNameRequest) (*ResolveNameResponse, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, invalid("id is required")
	}
	return &ResolveNameResponse{
		Name:   s.names.Resolve(id, req.Fallback),
		Custom: s.names.CustomName(id),
	}, nil
}

func (s *InboxService) SetCustomName(_ context.Context, req *SetCustomNameRequest) (*SetCustomNameResponse, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, invalid("id is required")
	}
	if err := s.names.SetCustomName(id, req.Name); err != nil {
		return nil, toStatus("set custom name", err)
	}
	return &SetCustomNameResponse{}, nil
}
