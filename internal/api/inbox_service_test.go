package api

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/inbox"
	"github.com/matheus3301/wppbridge/internal/names"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// gatedSource blocks chat fetches until release is closed and fails every
// call made with a cancelled context.
type gatedSource struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedSource) FetchContacts(ctx context.Context) ([]wa.Contact, error) {
	return nil, ctx.Err()
}

func (g *gatedSource) FetchChats(ctx context.Context) ([]wa.Chat, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []wa.Chat{{ID: "5551999998888@s.whatsapp.net", UnreadCount: 1, UpdatedAt: 10}}, nil
}

func (g *gatedSource) RecentMessages(ctx context.Context, _ int) ([]wa.Message, error) {
	return nil, ctx.Err()
}

func TestListChatsSurvivesFirstCallerCancel(t *testing.T) {
	kv := store.NewMemKV()
	cache := alias.New(kv, nil)
	resolver := names.NewResolver(kv, cache, nil)
	src := &gatedSource{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewInboxService(inbox.NewService(src, cache, resolver, kv, 0, nil), nil, resolver, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ListChats(firstCtx, &ListChatsRequest{})
		firstErr <- err
	}()
	<-src.entered

	type result struct {
		resp *ListChatsResponse
		err  error
	}
	second := make(chan result, 1)
	go func() {
		resp, err := svc.ListChats(context.Background(), &ListChatsRequest{})
		second <- result{resp, err}
	}()
	time.Sleep(50 * time.Millisecond) // let the second caller join the refresh

	cancel()
	select {
	case err := <-firstErr:
		if status.Code(err) != codes.Canceled {
			t.Errorf("first caller error = %v, want Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(src.release)
	select {
	case r := <-second:
		if r.err != nil {
			t.Fatalf("second caller error = %v, want the shared refresh to finish", r.err)
		}
		if len(r.resp.Conversations) != 1 {
			t.Errorf("conversations = %+v, want 1", r.resp.Conversations)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
}
