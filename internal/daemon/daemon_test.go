package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wppbridge/internal/api"
	"github.com/matheus3301/wppbridge/internal/client"
	"github.com/matheus3301/wppbridge/internal/config"
	"github.com/matheus3301/wppbridge/internal/instance"
	"go.uber.org/fx"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// fakeGateway answers the gateway routes the daemon uses for instance "test".
type fakeGateway struct {
	mu    sync.Mutex
	sends []map[string]any
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Path {
	case "/instance/connectionState/test":
		_, _ = w.Write([]byte(`{"instance":{"instanceName":"test","state":"open"}}`))
	case "/chat/findChats/test":
		_, _ = w.Write([]byte(`[
			{"remoteJid":"12345@lid","unreadCount":2,"lastMessage":{"key":{"id":"m2","remoteJid":"12345@lid"},"message":{"conversation":"tudo bem?"},"messageTimestamp":1700000100}}
		]`))
	case "/chat/findContacts/test":
		_, _ = w.Write([]byte(`[{"remoteJid":"5551999998888@s.whatsapp.net","lid":"12345@lid","pushName":"Maria"}]`))
	case "/chat/findMessages/test":
		_, _ = w.Write([]byte(`{"messages":{"total":2,"pages":1,"records":[
			{"key":{"id":"m2","remoteJid":"12345@lid","fromMe":false},"message":{"conversation":"tudo bem?"},"messageTimestamp":1700000100},
			{"key":{"id":"m1","remoteJid":"12345@lid","fromMe":false},"message":{"conversation":"oi"},"messageTimestamp":1700000000}
		]}}`))
	case "/chat/markMessageAsRead/test":
		_, _ = w.Write([]byte(`{"read":"success"}`))
	case "/message/sendText/test":
		f.mu.Lock()
		f.sends = append(f.sends, body)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"key":{"id":"SRV1","remoteJid":"5551999998888@s.whatsapp.net"},"status":"PENDING"}`))
	default:
		http.NotFound(w, r)
	}
}

func startDaemon(t *testing.T) (*client.Client, *fakeGateway) {
	t.Helper()
	// Use a short path to avoid the 104-char Unix socket limit on macOS.
	home, err := os.MkdirTemp("/tmp", "wppb-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(home) })
	t.Setenv(instance.HomeEnv, home)

	gw := &fakeGateway{}
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Gateway.BaseURL = srv.URL
	cfg.Gateway.APIKey = "secret"
	cfg.Status.PollIntervalSeconds = 3600

	socketPath := filepath.Join(home, "d.sock")
	app := fx.New(
		Module(Params{Instance: "test", SocketPath: socketPath, Config: cfg}),
		fx.NopLogger,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("app start: %v", err)
	}
	t.Cleanup(func() { _ = app.Stop(context.Background()) })

	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, gw
}

func TestFxModuleWiring(t *testing.T) {
	if err := fx.ValidateApp(Module(Params{Instance: "fxtest", Config: config.Default()})); err != nil {
		t.Fatalf("fx graph invalid: %v", err)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	c, gw := startDaemon(t)
	ctx := context.Background()

	st, err := c.CheckStatus(ctx)
	if err != nil {
		t.Fatalf("CheckStatus error = %v", err)
	}
	if st.Instance != "test" || st.State != "OPEN" {
		t.Errorf("status = %+v, want instance test in OPEN", st)
	}

	chats, err := c.ListChats(ctx)
	if err != nil {
		t.Fatalf("ListChats error = %v", err)
	}
	if len(chats.Conversations) != 1 {
		t.Fatalf("conversations = %+v, want 1", chats.Conversations)
	}
	conv := chats.Conversations[0]
	if conv.Name != "Maria" || conv.UnreadCount != 2 {
		t.Errorf("conversation = %+v, want Maria with 2 unread", conv)
	}

	msgs, err := c.ListMessages(ctx, &api.ListMessagesRequest{ConversationID: "12345@lid", Count: 10, MarkRead: true})
	if err != nil {
		t.Fatalf("ListMessages error = %v", err)
	}
	if len(msgs.Messages) != 2 || msgs.Messages[0].Key.ID != "m2" {
		t.Errorf("messages = %+v, want m2 then m1", msgs.Messages)
	}

	// The inbox refresh learned 12345@lid, so the send goes to the phone.
	sent, err := c.SendText(ctx, &api.SendTextRequest{Target: "12345@lid", Text: "oi Maria"})
	if err != nil {
		t.Fatalf("SendText error = %v", err)
	}
	if sent.Receipt.MessageID != "SRV1" || sent.Receipt.Strategy != "cached" {
		t.Errorf("receipt = %+v", sent.Receipt)
	}
	gw.mu.Lock()
	number := gw.sends[0]["number"]
	gw.mu.Unlock()
	if number != "5551999998888" {
		t.Errorf("sent to %v, want the learned phone number", number)
	}

	outbox, err := c.ListOutbox(ctx, &api.ListOutboxRequest{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(outbox.Entries) != 1 || outbox.Entries[0].Status != "sent" {
		t.Errorf("outbox = %+v", outbox.Entries)
	}

	if _, err := c.SetCustomName(ctx, &api.SetCustomNameRequest{ID: "5551999998888@s.whatsapp.net", Name: "Tia Maria"}); err != nil {
		t.Fatal(err)
	}
	name, err := c.ResolveName(ctx, &api.ResolveNameRequest{ID: "12345@lid"})
	if err != nil {
		t.Fatal(err)
	}
	if name.Name != "Tia Maria" {
		t.Errorf("resolved name = %q, want the custom name via the alias", name.Name)
	}
}

func TestDaemonValidation(t *testing.T) {
	c, _ := startDaemon(t)

	_, err := c.SendText(context.Background(), &api.SendTextRequest{Target: "", Text: "x"})
	if grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("SendText without target code = %v, want InvalidArgument", grpcstatus.Code(err))
	}
	_, err = c.ResolveName(context.Background(), &api.ResolveNameRequest{})
	if grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("ResolveName without id code = %v, want InvalidArgument", grpcstatus.Code(err))
	}
}

func TestDaemonStreamsEvents(t *testing.T) {
	c, _ := startDaemon(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 8)
	go func() {
		_ = c.WatchEvents(ctx, "message.", func(env *api.EventEnvelope) error {
			got <- env.Kind
			return nil
		})
	}()
	// Give the stream time to subscribe.
	time.Sleep(100 * time.Millisecond)

	if _, err := c.SendText(ctx, &api.SendTextRequest{Target: "5551999998888", Text: "oi"}); err != nil {
		t.Fatal(err)
	}

	for {
		select {
		case kind := <-got:
			if strings.HasSuffix(kind, "send_ack") {
				return
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for send_ack event")
		}
	}
}
