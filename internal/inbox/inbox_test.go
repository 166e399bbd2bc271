package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/names"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
)

const (
	aliasID = "999@lid"
	phoneID = "5551999998888@s.whatsapp.net"
)

func textMsg(remote, id, text string, ts int64) wa.Message {
	return wa.Message{
		Key:       wa.MessageKey{RemoteJID: remote, ID: id},
		Content:   wa.Content{Type: "text", Text: text},
		Timestamp: ts,
	}
}

func newNamer(m jid.Mapping) *names.Resolver {
	return names.NewResolver(store.NewMemKV(), m, nil)
}

func TestSynthesizeMergesAliasAndPhoneRows(t *testing.T) {
	m := jid.MapMapping{aliasID: phoneID, phoneID: aliasID}
	in := Input{
		Chats: []wa.Chat{
			{ID: aliasID, UnreadCount: 2, UpdatedAt: 100},
			{ID: phoneID, UnreadCount: 3, UpdatedAt: 50, Name: "Maria"},
		},
		Messages: []wa.Message{
			textMsg(aliasID, "m1", "oi", 120),
			textMsg(phoneID, "m0", "antiga", 40),
		},
	}

	out := Synthesize(in, m, newNamer(m))
	if len(out) != 1 {
		t.Fatalf("got %d conversations, want 1: %+v", len(out), out)
	}
	c := out[0]
	if c.ID != phoneID {
		t.Errorf("id = %q, want canonical %q", c.ID, phoneID)
	}
	if c.UnreadCount != 5 {
		t.Errorf("unread = %d, want 5", c.UnreadCount)
	}
	if c.Timestamp != 120 || c.LastMessage != "oi" || c.LastMessageType != "text" {
		t.Errorf("last message = %q @ %d", c.LastMessage, c.Timestamp)
	}
	if c.Name != "Maria" {
		t.Errorf("name = %q, want upgraded to Maria", c.Name)
	}
}

func TestSynthesizeCountsEachChatRowOnce(t *testing.T) {
	m := jid.MapMapping{aliasID: phoneID, phoneID: aliasID}
	in := Input{
		Chats: []wa.Chat{{ID: aliasID, UnreadCount: 4, UpdatedAt: 10}},
		Messages: []wa.Message{
			textMsg(phoneID, "m1", "a", 20),
			textMsg("5551999998888:7@s.whatsapp.net", "m2", "b", 30),
		},
	}
	out := Synthesize(in, m, newNamer(m))
	if len(out) != 1 || out[0].UnreadCount != 4 {
		t.Fatalf("out = %+v, want one entry with unread 4", out)
	}
	if out[0].LastMessage != "b" {
		t.Errorf("last message = %q, want b", out[0].LastMessage)
	}
}

func TestSynthesizeDropsPseudoAndSorts(t *testing.T) {
	in := Input{
		Chats: []wa.Chat{
			{ID: "status@broadcast", UpdatedAt: 999},
			{ID: "120363000000@newsletter", UpdatedAt: 998},
			{ID: "5511911112222@s.whatsapp.net", UpdatedAt: 10},
			{ID: "120363111111@g.us", Name: "Equipe", UpdatedAt: 30},
			{ID: "5511933334444@s.whatsapp.net", UpdatedAt: 30},
		},
	}
	out := Synthesize(in, nil, newNamer(nil))
	want := []string{"120363111111@g.us", "5511933334444@s.whatsapp.net", "5511911112222@s.whatsapp.net"}
	if len(out) != len(want) {
		t.Fatalf("got %d conversations, want %d: %+v", len(out), len(want), out)
	}
	for i, id := range want {
		if out[i].ID != id {
			t.Errorf("out[%d] = %q, want %q", i, out[i].ID, id)
		}
	}
	if !out[0].IsGroup || out[0].Name != "Equipe" {
		t.Errorf("group entry = %+v", out[0])
	}
	if out[2].Name != "(11) 91111-2222" {
		t.Errorf("unnamed entry name = %q, want formatted phone", out[2].Name)
	}
}

func TestSynthesizeUnmappedAliasStaysSeparate(t *testing.T) {
	in := Input{Chats: []wa.Chat{{ID: aliasID, UpdatedAt: 2}, {ID: phoneID, UpdatedAt: 1}}}
	if out := Synthesize(in, nil, newNamer(nil)); len(out) != 2 {
		t.Errorf("got %d conversations, want 2 without a mapping", len(out))
	}
}

// assertNoEquivalentEntries fails when two returned conversations denote the
// same contact under m.
func assertNoEquivalentEntries(t *testing.T, out []wa.Conversation, m jid.Mapping) {
	t.Helper()
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if jid.Equivalent(out[i].ID, out[j].ID, m) {
				t.Errorf("entries %q and %q are equivalent", out[i].ID, out[j].ID)
			}
		}
	}
}

func TestSynthesizeMergesPhoneServers(t *testing.T) {
	in := Input{Chats: []wa.Chat{
		{ID: phoneID, UnreadCount: 1, UpdatedAt: 10},
		{ID: "5551999998888@c.us", UnreadCount: 2, UpdatedAt: 20},
	}}
	out := Synthesize(in, nil, newNamer(nil))
	assertNoEquivalentEntries(t, out, nil)
	if len(out) != 1 {
		t.Fatalf("got %d conversations, want 1: %+v", len(out), out)
	}
	if out[0].ID != phoneID || out[0].UnreadCount != 3 || out[0].Timestamp != 20 {
		t.Errorf("entry = %+v, want %s with unread 3 at 20", out[0], phoneID)
	}
}

func TestCanonicalPhoneServer(t *testing.T) {
	m := jid.MapMapping{aliasID: "5551999998888@c.us"}
	tests := []struct {
		id   string
		want string
	}{
		{"5551999998888@c.us", phoneID},
		{"5551999998888:3@s.whatsapp.net", phoneID},
		{aliasID, phoneID},
		{"777@lid", "777@lid"},
		{"120363111111@g.us", "120363111111@g.us"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.id, m); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestSynthesizeFoldsPhonesSharingStaleAlias(t *testing.T) {
	const (
		oldPhone = "5511988887777@s.whatsapp.net"
		newPhone = "5521977776666@s.whatsapp.net"
	)
	// The alias was re-learned to newPhone; the inverse of the old mapping stays.
	m := jid.MapMapping{aliasID: newPhone, newPhone: aliasID, oldPhone: aliasID}
	in := Input{Chats: []wa.Chat{
		{ID: oldPhone, UnreadCount: 1, UpdatedAt: 10, Name: "Carla"},
		{ID: newPhone, UnreadCount: 2, UpdatedAt: 30, LastMessage: &wa.Message{
			Key: wa.MessageKey{ID: "x"}, Content: wa.Content{Type: "text", Text: "nova"}, Timestamp: 30,
		}},
	}}
	out := Synthesize(in, m, newNamer(m))
	assertNoEquivalentEntries(t, out, m)
	if len(out) != 1 {
		t.Fatalf("got %d conversations, want 1: %+v", len(out), out)
	}
	c := out[0]
	if c.UnreadCount != 3 {
		t.Errorf("unread = %d, want 3", c.UnreadCount)
	}
	if c.Timestamp != 30 || c.LastMessage != "nova" {
		t.Errorf("last message = %q @ %d, want the newer one", c.LastMessage, c.Timestamp)
	}
	if c.Name != "Carla" {
		t.Errorf("name = %q, want Carla", c.Name)
	}
}

func TestSynthesizeAliasFirstShowsMappedPhone(t *testing.T) {
	m := jid.MapMapping{aliasID: phoneID, phoneID: aliasID}
	in := Input{Chats: []wa.Chat{
		{ID: aliasID, UnreadCount: 1, UpdatedAt: 20},
		{ID: phoneID, UnreadCount: 1, UpdatedAt: 10},
	}}
	out := Synthesize(in, m, newNamer(m))
	if len(out) != 1 {
		t.Fatalf("got %d conversations, want 1: %+v", len(out), out)
	}
	if out[0].Name != "(51) 99999-8888" {
		t.Errorf("name = %q, want the formatted phone", out[0].Name)
	}
}

func TestExtractSkipsOwnMessages(t *testing.T) {
	own := textMsg(aliasID, "x", "", 1)
	own.Key.FromMe = true
	own.SenderPN = "5511900000000@s.whatsapp.net"
	incoming := textMsg(aliasID, "y", "", 2)
	incoming.SenderPN = phoneID

	cands := Extract(Input{Messages: []wa.Message{own, incoming}})
	if len(cands) != 1 || cands[0].Canonical != phoneID {
		t.Errorf("candidates = %+v", cands)
	}
}

type fakeSource struct {
	contacts []wa.Contact
	chats    []wa.Chat
	msgs     []wa.Message
	chatErr  error
	fail     bool
}

func (f *fakeSource) FetchContacts(context.Context) ([]wa.Contact, error) {
	if f.fail {
		return nil, errors.New("down")
	}
	return f.contacts, nil
}

func (f *fakeSource) FetchChats(context.Context) ([]wa.Chat, error) {
	if f.fail {
		return nil, errors.New("down")
	}
	return f.chats, f.chatErr
}

func (f *fakeSource) RecentMessages(context.Context, int) ([]wa.Message, error) {
	if f.fail {
		return nil, errors.New("down")
	}
	return f.msgs, nil
}

func TestFetchChatsLearnsThenMerges(t *testing.T) {
	incoming := textMsg(aliasID, "m1", "quero um orçamento", 200)
	incoming.SenderPN = phoneID
	incoming.PushName = "Joana"
	src := &fakeSource{
		chats: []wa.Chat{
			{ID: aliasID, UnreadCount: 1, UpdatedAt: 200},
			{ID: phoneID, UnreadCount: 2, UpdatedAt: 100},
		},
		msgs: []wa.Message{incoming},
	}
	kv := store.NewMemKV()
	cache := alias.New(kv, nil)
	svc := NewService(src, cache, names.NewResolver(kv, cache, nil), kv, 0, nil)

	out, err := svc.FetchChats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].UnreadCount != 3 || out[0].Name != "Joana" {
		t.Fatalf("out = %+v", out)
	}
	if _, ok := cache.Resolve(aliasID); !ok {
		t.Error("alias should have been learned")
	}

	st, err := LoadStats(kv)
	if err != nil {
		t.Fatal(err)
	}
	if st.Conversations != 1 || st.Unread != 3 || st.Learned != 1 || st.RefreshedAt == 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestFetchChatsDegrades(t *testing.T) {
	kv := store.NewMemKV()
	cache := alias.New(kv, nil)
	resolver := names.NewResolver(kv, cache, nil)

	partial := &fakeSource{
		chatErr: errors.New("500"),
		msgs:    []wa.Message{textMsg(phoneID, "m1", "oi", 1)},
	}
	out, err := NewService(partial, cache, resolver, kv, 10, nil).FetchChats(context.Background())
	if err != nil || len(out) != 1 {
		t.Errorf("partial failure = %+v, %v; want one entry from messages", out, err)
	}

	if _, err := NewService(&fakeSource{fail: true}, cache, resolver, kv, 10, nil).FetchChats(context.Background()); err == nil {
		t.Error("expected an error when every source failed")
	}
}
