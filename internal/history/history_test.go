package history

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
)

type fakeSource struct {
	byJID   map[string][]wa.Message
	limits  []int
	asked   []string
	read    []wa.MessageKey
	readErr error
}

func (f *fakeSource) FindMessages(_ context.Context, remoteJID string, limit int) ([]wa.Message, error) {
	f.asked = append(f.asked, remoteJID)
	f.limits = append(f.limits, limit)
	if msgs, ok := f.byJID[remoteJID]; ok {
		return msgs, nil
	}
	return nil, errors.New("no such conversation")
}

func (f *fakeSource) MarkRead(_ context.Context, keys []wa.MessageKey) error {
	f.read = append(f.read, keys...)
	return f.readErr
}

func msg(remote, id string, ts int64) wa.Message {
	return wa.Message{Key: wa.MessageKey{RemoteJID: remote, ID: id}, Timestamp: ts}
}

func TestRequestLimit(t *testing.T) {
	tests := []struct{ count, want int }{
		{1, 100}, {50, 100}, {80, 100}, {81, 101}, {500, 520}, {4980, 5000}, {10000, 5000},
	}
	for _, tt := range tests {
		if got := RequestLimit(tt.count); got != tt.want {
			t.Errorf("RequestLimit(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestReconcileFiltersDedupesSorts(t *testing.T) {
	const conv = "5551999998888@s.whatsapp.net"
	in := []wa.Message{
		msg(conv, "a", 100),
		msg("5511900000000@s.whatsapp.net", "x", 500),
		msg("555199998888@s.whatsapp.net", "b", 300),
		msg(conv, "a", 999),
		msg("777@lid", "c", 200),
		msg(conv, "d", 300),
	}
	out := Reconcile(in, conv, 10, jid.MapMapping{"777@lid": conv})

	want := []string{"b", "d", "c", "a"}
	if len(out) != len(want) {
		t.Fatalf("got %d messages, want %d: %+v", len(out), len(want), out)
	}
	for i, id := range want {
		if out[i].Key.ID != id {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Key.ID, id)
		}
	}
	if out[3].Timestamp != 100 {
		t.Errorf("duplicate kept the later copy (ts %d), want the first", out[3].Timestamp)
	}
}

func TestReconcileDedupesRecordsWithoutID(t *testing.T) {
	const conv = "5551999998888@s.whatsapp.net"
	noID := func(text string, ts int64) wa.Message {
		return wa.Message{
			Key:       wa.MessageKey{RemoteJID: conv},
			Content:   wa.Content{Type: "text", Text: text},
			Timestamp: ts,
		}
	}
	in := []wa.Message{noID("oi", 100), noID("oi", 100), noID("oi", 101), noID("tchau", 100)}
	out := Reconcile(in, conv, 10, nil)
	if len(out) != 3 {
		t.Fatalf("got %d messages, want 3: %+v", len(out), out)
	}
}

func TestReconcileNeverExceedsCount(t *testing.T) {
	var in []wa.Message
	for i := 0; i < 50; i++ {
		in = append(in, msg("1@s.whatsapp.net", string(rune('A'+i)), int64(i)))
	}
	out := Reconcile(in, "1@s.whatsapp.net", 7, nil)
	if len(out) != 7 {
		t.Fatalf("got %d, want 7", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Timestamp < out[i].Timestamp {
			t.Fatal("output not sorted descending")
		}
	}
}

func TestFetchMessagesMergesCounterpartAndLearns(t *testing.T) {
	const (
		aliasID = "12345@lid"
		phone   = "5551999998888@s.whatsapp.net"
	)
	withHint := msg(aliasID, "m2", 200)
	withHint.SenderPN = phone
	src := &fakeSource{byJID: map[string][]wa.Message{
		aliasID: {msg(aliasID, "m1", 100), withHint, msg("other@lid", "zz", 900)},
	}}
	cache := alias.New(store.NewMemKV(), nil)
	s := NewService(src, cache, nil)

	out, err := s.FetchMessages(context.Background(), aliasID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Key.ID != "m2" {
		t.Fatalf("out = %+v", out)
	}
	if src.limits[0] != 100 {
		t.Errorf("requested %d records, want 100", src.limits[0])
	}
	if v, ok := cache.Resolve(aliasID); !ok || v != phone {
		t.Errorf("alias not learned from history: %q, %v", v, ok)
	}

	// The learned counterpart is fetched too on the next call.
	src.byJID[phone] = []wa.Message{msg(phone, "m3", 300)}
	out, err = s.FetchMessages(context.Background(), aliasID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0].Key.ID != "m3" {
		t.Errorf("merged out = %+v", out)
	}
}

func TestFetchMessagesPropagatesPrimaryError(t *testing.T) {
	s := NewService(&fakeSource{}, alias.New(store.NewMemKV(), nil), nil)
	if _, err := s.FetchMessages(context.Background(), "1@s.whatsapp.net", 10); err == nil {
		t.Error("expected error from the primary fetch")
	}
	if out, err := s.FetchMessages(context.Background(), "1@s.whatsapp.net", 0); err != nil || out != nil {
		t.Errorf("count 0 = %v, %v", out, err)
	}
}

func TestMarkReadIsBestEffort(t *testing.T) {
	src := &fakeSource{readErr: errors.New("boom")}
	s := NewService(src, alias.New(store.NewMemKV(), nil), nil)
	mine := msg("1@s.whatsapp.net", "own", 1)
	mine.Key.FromMe = true
	s.MarkRead(context.Background(), []wa.Message{msg("1@s.whatsapp.net", "in", 2), mine})
	if len(src.read) != 1 || src.read[0].ID != "in" {
		t.Errorf("read keys = %+v, want only the incoming message", src.read)
	}
}
