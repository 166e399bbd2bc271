package wa

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name     string
		record   string
		wantType string
		wantText string
	}{
		{"conversation", `{"message":{"conversation":"hello"}}`, "text", "hello"},
		{"extended text", `{"message":{"extendedTextMessage":{"text":"extended"}}}`, "text", "extended"},
		{"image with caption", `{"message":{"imageMessage":{"caption":"look","mimetype":"image/jpeg"}}}`, "image", ""},
		{"video", `{"message":{"videoMessage":{}}}`, "video", ""},
		{"audio", `{"message":{"audioMessage":{}}}`, "audio", ""},
		{"document", `{"message":{"documentMessage":{"fileName":"a.pdf"}}}`, "document", ""},
		{"sticker", `{"message":{"stickerMessage":{}}}`, "sticker", ""},
		{"ephemeral wrapper", `{"message":{"ephemeralMessage":{"message":{"conversation":"inner"}}}}`, "text", "inner"},
		{"type label only", `{"messageType":"imageMessage","message":{}}`, "image", ""},
		{"top level body", `{"body":"plain"}`, "text", "plain"},
		{"empty", `{}`, "unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ParseMessage(gjson.Parse(tt.record))
			if msg.Content.Type != tt.wantType {
				t.Errorf("type = %q, want %q", msg.Content.Type, tt.wantType)
			}
			if msg.Content.Text != tt.wantText {
				t.Errorf("text = %q, want %q", msg.Content.Text, tt.wantText)
			}
		})
	}
}

func TestParseMessageKeyAndHints(t *testing.T) {
	record := `{
		"key": {"remoteJid":"12345@lid","fromMe":false,"id":"ABC","participant":"p@s.whatsapp.net","senderPn":"5551999998888@s.whatsapp.net"},
		"remoteJidAlt": "5551999998888@s.whatsapp.net",
		"pushName": "Maria",
		"message": {"conversation":"oi"},
		"messageTimestamp": "1700000000"
	}`
	msg := ParseMessage(gjson.Parse(record))

	if msg.Key.RemoteJID != "12345@lid" || msg.Key.ID != "ABC" || msg.Key.FromMe {
		t.Errorf("key = %+v", msg.Key)
	}
	if msg.Key.SenderPN != "5551999998888@s.whatsapp.net" {
		t.Errorf("key sender pn = %q", msg.Key.SenderPN)
	}
	if msg.RemoteJIDAlt != "5551999998888@s.whatsapp.net" {
		t.Errorf("remote jid alt = %q", msg.RemoteJIDAlt)
	}
	if msg.PushName != "Maria" {
		t.Errorf("push name = %q, want Maria", msg.PushName)
	}
	if msg.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d, want 1700000000", msg.Timestamp)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{"number", `1700000000`, 1700000000},
		{"milliseconds", `1700000000123`, 1700000000},
		{"numeric string", `"1700000000"`, 1700000000},
		{"long object", `{"low":1700000000,"high":0,"unsigned":true}`, 1700000000},
		{"rfc3339", `"2023-11-14T22:13:20Z"`, 1700000000},
		{"garbage", `"yesterday"`, 0},
		{"null", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTimestamp(gjson.Parse(tt.raw)); got != tt.want {
				t.Errorf("ParseTimestamp(%s) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseContactPrefersJID(t *testing.T) {
	c := ParseContact(gjson.Parse(`{"id":"clx123","remoteJid":"5551999998888@s.whatsapp.net","pushName":"Ana","lid":"777@lid"}`))
	if c.ID != "5551999998888@s.whatsapp.net" {
		t.Errorf("id = %q, want the remote jid", c.ID)
	}
	if c.AltID != "777@lid" {
		t.Errorf("alt id = %q, want 777@lid", c.AltID)
	}
	if c.PushName != "Ana" {
		t.Errorf("push name = %q, want Ana", c.PushName)
	}
}

func TestParseChatLastMessage(t *testing.T) {
	c := ParseChat(gjson.Parse(`{
		"remoteJid":"999@lid","unreadCount":3,"updatedAt":"2023-11-14T22:00:00Z",
		"lastMessage":{"key":{"id":"m9"},"message":{"conversation":"tchau"},"messageTimestamp":1700000000}
	}`))
	if c.ID != "999@lid" || c.UnreadCount != 3 {
		t.Errorf("chat = %+v", c)
	}
	if c.LastMessage == nil || c.LastMessage.Key.RemoteJID != "999@lid" {
		t.Fatalf("last message = %+v, want remote jid filled from the chat", c.LastMessage)
	}
	if c.UpdatedAt != 1700000000 {
		t.Errorf("updated at = %d, want the newer last message timestamp", c.UpdatedAt)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		c    Content
		want string
	}{
		{Content{Type: "text", Text: "hi"}, "hi"},
		{Content{Type: "image", Caption: "look"}, "look"},
		{Content{Type: "image"}, "[image]"},
		{Content{Type: "document", FileName: "a.pdf"}, "[document] a.pdf"},
		{Content{Type: "unknown"}, ""},
	}
	for _, tt := range tests {
		if got := Preview(tt.c); got != tt.want {
			t.Errorf("Preview(%+v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}
