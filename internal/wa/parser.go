package wa

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ParseMessage normalizes one gateway message record.
func ParseMessage(r gjson.Result) Message {
	body := r.Get("message")
	return Message{
		Key: MessageKey{
			RemoteJID:    firstString(r, "key.remoteJid", "remoteJid", "key.remote_jid", "chatId"),
			FromMe:       r.Get("key.fromMe").Bool() || r.Get("fromMe").Bool(),
			ID:           firstString(r, "key.id", "id", "messageId"),
			Participant:  firstString(r, "key.participant"),
			SenderPN:     firstString(r, "key.senderPn"),
			RemoteJIDAlt: firstString(r, "key.remoteJidAlt"),
		},
		SenderPN:     firstString(r, "senderPn"),
		RemoteJIDAlt: firstString(r, "remoteJidAlt"),
		Participant:  firstString(r, "participant"),
		User:         firstString(r, "user"),
		PushName:     firstString(r, "pushName", "notifyName"),
		Content:      extractContent(body, r.Get("messageType").String(), r),
		Timestamp:    ParseTimestamp(firstResult(r, "messageTimestamp", "timestamp", "t", "createdAt")),
	}
}

// ParseContact normalizes one directory record.
func ParseContact(r gjson.Result) Contact {
	return Contact{
		ID:           identifierField(r, "remoteJid", "jid", "id"),
		AltID:        firstString(r, "lid", "remoteJidAlt", "jidAlt", "senderPn", "pn", "phoneNumber"),
		VerifiedName: firstString(r, "verifiedName"),
		Name:         firstString(r, "name"),
		PushName:     firstString(r, "pushName", "notify"),
	}
}

// ParseChat normalizes one raw chat row.
func ParseChat(r gjson.Result) Chat {
	c := Chat{
		ID:          identifierField(r, "remoteJid", "jid", "id"),
		AltID:       firstString(r, "remoteJidAlt", "lid", "pn"),
		Name:        firstString(r, "name", "pushName", "subject"),
		UnreadCount: int(firstResult(r, "unreadCount", "unreadMessages", "unread").Int()),
		UpdatedAt:   ParseTimestamp(firstResult(r, "updatedAt", "lastMessageTimestamp", "conversationTimestamp", "lastMessage.messageTimestamp")),
	}
	if lm := r.Get("lastMessage"); lm.IsObject() {
		msg := ParseMessage(lm)
		if msg.Key.RemoteJID == "" {
			msg.Key.RemoteJID = c.ID
		}
		c.LastMessage = &msg
		if msg.Timestamp > c.UpdatedAt {
			c.UpdatedAt = msg.Timestamp
		}
	}
	return c
}

// ParseTimestamp coerces the gateway's timestamp encodings into unix seconds.
// Numbers, numeric strings, protobuf Long objects, millisecond values and
// RFC3339 strings are accepted; anything else is zero.
func ParseTimestamp(r gjson.Result) int64 {
	switch r.Type {
	case gjson.Number:
		return seconds(int64(r.Num))
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return seconds(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return seconds(int64(f))
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.Unix()
		}
	case gjson.JSON:
		if low := r.Get("low"); low.Exists() {
			return seconds(r.Get("high").Int()<<32 | int64(uint32(low.Int())))
		}
	}
	return 0
}

// Preview renders the content as a single line for the inbox.
func Preview(c Content) string {
	if c.Text != "" {
		return c.Text
	}
	if c.Caption != "" {
		return c.Caption
	}
	switch c.Type {
	case "", "text", "unknown":
		return ""
	case "document":
		if c.FileName != "" {
			return "[document] " + c.FileName
		}
	}
	return "[" + c.Type + "]"
}

func seconds(n int64) int64 {
	if n > 1e12 {
		return n / 1000
	}
	return n
}

func extractContent(msg gjson.Result, messageType string, record gjson.Result) Content {
	for _, wrapper := range []string{"ephemeralMessage.message", "viewOnceMessage.message", "viewOnceMessageV2.message", "documentWithCaptionMessage.message"} {
		if inner := msg.Get(wrapper); inner.IsObject() {
			return extractContent(inner, messageType, record)
		}
	}
	switch {
	case msg.Get("conversation").String() != "":
		return Content{Type: "text", Text: msg.Get("conversation").String()}
	case msg.Get("extendedTextMessage").Exists():
		return Content{Type: "text", Text: msg.Get("extendedTextMessage.text").String()}
	case msg.Get("imageMessage").Exists():
		return mediaContent("image", msg.Get("imageMessage"))
	case msg.Get("videoMessage").Exists():
		return mediaContent("video", msg.Get("videoMessage"))
	case msg.Get("audioMessage").Exists():
		return mediaContent("audio", msg.Get("audioMessage"))
	case msg.Get("pttMessage").Exists():
		return mediaContent("audio", msg.Get("pttMessage"))
	case msg.Get("documentMessage").Exists():
		return mediaContent("document", msg.Get("documentMessage"))
	case msg.Get("stickerMessage").Exists():
		return mediaContent("sticker", msg.Get("stickerMessage"))
	case msg.Get("contactMessage").Exists(), msg.Get("contactsArrayMessage").Exists():
		return Content{Type: "contact", Text: msg.Get("contactMessage.displayName").String()}
	case msg.Get("locationMessage").Exists(), msg.Get("liveLocationMessage").Exists():
		return Content{Type: "location"}
	}
	if text := firstString(record, "body", "text"); text != "" {
		return Content{Type: "text", Text: text}
	}
	return Content{Type: typeFromName(messageType)}
}

func mediaContent(kind string, m gjson.Result) Content {
	return Content{
		Type:     kind,
		Caption:  m.Get("caption").String(),
		MimeType: m.Get("mimetype").String(),
		FileName: m.Get("fileName").String(),
	}
}

// typeFromName maps the gateway's messageType label onto a content type.
func typeFromName(name string) string {
	switch name {
	case "conversation", "extendedTextMessage":
		return "text"
	case "imageMessage":
		return "image"
	case "videoMessage":
		return "video"
	case "audioMessage", "pttMessage":
		return "audio"
	case "documentMessage", "documentWithCaptionMessage":
		return "document"
	case "stickerMessage":
		return "sticker"
	case "contactMessage", "contactsArrayMessage":
		return "contact"
	case "locationMessage", "liveLocationMessage":
		return "location"
	}
	return "unknown"
}

func firstResult(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String {
			if s := strings.TrimSpace(v.Str); s != "" {
				return s
			}
		}
	}
	return ""
}

// identifierField prefers a value that looks like an addressed identifier;
// newer gateway releases put a database id in "id" and the JID elsewhere.
func identifierField(r gjson.Result, paths ...string) string {
	fallback := ""
	for _, p := range paths {
		s := firstString(r, p)
		if s == "" {
			continue
		}
		if strings.ContainsRune(s, '@') {
			return s
		}
		if fallback == "" {
			fallback = s
		}
	}
	return fallback
}
