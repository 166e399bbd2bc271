package delivery

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/wa"
)

// Variant selects how much of the payload is sent.
type Variant int

const (
	// Full carries every skip-verification flag any gateway release honored.
	Full Variant = iota
	// Minimal drops the optional flags, some releases reject them.
	Minimal
	// QuotedOnly sends the text with only the reply context attached.
	QuotedOnly
)

func (v Variant) String() string {
	switch v {
	case Full:
		return "full"
	case Minimal:
		return "minimal"
	case QuotedOnly:
		return "quoted"
	}
	return "unknown"
}

// Number renders a target the way the send endpoints expect it: phone
// targets as bare digits, alias and group targets as full identifiers.
func Number(target string) string {
	if jid.IsPhone(target) {
		return jid.Digits(target)
	}
	if phone, ok := jid.AsPhone(target); ok {
		return jid.Digits(phone)
	}
	return jid.Bare(target)
}

func verificationFlags(p map[string]any) {
	p["checkContact"] = false
	p["skipNumberCheck"] = true
	p["options"] = map[string]any{
		"checkContact":     false,
		"skipVerification": true,
		"presence":         "composing",
	}
}

func quotedPayload(q *wa.Quoted) map[string]any {
	return map[string]any{
		"key": map[string]any{
			"remoteJid": q.RemoteJID,
			"fromMe":    q.FromMe,
			"id":        q.ID,
		},
		"message": map[string]any{"conversation": q.Text},
	}
}

// TextPayload builds the sendText body for target.
func TextPayload(target, text string, quoted *wa.Quoted, v Variant) map[string]any {
	p := map[string]any{
		"number": Number(target),
		"text":   text,
	}
	switch v {
	case Full:
		verificationFlags(p)
		p["textMessage"] = map[string]any{"text": text}
		if quoted != nil {
			p["quoted"] = quotedPayload(quoted)
		}
	case QuotedOnly:
		if quoted != nil {
			p["quoted"] = quotedPayload(quoted)
		}
	}
	return p
}

// MediaPayload builds the sendMedia body for target.
func MediaPayload(target string, m wa.Media, v Variant) map[string]any {
	p := map[string]any{
		"number":    Number(target),
		"mediatype": m.Type,
		"mimetype":  m.MimeType,
		"media":     m.Data,
	}
	if m.FileName != "" {
		p["fileName"] = m.FileName
	}
	if m.Caption != "" {
		p["caption"] = m.Caption
	}
	if v == Full {
		verificationFlags(p)
		p["mediaMessage"] = map[string]any{
			"mediatype": m.Type,
			"media":     m.Data,
			"fileName":  m.FileName,
			"caption":   m.Caption,
		}
	}
	return p
}

// PrepareMedia fills in the mime type, media type and file name of inline
// base64 media by sniffing its content. URL media is left as given, with a
// document type when none was set.
func PrepareMedia(m wa.Media) wa.Media {
	data := m.Data
	if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+len(";base64,"):]
		m.Data = data
	}
	if m.MimeType == "" && !isURL(data) {
		if raw, err := base64.StdEncoding.DecodeString(data); err == nil {
			mt := mimetype.Detect(raw)
			m.MimeType = mt.String()
			if i := strings.IndexByte(m.MimeType, ';'); i >= 0 {
				m.MimeType = m.MimeType[:i]
			}
			if m.FileName == "" && mediaType(m.MimeType) == "document" {
				m.FileName = "file" + mt.Extension()
			}
		}
	}
	if m.Type == "" {
		m.Type = mediaType(m.MimeType)
	}
	return m
}

func mediaType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	}
	return "document"
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
