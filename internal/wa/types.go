package wa

// MessageKey identifies a message inside a conversation.
type MessageKey struct {
	RemoteJID    string `json:"remote_jid"`
	FromMe       bool   `json:"from_me"`
	ID           string `json:"id"`
	Participant  string `json:"participant,omitempty"`
	SenderPN     string `json:"sender_pn,omitempty"`
	RemoteJIDAlt string `json:"remote_jid_alt,omitempty"`
}

// Content is the typed payload of a message.
type Content struct {
	Type     string `json:"type"` // text, image, video, audio, document, sticker, contact, location, unknown
	Text     string `json:"text,omitempty"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// Message is a received or sent message as reported by the gateway.
type Message struct {
	Key MessageKey `json:"key"`

	// Record-level identity hints; the gateway places them outside the key
	// in some releases.
	SenderPN     string `json:"sender_pn,omitempty"`
	RemoteJIDAlt string `json:"remote_jid_alt,omitempty"`
	Participant  string `json:"participant,omitempty"`
	User         string `json:"user,omitempty"`

	PushName  string  `json:"push_name,omitempty"`
	Content   Content `json:"content"`
	Timestamp int64   `json:"timestamp"` // unix seconds
}

// Contact is a directory entry.
type Contact struct {
	ID           string `json:"id"`
	AltID        string `json:"alt_id,omitempty"`
	VerifiedName string `json:"verified_name,omitempty"`
	Name         string `json:"name,omitempty"`
	PushName     string `json:"push_name,omitempty"`
}

// Chat is a raw chat row from the gateway's chat list.
type Chat struct {
	ID          string   `json:"id"`
	AltID       string   `json:"alt_id,omitempty"`
	Name        string   `json:"name,omitempty"`
	UnreadCount int      `json:"unread_count"`
	UpdatedAt   int64    `json:"updated_at"`
	LastMessage *Message `json:"last_message,omitempty"`
}

// Conversation is a synthesized inbox entry.
type Conversation struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	UnreadCount     int    `json:"unread_count"`
	LastMessage     string `json:"last_message,omitempty"`
	LastMessageType string `json:"last_message_type,omitempty"`
	Timestamp       int64  `json:"timestamp"`
	IsGroup         bool   `json:"is_group"`
}

// Quoted is the reply context attached to an outbound text.
type Quoted struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remote_jid"`
	FromMe    bool   `json:"from_me"`
	Text      string `json:"text,omitempty"`
}

// Media is an outbound media payload.
type Media struct {
	Type     string `json:"type"` // image, video, audio, document
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Data     string `json:"data"` // base64 or URL
}

// QRCode is returned by the connect flow while the instance is not paired.
type QRCode struct {
	Code        string `json:"code,omitempty"`
	Base64      string `json:"base64,omitempty"`
	PairingCode string `json:"pairing_code,omitempty"`
	State       string `json:"state,omitempty"`
}
