package store

// Contact is a directory entry persisted by contact sync.
type Contact struct {
	JID          string
	AltJID       string
	Name         string
	PushName     string
	VerifiedName string
	UpdatedAt    int64
}

// Outbox statuses.
const (
	OutboxQueued  = "queued"
	OutboxSending = "sending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxEntry is one journaled outbound send.
type OutboxEntry struct {
	ID             int64  `json:"id"`
	ClientMsgID    string `json:"client_msg_id"`
	Kind           string `json:"kind"` // text or media
	Target         string `json:"target"`
	ResolvedTarget string `json:"resolved_target,omitempty"`
	Body           string `json:"body,omitempty"`
	Status         string `json:"status"`
	Strategy       string `json:"strategy,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ServerMsgID    string `json:"server_msg_id,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}
