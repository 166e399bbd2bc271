package bus

import "time"

// Event kinds. Subscribers filter by prefix, e.g. "message." or "session.".
const (
	KindStatusChanged  = "session.status_changed"
	KindInboxRefreshed = "inbox.refreshed"
	KindContactsSynced = "sync.contacts"
	KindOutboxQueued   = "message.queued"
	KindSendAck        = "message.send_ack"
	KindSendFailed     = "message.send_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}
