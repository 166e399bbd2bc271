package api

import (
	"encoding/json"

	"github.com/matheus3301/wppbridge/internal/inbox"
	"github.com/matheus3301/wppbridge/internal/outbox"
	"github.com/matheus3301/wppbridge/internal/store"
	intsync "github.com/matheus3301/wppbridge/internal/sync"
	"github.com/matheus3301/wppbridge/internal/wa"
)

type ConnectRequest struct{}

type ConnectResponse struct {
	State  string    `json:"state"`
	QRCode wa.QRCode `json:"qr_code"`
}

type DisconnectRequest struct{}

type DisconnectResponse struct {
	State string `json:"state"`
}

type CheckStatusRequest struct{}

type CheckStatusResponse struct {
	Instance         string      `json:"instance"`
	State            string      `json:"state"`
	GatewayError     string      `json:"gateway_error,omitempty"`
	UptimeMs         int64       `json:"uptime_ms"`
	Contacts         int64       `json:"contacts"`
	LearnedAliases   int         `json:"learned_aliases"`
	ContactsSyncedAt int64       `json:"contacts_synced_at,omitempty"`
	Inbox            inbox.Stats `json:"inbox"`
}

// WatchEventsRequest filters the event stream by kind prefix; empty means all.
type WatchEventsRequest struct {
	Prefix string `json:"prefix"`
}

type EventEnvelope struct {
	ID               string          `json:"id"`
	Kind             string          `json:"kind"`
	OccurredAtUnixMs int64           `json:"occurred_at_unix_ms"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

type ListChatsRequest struct{}

type ListChatsResponse struct {
	Conversations []wa.Conversation `json:"conversations"`
}

type SyncContactsRequest struct{}

type SyncContactsResponse struct {
	Result intsync.Result `json:"result"`
}

type ResolveNameRequest struct {
	ID       string `json:"id"`
	Fallback string `json:"fallback,omitempty"`
}

type ResolveNameResponse struct {
	Name   string `json:"name"`
	Custom string `json:"custom,omitempty"`
}

// SetCustomNameRequest sets an override; an empty Name removes it.
type SetCustomNameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SetCustomNameResponse struct{}

type ListMessagesRequest struct {
	ConversationID string `json:"conversation_id"`
	Count          int    `json:"count"`
	MarkRead       bool   `json:"mark_read,omitempty"`
}

type ListMessagesResponse struct {
	Messages []wa.Message `json:"messages"`
}

type SendTextRequest struct {
	Target string     `json:"target"`
	Text   string     `json:"text"`
	Quoted *wa.Quoted `json:"quoted,omitempty"`
}

type SendMediaRequest struct {
	Target string   `json:"target"`
	Media  wa.Media `json:"media"`
}

type SendResponse struct {
	Receipt outbox.Receipt `json:"receipt"`
}

type ListOutboxRequest struct {
	Limit int `json:"limit"`
}

type ListOutboxResponse struct {
	Entries []store.OutboxEntry `json:"entries"`
}
