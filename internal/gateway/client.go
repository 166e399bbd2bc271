package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/matheus3301/wppbridge/internal/wa"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Client exposes the gateway operations of one instance.
type Client struct {
	t        Transport
	instance string
	logger   *zap.Logger
}

// NewClient creates a client for instance over t.
func NewClient(t Transport, instance string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{t: t, instance: instance, logger: logger}
}

// Instance returns the instance name the client addresses.
func (c *Client) Instance() string { return c.instance }

func (c *Client) path(route string) string {
	return route + url.PathEscape(c.instance)
}

// route is one way of reaching an endpoint.
type route struct {
	method string
	path   string
	body   any
}

// sendWithLegacy tries the primary route and, on 404, the legacy one.
func (c *Client) sendWithLegacy(ctx context.Context, primary, legacy route) ([]byte, error) {
	body, err := c.t.Send(ctx, primary.method, primary.path, primary.body)
	if err == nil || !IsNotFound(err) {
		return body, err
	}
	c.logger.Debug("primary route not found, trying legacy route",
		zap.String("path", primary.path), zap.String("legacy", legacy.method+" "+legacy.path))
	return c.t.Send(ctx, legacy.method, legacy.path, legacy.body)
}

// FetchChats lists the raw chat rows.
func (c *Client) FetchChats(ctx context.Context) ([]wa.Chat, error) {
	p := c.path("/chat/findChats/")
	body, err := c.sendWithLegacy(ctx,
		route{http.MethodPost, p, map[string]any{}},
		route{http.MethodGet, p, nil})
	if err != nil {
		return nil, fmt.Errorf("fetch chats: %w", err)
	}
	return wa.DecodeChats(body), nil
}

// FetchContacts lists the contact directory.
func (c *Client) FetchContacts(ctx context.Context) ([]wa.Contact, error) {
	p := c.path("/chat/findContacts/")
	body, err := c.sendWithLegacy(ctx,
		route{http.MethodPost, p, map[string]any{"where": map[string]any{}}},
		route{http.MethodGet, p, nil})
	if err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	return wa.DecodeContacts(body), nil
}

// FindContact looks one contact up by identifier; nil when unknown.
func (c *Client) FindContact(ctx context.Context, id string) (*wa.Contact, error) {
	body, err := c.t.Send(ctx, http.MethodPost, c.path("/chat/findContacts/"),
		map[string]any{"where": map[string]any{"id": id, "remoteJid": id}})
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}
	contacts := wa.DecodeContacts(body)
	if len(contacts) == 0 {
		return nil, nil
	}
	for i := range contacts {
		if contacts[i].ID == id || contacts[i].AltID == id {
			return &contacts[i], nil
		}
	}
	return &contacts[0], nil
}

// FindMessages fetches up to limit messages of a conversation. The gateway's
// own filtering is unreliable, so callers must filter the result again.
func (c *Client) FindMessages(ctx context.Context, remoteJID string, limit int) ([]wa.Message, error) {
	p := c.path("/chat/findMessages/")
	q := url.Values{"remoteJid": {remoteJID}, "limit": {strconv.Itoa(limit)}}
	body, err := c.sendWithLegacy(ctx,
		route{http.MethodPost, p, map[string]any{
			"where":  map[string]any{"key": map[string]any{"remoteJid": remoteJID}},
			"limit":  limit,
			"offset": limit,
			"page":   1,
		}},
		route{http.MethodGet, p + "?" + q.Encode(), nil})
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return wa.DecodeMessages(body), nil
}

// RecentMessages fetches the newest messages across all conversations.
func (c *Client) RecentMessages(ctx context.Context, limit int) ([]wa.Message, error) {
	body, err := c.t.Send(ctx, http.MethodPost, c.path("/chat/findMessages/"),
		map[string]any{"where": map[string]any{}, "limit": limit, "offset": limit, "page": 1})
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return wa.DecodeMessages(body), nil
}

// SendResult is the gateway's acknowledgement of a send.
type SendResult struct {
	MessageID string
	RemoteJID string
	Status    string
}

func parseSendResult(body []byte) SendResult {
	r := gjson.ParseBytes(body)
	return SendResult{
		MessageID: r.Get("key.id").String(),
		RemoteJID: r.Get("key.remoteJid").String(),
		Status:    r.Get("status").String(),
	}
}

// SendText posts a prepared text payload.
func (c *Client) SendText(ctx context.Context, payload map[string]any) (SendResult, error) {
	body, err := c.t.Send(ctx, http.MethodPost, c.path("/message/sendText/"), payload)
	if err != nil {
		return SendResult{}, err
	}
	return parseSendResult(body), nil
}

// SendMedia posts a prepared media payload.
func (c *Client) SendMedia(ctx context.Context, payload map[string]any) (SendResult, error) {
	body, err := c.t.Send(ctx, http.MethodPost, c.path("/message/sendMedia/"), payload)
	if err != nil {
		return SendResult{}, err
	}
	return parseSendResult(body), nil
}

// ProfilePicture requests the profile picture URL of number. The request
// also makes the gateway refresh its cached profile for that identity.
func (c *Client) ProfilePicture(ctx context.Context, number string) (string, error) {
	body, err := c.t.Send(ctx, http.MethodPost, c.path("/chat/fetchProfilePictureUrl/"),
		map[string]any{"number": number})
	if err != nil {
		return "", fmt.Errorf("profile picture: %w", err)
	}
	return gjson.GetBytes(body, "profilePictureUrl").String(), nil
}

// ConnectionState returns the instance connection state ("open",
// "connecting", "close", ...).
func (c *Client) ConnectionState(ctx context.Context) (string, error) {
	body, err := c.t.Send(ctx, http.MethodGet, c.path("/instance/connectionState/"), nil)
	if err != nil {
		return "", fmt.Errorf("connection state: %w", err)
	}
	r := gjson.ParseBytes(body)
	for _, p := range []string{"instance.state", "state", "instance.status"} {
		if s := r.Get(p).String(); s != "" {
			return s, nil
		}
	}
	return "", nil
}

// Connect starts pairing and returns the QR code. An unknown instance is
// created first.
func (c *Client) Connect(ctx context.Context) (wa.QRCode, error) {
	body, err := c.t.Send(ctx, http.MethodGet, c.path("/instance/connect/"), nil)
	if IsNotFound(err) {
		c.logger.Info("instance not found, creating", zap.String("instance", c.instance))
		body, err = c.t.Send(ctx, http.MethodPost, "/instance/create", map[string]any{
			"instanceName": c.instance,
			"qrcode":       true,
			"integration":  "WHATSAPP-BAILEYS",
		})
	}
	if err != nil {
		return wa.QRCode{}, fmt.Errorf("connect: %w", err)
	}
	return parseQRCode(body), nil
}

func parseQRCode(body []byte) wa.QRCode {
	r := gjson.ParseBytes(body)
	if q := r.Get("qrcode"); q.IsObject() {
		r = q
	}
	return wa.QRCode{
		Code:        r.Get("code").String(),
		Base64:      r.Get("base64").String(),
		PairingCode: r.Get("pairingCode").String(),
		State:       gjson.GetBytes(body, "instance.state").String(),
	}
}

// Logout disconnects the paired device.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.t.Send(ctx, http.MethodDelete, c.path("/instance/logout/"), nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// MarkRead marks messages as read.
func (c *Client) MarkRead(ctx context.Context, keys []wa.MessageKey) error {
	if len(keys) == 0 {
		return nil
	}
	read := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		read = append(read, map[string]any{"remoteJid": k.RemoteJID, "fromMe": k.FromMe, "id": k.ID})
	}
	if _, err := c.t.Send(ctx, http.MethodPost, c.path("/chat/markMessageAsRead/"),
		map[string]any{"readMessages": read}); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
