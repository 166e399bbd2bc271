package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// Relay actions understood by the relay function.
const (
	ActionFetchChats      = "fetch-chats"
	ActionFetchContacts   = "fetch-contacts"
	ActionConnectInstance = "connect-instance"
	ActionConnectionState = "connection-state"
	ActionSendText        = "send-text"
	ActionProxy           = "proxy"
)

var relayRoutes = []struct {
	prefix string
	action string
}{
	{"/chat/findChats/", ActionFetchChats},
	{"/chat/findContacts/", ActionFetchContacts},
	{"/instance/create", ActionConnectInstance},
	{"/instance/connect/", ActionConnectInstance},
	{"/instance/connectionState/", ActionConnectionState},
	{"/message/sendText/", ActionSendText},
}

// RelayAction maps a gateway path onto the relay action that serves it.
func RelayAction(path string) string {
	for _, r := range relayRoutes {
		if strings.HasPrefix(path, r.prefix) {
			return r.action
		}
	}
	return ActionProxy
}

// RelayRequest is the body posted to the relay function.
type RelayRequest struct {
	Action   string          `json:"action"`
	Instance string          `json:"instance"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Path     string          `json:"path,omitempty"`
	Method   string          `json:"method,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// Relay forwards gateway requests to the relay function.
type Relay struct {
	url        string
	token      string
	instance   string
	httpClient *http.Client
}

// NewRelay creates a relay transport posting to baseURL/function.
func NewRelay(baseURL, function, token, instance string, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	url := strings.TrimRight(baseURL, "/")
	if function != "" {
		url += "/" + strings.Trim(function, "/")
	}
	return &Relay{
		url:        url,
		token:      token,
		instance:   instance,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send implements Transport.
func (r *Relay) Send(ctx context.Context, method, path string, body any) ([]byte, error) {
	var raw json.RawMessage
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode relay body: %w", err)
		}
		raw = b
	}
	req := RelayRequest{
		Action:   RelayAction(path),
		Instance: r.instance,
		Payload:  raw,
		Path:     path,
		Method:   method,
	}
	if req.Action == ActionProxy {
		req.Payload, req.Body = nil, raw
	}

	header := http.Header{}
	if r.token != "" {
		header.Set("Authorization", "Bearer "+r.token)
	}
	return do(ctx, r.httpClient, http.MethodPost, r.url, header, req)
}

// Options selects and configures the transport.
type Options struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RelayURL      string
	RelayFunction string
	RelayToken    string
	RuntimeHost   string
	Instance      string
}

// New returns the relay transport when a relay is configured and the runtime
// host is not a local development host, and the direct transport otherwise.
func New(opts Options) Transport {
	if UseRelay(opts.RelayURL, opts.RuntimeHost) {
		return NewRelay(opts.RelayURL, opts.RelayFunction, opts.RelayToken, opts.Instance, opts.Timeout)
	}
	return NewDirect(opts.BaseURL, opts.APIKey, opts.Timeout)
}

// UseRelay decides the routing. An empty runtime host is read from the OS.
func UseRelay(relayURL, runtimeHost string) bool {
	if strings.TrimSpace(relayURL) == "" {
		return false
	}
	if runtimeHost == "" {
		runtimeHost, _ = os.Hostname()
	}
	return !IsLocalHost(runtimeHost)
}

// IsLocalHost reports whether host names a local development machine.
func IsLocalHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	switch host {
	case "localhost", "0.0.0.0", "::":
		return true
	}
	if strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}
