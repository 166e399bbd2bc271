// Package gateway talks to the remote WhatsApp gateway, either directly or
// through the relay function that holds the gateway credentials.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the fixed per-request timeout of both transports.
const DefaultTimeout = 30 * time.Second

// Transport sends one request to the gateway and returns the raw response
// body. Non-2xx responses are returned as *StatusError.
type Transport interface {
	Send(ctx context.Context, method, path string, body any) ([]byte, error)
}

// StatusError is a non-2xx response from the gateway or the relay.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("gateway status %d: %s", e.Status, body)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsClientError reports whether err is a 400 or 404 from the gateway, the
// two statuses the gateway uses for unverifiable recipients.
func IsClientError(err error) bool {
	switch StatusOf(err) {
	case http.StatusBadRequest, http.StatusNotFound:
		return true
	}
	return false
}

// IsNotFound reports whether err is a 404 from the gateway.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// Direct calls the gateway REST API with the instance API key.
type Direct struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewDirect creates a direct transport. A zero timeout uses DefaultTimeout.
func NewDirect(baseURL, apiKey string, timeout time.Duration) *Direct {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Direct{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send implements Transport.
func (d *Direct) Send(ctx context.Context, method, path string, body any) ([]byte, error) {
	header := http.Header{}
	if d.apiKey != "" {
		header.Set("apikey", d.apiKey)
	}
	return do(ctx, d.httpClient, method, d.baseURL+path, header, body)
}

func do(ctx context.Context, client *http.Client, method, url string, header http.Header, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
