package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/wppbridge/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, service, method string, req any) (*Resp, error) {
	resp := new(Resp)
	if err := c.conn.Invoke(ctx, "/"+service+"/"+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Connect(ctx context.Context) (*api.ConnectResponse, error) {
	return invoke[api.ConnectResponse](ctx, c, api.SessionServiceName, "Connect", &api.ConnectRequest{})
}

func (c *Client) Disconnect(ctx context.Context) (*api.DisconnectResponse, error) {
	return invoke[api.DisconnectResponse](ctx, c, api.SessionServiceName, "Disconnect", &api.DisconnectRequest{})
}

func (c *Client) CheckStatus(ctx context.Context) (*api.CheckStatusResponse, error) {
	return invoke[api.CheckStatusResponse](ctx, c, api.SessionServiceName, "CheckStatus", &api.CheckStatusRequest{})
}

func (c *Client) ListChats(ctx context.Context) (*api.ListChatsResponse, error) {
	return invoke[api.ListChatsResponse](ctx, c, api.InboxServiceName, "ListChats", &api.ListChatsRequest{})
}

func (c *Client) SyncContacts(ctx context.Context) (*api.SyncContactsResponse, error) {
	return invoke[api.SyncContactsResponse](ctx, c, api.InboxServiceName, "SyncContacts", &api.SyncContactsRequest{})
}

func (c *Client) ResolveName(ctx context.Context, req *api.ResolveNameRequest) (*api.ResolveNameResponse, error) {
	return invoke[api.ResolveNameResponse](ctx, c, api.InboxServiceName, "ResolveName", req)
}

func (c *Client) SetCustomName(ctx context.Context, req *api.SetCustomNameRequest) (*api.SetCustomNameResponse, error) {
	return invoke[api.SetCustomNameResponse](ctx, c, api.InboxServiceName, "SetCustomName", req)
}

func (c *Client) ListMessages(ctx context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error) {
	return invoke[api.ListMessagesResponse](ctx, c, api.MessageServiceName, "ListMessages", req)
}

func (c *Client) SendText(ctx context.Context, req *api.SendTextRequest) (*api.SendResponse, error) {
	return invoke[api.SendResponse](ctx, c, api.MessageServiceName, "SendText", req)
}

func (c *Client) SendMedia(ctx context.Context, req *api.SendMediaRequest) (*api.SendResponse, error) {
	return invoke[api.SendResponse](ctx, c, api.MessageServiceName, "SendMedia", req)
}

func (c *Client) ListOutbox(ctx context.Context, req *api.ListOutboxRequest) (*api.ListOutboxResponse, error) {
	return invoke[api.ListOutboxResponse](ctx, c, api.MessageServiceName, "ListOutbox", req)
}

// WatchEvents calls fn for every daemon event whose kind starts with prefix
// until ctx is done, the stream ends or fn returns an error.
func (c *Client) WatchEvents(ctx context.Context, prefix string, fn func(*api.EventEnvelope) error) error {
	desc := &api.SessionServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, "/"+api.SessionServiceName+"/"+desc.StreamName)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&api.WatchEventsRequest{Prefix: prefix}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		env := new(api.EventEnvelope)
		if err := stream.RecvMsg(env); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(env); err != nil {
			return err
		}
	}
}
