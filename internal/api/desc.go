package api

import (
	"context"

	"google.golang.org/grpc"
)

// Service names on the wire.
const (
	SessionServiceName = "wppbridge.v1.SessionService"
	InboxServiceName   = "wppbridge.v1.InboxService"
	MessageServiceName = "wppbridge.v1.MessageService"
)

// SessionServer is the server API for SessionService.
type SessionServer interface {
	Connect(context.Context, *ConnectRequest) (*ConnectResponse, error)
	Disconnect(context.Context, *DisconnectRequest) (*DisconnectResponse, error)
	CheckStatus(context.Context, *CheckStatusRequest) (*CheckStatusResponse, error)
	WatchEvents(*WatchEventsRequest, EventStream) error
}

// InboxServer is the server API for InboxService.
type InboxServer interface {
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	SyncContacts(context.Context, *SyncContactsRequest) (*SyncContactsResponse, error)
	ResolveName(context.Context, *ResolveNameRequest) (*ResolveNameResponse, error)
	SetCustomName(context.Context, *SetCustomNameRequest) (*SetCustomNameResponse, error)
}

// MessageServer is the server API for MessageService.
type MessageServer interface {
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SendText(context.Context, *SendTextRequest) (*SendResponse, error)
	SendMedia(context.Context, *SendMediaRequest) (*SendResponse, error)
	ListOutbox(context.Context, *ListOutboxRequest) (*ListOutboxResponse, error)
}

// EventStream is the server side of WatchEvents.
type EventStream interface {
	Send(*EventEnvelope) error
	Context() context.Context
}

type eventStream struct {
	grpc.ServerStream
}

func (s eventStream) Send(e *EventEnvelope) error { return s.SendMsg(e) }

// unary builds a method descriptor around a typed handler.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			s := srv.(S)
			if interceptor == nil {
				return call(s, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				return call(s, ctx, r.(*Req))
			})
		},
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "Connect", SessionServer.Connect),
		unary(SessionServiceName, "Disconnect", SessionServer.Disconnect),
		unary(SessionServiceName, "CheckStatus", SessionServer.CheckStatus),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				req := new(WatchEventsRequest)
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				return srv.(SessionServer).WatchEvents(req, eventStream{stream})
			},
		},
	},
}

var InboxServiceDesc = grpc.ServiceDesc{
	ServiceName: InboxServiceName,
	HandlerType: (*InboxServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(InboxServiceName, "ListChats", InboxServer.ListChats),
		unary(InboxServiceName, "SyncContacts", InboxServer.SyncContacts),
		unary(InboxServiceName, "ResolveName", InboxServer.ResolveName),
		unary(InboxServiceName, "SetCustomName", InboxServer.SetCustomName),
	},
}

var MessageServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageServiceName, "ListMessages", MessageServer.ListMessages),
		unary(MessageServiceName, "SendText", MessageServer.SendText),
		unary(MessageServiceName, "SendMedia", MessageServer.SendMedia),
		unary(MessageServiceName, "ListOutbox", MessageServer.ListOutbox),
	},
}

// Register registers all services on srv.
func Register(srv *grpc.Server, session SessionServer, inbox InboxServer, message MessageServer) {
	srv.RegisterService(&SessionServiceDesc, session)
	srv.RegisterService(&InboxServiceDesc, inbox)
	srv.RegisterService(&MessageServiceDesc, message)
}
