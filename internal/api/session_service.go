package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/bus"
	"github.com/matheus3301/wppbridge/internal/inbox"
	"github.com/matheus3301/wppbridge/internal/status"
	"github.com/matheus3301/wppbridge/internal/store"
	intsync "github.com/matheus3301/wppbridge/internal/sync"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
)

// Pairing is the slice of the gateway client the session service drives.
type Pairing interface {
	Connect(ctx context.Context) (wa.QRCode, error)
	Logout(ctx context.Context) error
}

// SessionService implements the SessionService gRPC service.
type SessionService struct {
	instance  string
	startedAt time.Time
	gateway   Pairing
	poller    *status.Poller
	machine   *status.Machine
	db        *store.DB
	cache     *alias.Cache
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(instance string, gw Pairing, poller *status.Poller, machine *status.Machine, db *store.DB, cache *alias.Cache, b *bus.Bus, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		instance:  instance,
		startedAt: time.Now(),
		gateway:   gw,
		poller:    poller,
		machine:   machine,
		db:        db,
		cache:     cache,
		bus:       b,
		logger:    logger,
	}
}

// Connect asks the gateway to pair the instance, creating it if unknown.
func (s *SessionService) Connect(ctx context.Context, _ *ConnectRequest) (*ConnectResponse, error) {
	qr, err := s.gateway.Connect(ctx)
	if err != nil {
		return nil, toStatus("connect", err)
	}
	var next status.State
	switch {
	case qr.State != "":
		next = status.FromGateway(qr.State)
	case qr.Code != "" || qr.Base64 != "" || qr.PairingCode != "":
		next = status.QRPending
	default:
		next = status.Connecting
	}
	s.transition(next)
	return &ConnectResponse{State: string(s.machine.Current()), QRCode: qr}, nil
}

// Disconnect logs the instance out of the gateway.
func (s *SessionService) Disconnect(ctx context.Context, _ *DisconnectRequest) (*DisconnectResponse, error) {
	if err := s.gateway.Logout(ctx); err != nil {
		return nil, toStatus("disconnect", err)
	}
	s.transition(status.Disconnected)
	return &DisconnectResponse{State: string(s.machine.Current())}, nil
}

// CheckStatus reads the live connection state and reports local counters.
// An unreachable gateway is reported, not returned as an error.
func (s *SessionService) CheckStatus(ctx context.Context, _ *CheckStatusRequest) (*CheckStatusResponse, error) {
	resp := &CheckStatusResponse{
		Instance:       s.instance,
		UptimeMs:       time.Since(s.startedAt).Milliseconds(),
		LearnedAliases: s.cache.Len(),
	}

	state, err := s.poller.Check(ctx)
	resp.State = string(state)
	if err != nil {
		resp.GatewayError = err.Error()
	}

	if n, err := s.db.ContactCount(); err == nil {
		resp.Contacts = n
	}
	if t, ok := intsync.LastSynced(s.db); ok {
		resp.ContactsSyncedAt = t.Unix()
	}
	if stats, err := inbox.LoadStats(s.db); err == nil {
		resp.Inbox = stats
	}
	return resp, nil
}

// WatchEvents streams bus events until the client goes away.
func (s *SessionService) WatchEvents(req *WatchEventsRequest, stream EventStream) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, 64)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			env := &EventEnvelope{
				ID:               evt.ID,
				Kind:             evt.Kind,
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
			}
			if evt.Payload != nil {
				payload, err := json.Marshal(evt.Payload)
				if err != nil {
					s.logger.Warn("event payload not encodable", zap.String("kind", evt.Kind), zap.Error(err))
				} else {
					env.Payload = payload
				}
			}
			if err := stream.Send(env); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *SessionService) transition(to status.State) {
	if err := s.machine.Transition(to); err != nil {
		s.logger.Warn("status transition rejected", zap.Error(err))
	}
}
