package status

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/matheus3301/wppbridge/internal/bus"
)

// State represents the connection state of a gateway instance.
type State string

const (
	Booting      State = "BOOTING"
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	QRPending    State = "QR_PENDING"
	Open         State = "OPEN"
	Unreachable  State = "UNREACHABLE"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:      {Disconnected, Connecting, QRPending, Open, Unreachable},
	Disconnected: {Connecting, QRPending, Open, Unreachable},
	Connecting:   {QRPending, Open, Disconnected, Unreachable},
	QRPending:    {Connecting, Open, Disconnected, Unreachable},
	Open:         {Connecting, QRPending, Disconnected, Unreachable},
	Unreachable:  {Disconnected, Connecting, QRPending, Open},
}

// FromGateway maps a gateway connection state ("open", "connecting", "close")
// onto a State.
func FromGateway(state string) State {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "open", "connected":
		return Open
	case "connecting":
		return Connecting
	case "qrcode", "qr", "pairing":
		return QRPending
	default:
		return Disconnected
	}
}

// Machine tracks and enforces instance connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Moving to the current state is
// a no-op. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
