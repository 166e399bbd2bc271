package status

import (
	"testing"

	"github.com/matheus3301/wppbridge/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Disconnected},
		{Booting, Open},
		{Booting, Unreachable},
		{Disconnected, QRPending},
		{QRPending, Open},
		{Open, Disconnected},
		{Open, Unreachable},
		{Unreachable, Open},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Open)
	if err := m.Transition(Booting); err == nil {
		t.Error("Transition(OPEN -> BOOTING) should fail")
	}
}

func TestSameStateIsNoop(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	walkTo(t, m, Open)
	<-ch

	if err := m.Transition(Open); err != nil {
		t.Fatalf("Transition(OPEN -> OPEN) error = %v", err)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %v", evt)
	default:
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(QRPending); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != QRPending {
		t.Errorf("change = %v -> %v, want BOOTING -> QR_PENDING", change.From, change.To)
	}
}

func TestFromGateway(t *testing.T) {
	tests := map[string]State{
		"open":       Open,
		"OPEN":       Open,
		"connecting": Connecting,
		"close":      Disconnected,
		"":           Disconnected,
		"qrcode":     QRPending,
	}
	for in, want := range tests {
		if got := FromGateway(in); got != want {
			t.Errorf("FromGateway(%q) = %s, want %s", in, got, want)
		}
	}
}

// TestPairingLifecycle simulates a first run:
// BOOTING → DISCONNECTED → QR_PENDING → CONNECTING → OPEN
func TestPairingLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Disconnected, QRPending, Connecting, Open}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Open {
		t.Errorf("final state = %s, want OPEN", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:      {},
		Disconnected: {Disconnected},
		Connecting:   {Connecting},
		QRPending:    {QRPending},
		Open:         {Open},
		Unreachable:  {Unreachable},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
