package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wppbridge/internal/bus"
)

type fakeChecker struct {
	mu     sync.Mutex
	states []string
	errs   []error
	calls  int
}

func (f *fakeChecker) ConnectionState(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.states) {
		return f.states[i], nil
	}
	return f.states[len(f.states)-1], nil
}

func TestPollerCheck(t *testing.T) {
	m := NewMachine(nil)
	p := NewPoller(&fakeChecker{states: []string{"open"}}, m, time.Second, nil)

	s, err := p.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s != Open || m.Current() != Open {
		t.Errorf("state = %s (machine %s), want OPEN", s, m.Current())
	}
}

func TestPollerCheckErrorMarksUnreachable(t *testing.T) {
	m := NewMachine(nil)
	p := NewPoller(&fakeChecker{states: []string{"open"}, errs: []error{errors.New("dial tcp: refused")}}, m, time.Second, nil)

	s, err := p.Check(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if s != Unreachable || m.Current() != Unreachable {
		t.Errorf("state = %s (machine %s), want UNREACHABLE", s, m.Current())
	}
}

func TestPollerRecoversAfterFailure(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	checker := &fakeChecker{
		states: []string{"", "open"},
		errs:   []error{errors.New("timeout")},
	}
	p := NewPoller(checker, m, 20*time.Millisecond, nil)
	p.Start(context.Background())
	defer p.Stop()

	want := []State{Unreachable, Open}
	for _, w := range want {
		select {
		case evt := <-ch:
			if got := evt.Payload.(StatusChange).To; got != w {
				t.Fatalf("transition to %s, want %s", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", w)
		}
	}
}
