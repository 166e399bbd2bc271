package status

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 15 * time.Second

// Checker reads the gateway connection state of the instance.
type Checker interface {
	ConnectionState(ctx context.Context) (string, error)
}

// Poller periodically checks the connection state and drives the Machine.
// Failed checks are retried with exponential backoff.
type Poller struct {
	checker  Checker
	machine  *Machine
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(checker Checker, machine *Machine, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{checker: checker, machine: machine, interval: interval, logger: logger}
}

// Check reads the connection state once and applies it to the machine.
func (p *Poller) Check(ctx context.Context) (State, error) {
	raw, err := p.checker.ConnectionState(ctx)
	if err != nil {
		p.apply(Unreachable)
		return Unreachable, err
	}
	s := FromGateway(raw)
	p.apply(s)
	return s, nil
}

func (p *Poller) apply(s State) {
	if err := p.machine.Transition(s); err != nil {
		p.logger.Warn("status transition rejected", zap.Error(err))
	}
}

func (p *Poller) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.interval / 4
	b.MaxInterval = p.interval * 8
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Start launches the polling loop. The first check runs immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		b := p.newBackOff()
		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			wait := p.interval
			if _, err := p.Check(ctx); err != nil {
				wait = b.NextBackOff()
				p.logger.Warn("connection check failed", zap.Error(err), zap.Duration("retry_in", wait))
			} else {
				b.Reset()
			}
			timer.Reset(wait)
		}
	}()
}

// Stop stops the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}
