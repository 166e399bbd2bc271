package delivery

import (
	"context"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/jid"
	"go.uber.org/zap"
)

// Strategy names.
const (
	StrategyDirectory  = "directory"
	StrategyHistory    = "history"
	StrategyBruteForce = "brute-force"
	StrategyQuoted     = "quoted"
)

// historyDepth is how many recent messages the history strategy mines.
const historyDepth = 10

// Plan is one send to try.
type Plan struct {
	Target  string
	Variant Variant
}

// Attempt is the escalation state shared by the strategies of one send.
type Attempt struct {
	Request
	Original string
	LastErr  error
	Tried    []string

	tried map[Plan]bool
}

// Strategy proposes the next plan, or reports false when it has nothing to
// offer. Strategies swallow their own lookup failures.
type Strategy struct {
	Name string
	Plan func(ctx context.Context, a *Attempt) (Plan, bool)
}

// DirectoryStrategy refreshes the target's profile on the gateway, which
// makes it re-resolve the identity, then looks the contact up for a phone
// identifier.
func (e *Engine) DirectoryStrategy() Strategy {
	return Strategy{Name: StrategyDirectory, Plan: func(ctx context.Context, a *Attempt) (Plan, bool) {
		if _, err := e.gw.ProfilePicture(ctx, a.Original); err != nil {
			e.logger.Debug("profile refresh failed", zap.String("target", a.Original), zap.Error(err))
		}
		c, err := e.gw.FindContact(ctx, a.Original)
		if err != nil || c == nil {
			return Plan{}, false
		}
		var phone string
		var ok bool
		if cand, found := alias.FromContact(*c); found {
			phone, ok = cand.Canonical, true
		} else {
			phone, ok = jid.AsPhone(c.ID)
		}
		if !ok || jid.Equivalent(phone, a.Original, nil) {
			return Plan{}, false
		}
		return Plan{Target: phone, Variant: Full}, true
	}}
}

// HistoryStrategy mines the conversation's recent messages for a phone
// identifier hidden in sender or participant fields.
func (e *Engine) HistoryStrategy() Strategy {
	return Strategy{Name: StrategyHistory, Plan: func(ctx context.Context, a *Attempt) (Plan, bool) {
		if e.history == nil {
			return Plan{}, false
		}
		msgs, err := e.history.FetchMessages(ctx, a.Original, historyDepth)
		if err != nil {
			e.logger.Debug("history lookup failed", zap.String("target", a.Original), zap.Error(err))
			return Plan{}, false
		}
		for _, cand := range alias.Scan(msgs, historyDepth) {
			if cand.Alias == a.Original {
				return Plan{Target: cand.Canonical, Variant: Full}, true
			}
		}
		return Plan{}, false
	}}
}

// BruteForceStrategy resends to the alias itself without optional flags.
func BruteForceStrategy() Strategy {
	return Strategy{Name: StrategyBruteForce, Plan: func(_ context.Context, a *Attempt) (Plan, bool) {
		return Plan{Target: a.Original, Variant: Minimal}, true
	}}
}

// QuotedStrategy resends with only the reply context attached, which some
// gateway releases accept as implicit verification.
func QuotedStrategy() Strategy {
	return Strategy{Name: StrategyQuoted, Plan: func(_ context.Context, a *Attempt) (Plan, bool) {
		if a.Quoted == nil {
			return Plan{}, false
		}
		return Plan{Target: a.Original, Variant: QuotedOnly}, true
	}}
}
