// Package delivery sends outbound messages and recovers from the gateway
// rejecting alias-addressed recipients by escalating through resolution
// strategies.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/gateway"
	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/wa"
	"go.uber.org/zap"
)

// Strategy names as reported in results and the outbox journal.
const (
	StrategyDirect = "direct"
	StrategyCached = "cached"
)

// Gateway is the slice of the gateway client delivery needs.
type Gateway interface {
	SendText(ctx context.Context, payload map[string]any) (gateway.SendResult, error)
	SendMedia(ctx context.Context, payload map[string]any) (gateway.SendResult, error)
	ProfilePicture(ctx context.Context, number string) (string, error)
	FindContact(ctx context.Context, id string) (*wa.Contact, error)
}

// History fetches recent messages of a conversation.
type History interface {
	FetchMessages(ctx context.Context, conversationID string, count int) ([]wa.Message, error)
}

// Kind distinguishes text from media sends.
type Kind string

const (
	KindText  Kind = "text"
	KindMedia Kind = "media"
)

// Request is one outbound message.
type Request struct {
	Kind   Kind
	Target string
	Text   string
	Quoted *wa.Quoted
	Media  wa.Media
}

// Result reports a delivered message.
type Result struct {
	MessageID string `json:"message_id"`
	Target    string `json:"target"`
	Strategy  string `json:"strategy"`
}

// ResolutionError is returned when an alias-addressed send failed every
// strategy. It unwraps to the last gateway error.
type ResolutionError struct {
	Target string
	Tried  []string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("recipient %s could not be resolved (tried %s): %v",
		e.Target, strings.Join(e.Tried, ", "), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Engine delivers outbound messages.
type Engine struct {
	gw      Gateway
	history History
	cache   *alias.Cache
	logger  *zap.Logger

	text  []Strategy
	media []Strategy
}

// NewEngine creates an engine with the default strategy chains.
func NewEngine(gw Gateway, history History, cache *alias.Cache, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{gw: gw, history: history, cache: cache, logger: logger}
	e.text = []Strategy{e.DirectoryStrategy(), e.HistoryStrategy(), BruteForceStrategy(), QuotedStrategy()}
	e.media = []Strategy{e.DirectoryStrategy(), BruteForceStrategy()}
	return e
}

// SendText delivers a text, optionally as a reply to quoted.
func (e *Engine) SendText(ctx context.Context, target, text string, quoted *wa.Quoted) (Result, error) {
	return e.Deliver(ctx, Request{Kind: KindText, Target: target, Text: text, Quoted: quoted})
}

// SendMedia delivers a media message.
func (e *Engine) SendMedia(ctx context.Context, target string, media wa.Media) (Result, error) {
	return e.Deliver(ctx, Request{Kind: KindMedia, Target: target, Media: PrepareMedia(media)})
}

// Deliver runs the send state machine: cached resolution, a full attempt,
// then, only for alias targets rejected with 400/404, the strategy chain.
func (e *Engine) Deliver(ctx context.Context, req Request) (Result, error) {
	original := strings.TrimSpace(req.Target)
	if original == "" {
		return Result{}, fmt.Errorf("send: empty target")
	}
	if jid.IsAlias(original) {
		original = jid.Bare(original)
	}

	first := Plan{Target: original, Variant: Full}
	name := StrategyDirect
	if cached, ok := e.cache.Resolve(original); ok {
		first.Target = cached
		name = StrategyCached
	}

	res, err := e.attempt(ctx, req, first)
	if err == nil {
		return e.finish(original, first, name, res), nil
	}
	if !jid.IsAlias(original) || !gateway.IsClientError(err) {
		return Result{}, err
	}

	chain := e.text
	if req.Kind == KindMedia {
		chain = e.media
	}
	a := &Attempt{
		Request:  req,
		Original: original,
		LastErr:  err,
		tried:    map[Plan]bool{first: true},
	}
	e.logger.Info("send rejected, escalating",
		zap.String("target", original), zap.Int("status", gateway.StatusOf(err)))

	for _, s := range chain {
		plan, ok := s.Plan(ctx, a)
		if !ok || a.tried[plan] {
			continue
		}
		a.tried[plan] = true
		a.Tried = append(a.Tried, s.Name)

		res, err := e.attempt(ctx, req, plan)
		if err == nil {
			return e.finish(original, plan, s.Name, res), nil
		}
		e.logger.Debug("strategy failed",
			zap.String("strategy", s.Name), zap.String("target", plan.Target), zap.Error(err))
		a.LastErr = err
	}
	return Result{}, &ResolutionError{Target: original, Tried: a.Tried, Err: a.LastErr}
}

func (e *Engine) attempt(ctx context.Context, req Request, p Plan) (gateway.SendResult, error) {
	if req.Kind == KindMedia {
		return e.gw.SendMedia(ctx, MediaPayload(p.Target, req.Media, p.Variant))
	}
	return e.gw.SendText(ctx, TextPayload(p.Target, req.Text, req.Quoted, p.Variant))
}

// finish learns the mapping when a different phone target got through.
func (e *Engine) finish(original string, p Plan, strategy string, res gateway.SendResult) Result {
	if jid.IsAlias(original) && p.Target != original {
		if phone, ok := jid.AsPhone(p.Target); ok {
			if _, err := e.cache.Learn(original, phone); err != nil {
				e.logger.Warn("persist learned alias failed", zap.Error(err))
			}
		}
	}
	return Result{MessageID: res.MessageID, Target: p.Target, Strategy: strategy}
}
