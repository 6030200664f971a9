// Package gateway runs one conversation turn through validation, the risk
// gate and either the fixed crisis response or the completion service.
//
// Per turn: Received → Validated → RiskChecked → (CrisisShortCircuit |
// ModelCompletion) → Responded, or Received → Rejected. A rejected turn
// touches neither the classifier, the model nor the diagnostic log.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/serene/backend/internal/analysis/redact"
	"github.com/zhouzirui/serene/backend/internal/analysis/risk"
	"github.com/zhouzirui/serene/backend/internal/model/chat"
	"github.com/zhouzirui/serene/backend/internal/service/ai"
	"github.com/zhouzirui/serene/backend/internal/service/crisis"
)

// ErrCompletionFailed wraps any failure of the completion service, including timeouts.
var ErrCompletionFailed = errors.New("completion service failed")

const (
	DefaultTimeout       = 30 * time.Second
	DefaultPreviewLength = 200
)

// Config tunes a Gateway.
type Config struct {
	SystemPrompt string
	// Timeout bounds the completion call.
	Timeout time.Duration
	// PreviewLength bounds the redacted preview written to the diagnostic sink.
	PreviewLength int
}

// Deps are the collaborators of a Gateway. Classifier, Sink and Metrics are optional.
type Deps struct {
	Classifier risk.Classifier
	Crisis     *crisis.Generator
	Completer  ai.Completer
	Sink       DiagnosticSink
	Metrics    *Metrics
}

// Gateway holds no per-turn state; one instance serves concurrent requests.
type Gateway struct {
	classifier risk.Classifier
	crisis     *crisis.Generator
	completer  ai.Completer
	sink       DiagnosticSink
	metrics    *Metrics
	cfg        Config
}

// New wires a Gateway. The classifier is always wrapped with risk.FailSafe.
func New(deps Deps, cfg Config) (*Gateway, error) {
	if deps.Completer == nil {
		return nil, errors.New("gateway: completer is required")
	}
	if deps.Crisis == nil {
		return nil, errors.New("gateway: crisis generator is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}

	sink := deps.Sink
	if sink == nil {
		sink = NopSink{}
	}

	return &Gateway{
		classifier: risk.FailSafe(deps.Classifier),
		crisis:     deps.Crisis,
		completer:  deps.Completer,
		sink:       sink,
		metrics:    deps.Metrics,
		cfg:        cfg,
	}, nil
}

// Handle validates a raw payload and responds to it. Validation failures are
// returned as *chat.ValidationError.
func (g *Gateway) Handle(ctx context.Context, raw []byte) (chat.Result, error) {
	turn, err := chat.ParseTurn(raw)
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			g.metrics.observeRejected(verr.Kind)
		}
		return nil, err
	}
	return g.Respond(ctx, turn)
}

// RecordRejected counts a turn refused before it could be parsed, such as an
// oversized body.
func (g *Gateway) RecordRejected(kind chat.ValidationKind) {
	g.metrics.observeRejected(kind)
}

// Respond runs an already validated turn.
func (g *Gateway) Respond(ctx context.Context, turn chat.Turn) (chat.Result, error) {
	entry := Entry{TurnID: uuid.NewString(), Risk: risk.None}
	start := time.Now()

	lastUser, hasUser := turn.LastUserContent()
	if hasUser {
		entry.Preview = redact.Preview(lastUser, g.cfg.PreviewLength)
		entry.Risk = g.classify(ctx, lastUser)
	}
	g.metrics.observeRisk(entry.Risk)

	var result chat.Result
	if entry.Risk == risk.High {
		result = chat.Crisis{Content: g.crisis.Generate(turn.Country)}
	} else {
		content, err := g.complete(ctx, turn)
		if err != nil {
			entry.Duration = time.Since(start)
			entry.Err = err
			g.metrics.observeFailure()
			g.sink.Record(ctx, entry)
			return nil, err
		}
		result = chat.Normal{Content: content}
	}

	entry.Mode = result.Mode()
	entry.Duration = time.Since(start)
	g.metrics.observeTurn(entry.Mode)
	g.sink.Record(ctx, entry)
	return result, nil
}

func (g *Gateway) classify(ctx context.Context, utterance string) risk.Level {
	level, err := g.classifier.Classify(ctx, utterance)
	if err != nil {
		// FailSafe has already mapped the failure to High.
		g.metrics.observeClassifierError()
	}
	return level
}

func (g *Gateway) complete(ctx context.Context, turn chat.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	content, err := g.completer.Complete(ctx, g.cfg.SystemPrompt, turn.Messages)
	g.metrics.observeCompletion(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	return content, nil
}
