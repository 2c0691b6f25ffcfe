// Package reasoning runs multi-round structured reasoning sessions against a
// completion model. Each round is one JSON step; the model decides when to
// stop, within a hard round cap.
package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zen-systems/toolroute/pkg/adapter"
	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/logging"
	"github.com/zen-systems/toolroute/pkg/metrics"
)

// DefaultModelTask is the llm_mapping key used by Run.
const DefaultModelTask = "sequential_thought_generation"

// AdapterFactory builds an adapter for a model configuration.
type AdapterFactory func(config.ModelConfig) (adapter.Adapter, error)

// Request describes one reasoning session.
type Request struct {
	Task string
	// SystemPrompt is appended to the step protocol.
	SystemPrompt string
	// ModelTask selects the model through llm_mapping. Empty means DefaultModelTask.
	ModelTask string
}

// Engine runs reasoning sessions. It holds no per-session state and is safe
// for concurrent use.
type Engine struct {
	factory AdapterFactory
	limits  config.ReasoningConfig
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// Option configures an Engine.
type Option func(*Engine)

// WithAdapter makes every session use a, regardless of provider settings.
func WithAdapter(a adapter.Adapter) Option {
	return func(e *Engine) {
		e.factory = func(config.ModelConfig) (adapter.Adapter, error) { return a, nil }
	}
}

// WithAdapterFactory overrides how adapters are built from configuration.
func WithAdapterFactory(f AdapterFactory) Option {
	return func(e *Engine) {
		if f != nil {
			e.factory = f
		}
	}
}

// WithLimits sets the round cap, initial estimate and session timeout.
func WithLimits(limits config.ReasoningConfig) Option {
	return func(e *Engine) {
		if limits.MaxRounds > 0 {
			e.limits.MaxRounds = limits.MaxRounds
		}
		if limits.InitialEstimate > 0 {
			e.limits.InitialEstimate = limits.InitialEstimate
		}
		e.limits.Timeout = limits.Timeout
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.Component(logger, "reasoning")
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine. By default adapters are built with adapter.New,
// sessions stop after 10 rounds and start from an estimate of 5.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		factory: adapter.New,
		limits:  config.ReasoningConfig{MaxRounds: 10, InitialEstimate: 5},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run reasons about task and returns the text of the final round.
func (e *Engine) Run(ctx context.Context, task string, cfg config.ModelConfig, extraSystemPrompt ...string) (string, error) {
	req := Request{Task: task}
	if len(extraSystemPrompt) > 0 {
		req.SystemPrompt = extraSystemPrompt[0]
	}
	sess, err := e.RunSession(ctx, req, cfg)
	if err != nil {
		return "", err
	}
	return sess.Final(), nil
}

// RunSession reasons about req.Task and returns the full session. On a model
// call failure the partial session is returned with the error.
func (e *Engine) RunSession(ctx context.Context, req Request, cfg config.ModelConfig) (*Session, error) {
	modelTask := req.ModelTask
	if modelTask == "" {
		modelTask = DefaultModelTask
	}
	model, err := cfg.SelectModel(modelTask)
	if err != nil {
		return nil, err
	}
	client, err := e.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s adapter: %w", cfg.Provider, err)
	}

	if e.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limits.Timeout)
		defer cancel()
	}

	sess := newSession(req.Task, model)
	log := e.logger.With().Str("session", sess.ID).Str("model", model).Logger()
	defer func() {
		sess.Duration = time.Since(sess.StartedAt)
	}()

	system := buildSystemPrompt(req.SystemPrompt)
	estimate := e.limits.InitialEstimate

	for {
		if sess.History.Len() >= e.limits.MaxRounds {
			sess.Truncated = true
			log.Warn().Int("rounds", sess.History.Len()).Msg("round cap reached; returning last round")
			break
		}
		if err := ctx.Err(); err != nil {
			return sess, fmt.Errorf("reasoning session %s: %w", sess.ID, err)
		}

		index := sess.History.Len() + 1
		resp, err := client.Complete(ctx, adapter.Request{
			Model:       model,
			System:      system,
			User:        buildUserPrompt(req.Task, sess.History.Rounds(), estimate),
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			JSON:        true,
		})
		if err != nil {
			e.metrics.ModelCallFailed(adapter.StatusOf(err))
			log.Error().Err(err).Int("round", index).Bool("transient", adapter.IsTransient(err)).Msg("model call failed")
			return sess, fmt.Errorf("reasoning round %d: %w", index, err)
		}
		if resp.Usage != nil {
			sess.Usage.Add(resp.Usage)
		}

		round := e.toRound(resp.Content, index, log)
		if err := sess.History.Append(round); err != nil {
			return sess, err
		}
		estimate = round.TotalEstimate

		log.Debug().
			Int("round", round.Index).
			Int("estimate", round.TotalEstimate).
			Bool("continue", round.Continue).
			Bool("revision", round.IsRevision).
			Msg("round complete")

		if !round.Continue {
			break
		}
	}

	e.metrics.ObserveRounds(sess.History.Len())
	return sess, nil
}

// toRound converts a reply into a round. Output that is not valid round JSON
// becomes a terminal round carrying the raw text.
func (e *Engine) toRound(content string, index int, log zerolog.Logger) Round {
	w, err := parseRound(content)
	if err != nil {
		e.metrics.MalformedOutput()
		log.Warn().Err(err).Int("round", index).Msg("malformed round output; treating as final")
		return Round{
			Index:         index,
			TotalEstimate: index,
			Text:          content,
			Malformed:     true,
		}
	}

	total := *w.TotalThoughts
	if total < index {
		total = index
	}
	return Round{
		Index:           index,
		TotalEstimate:   total,
		Text:            *w.Thought,
		Continue:        *w.NextThoughtNeeded,
		IsRevision:      w.IsRevision,
		RevisesRound:    w.RevisesThought,
		BranchPoint:     w.BranchFromThought,
		BranchID:        w.BranchID,
		NeedsMoreRounds: w.NeedsMoreThoughts,
	}
}
