// Package dispatch runs the tool chosen by the classifier.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/zen-systems/toolroute/pkg/logging"
	"github.com/zen-systems/toolroute/pkg/metrics"
	"github.com/zen-systems/toolroute/pkg/router"
)

var (
	// ErrUnknownTool is returned when a match names a tool with no executor.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrConfirmationRequired is returned when a match needs confirmation
	// and the caller did not confirm it.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// ConfirmationError carries the match the caller has to confirm.
type ConfirmationError struct {
	Match *router.EnhancedMatch
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("%s: %s (confidence %.2f, method %s)",
		ErrConfirmationRequired, e.Match.ToolID, e.Match.Confidence, e.Match.Method)
}

func (e *ConfirmationError) Unwrap() error {
	return ErrConfirmationRequired
}

// Executor runs one tool with the parameters extracted for it.
type Executor interface {
	ID() string
	Execute(ctx context.Context, params map[string]string) (string, error)
}

// Registry maps tool IDs to executors. It is immutable once built.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry builds a registry. An executor with an empty ID, a nil
// executor or a duplicate ID is an error.
func NewRegistry(executors ...Executor) (*Registry, error) {
	r := &Registry{executors: make(map[string]Executor, len(executors))}
	for i, ex := range executors {
		if ex == nil {
			return nil, fmt.Errorf("executor %d is nil", i)
		}
		id := ex.ID()
		if id == "" {
			return nil, fmt.Errorf("executor %d has an empty id", i)
		}
		if _, dup := r.executors[id]; dup {
			return nil, fmt.Errorf("duplicate executor for tool %q", id)
		}
		r.executors[id] = ex
	}
	return r, nil
}

// Lookup returns the executor for a tool.
func (r *Registry) Lookup(id string) (Executor, bool) {
	ex, ok := r.executors[id]
	return ex, ok
}

// IDs returns the registered tool IDs in order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.executors))
	for id := range r.executors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Result is the outcome of a dispatched tool.
type Result struct {
	ToolID string                `json:"tool_id"`
	Output string                `json:"output"`
	Match  *router.EnhancedMatch `json:"match"`
}

// Dispatcher executes matches against a registry.
type Dispatcher struct {
	registry *Registry
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logging.Component(logger, "dispatch")
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: registry, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the matched tool. A match that requires confirmation only
// runs when confirmed is true.
func (d *Dispatcher) Dispatch(ctx context.Context, match *router.EnhancedMatch, confirmed bool) (*Result, error) {
	if match == nil {
		return nil, fmt.Errorf("dispatch: match is required")
	}
	ex, ok := d.registry.Lookup(match.ToolID)
	if !ok {
		d.metrics.ObserveDispatch(match.ToolID, "unknown_tool")
		return nil, fmt.Errorf("dispatch %q: %w", match.ToolID, ErrUnknownTool)
	}
	if match.RequiresConfirmation && !confirmed {
		d.metrics.ObserveDispatch(match.ToolID, "confirmation_required")
		return nil, &ConfirmationError{Match: match}
	}

	log := d.logger.With().Str("tool", match.ToolID).Str("method", string(match.Method)).Logger()
	log.Info().Interface("params", match.Parameters).Msg("dispatching")

	out, err := ex.Execute(ctx, match.Parameters)
	if err != nil {
		d.metrics.ObserveDispatch(match.ToolID, "error")
		log.Error().Err(err).Msg("tool failed")
		return nil, fmt.Errorf("run %s: %w", match.ToolID, err)
	}
	d.metrics.ObserveDispatch(match.ToolID, "ok")
	return &Result{ToolID: match.ToolID, Output: out, Match: match}, nil
}
