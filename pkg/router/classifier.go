package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/logging"
	"github.com/zen-systems/toolroute/pkg/metrics"
	"github.com/zen-systems/toolroute/pkg/reasoning"
)

// Reasoner runs a reasoning session. *reasoning.Engine satisfies it.
type Reasoner interface {
	RunSession(ctx context.Context, req reasoning.Request, cfg config.ModelConfig) (*reasoning.Session, error)
}

// Classifier maps a request to a tool through a cascade of stages: pattern
// rules, intent cues, model-assisted reasoning, then a default. Each stage
// runs only when every earlier stage declined. Classifier holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	tools    []Tool
	ids      []string
	cfg      config.ClassifierConfig
	rules    *RuleMatcher
	intent   *IntentDetector
	reasoner Reasoner
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithLogger sets the classifier logger.
func WithLogger(logger zerolog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logging.Component(logger, "router")
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) ClassifierOption {
	return func(c *Classifier) {
		c.metrics = m
	}
}

// NewClassifier builds a classifier over tools. reasoner may be nil, in which
// case the model-assisted stage always declines.
func NewClassifier(tools []Tool, cfg config.ClassifierConfig, reasoner Reasoner, opts ...ClassifierOption) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ids := toolIDs(tools)
	if !containsID(ids, cfg.DefaultTool) {
		return nil, &config.ConfigurationError{
			Field:  "classifier.default_tool",
			Reason: fmt.Sprintf("tool %q is not registered", cfg.DefaultTool),
		}
	}
	intent, err := NewIntentDetector(tools, cfg)
	if err != nil {
		return nil, err
	}

	c := &Classifier{
		tools:    tools,
		ids:      ids,
		cfg:      cfg,
		rules:    NewRuleMatcher(tools, cfg),
		intent:   intent,
		reasoner: reasoner,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tools returns the registered tools ordered by ID.
func (c *Classifier) Tools() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Classify always returns a match; when no stage is confident it falls back
// to the default tool.
func (c *Classifier) Classify(ctx context.Context, request string, model config.ModelConfig) *EnhancedMatch {
	t := c.cfg.Thresholds
	var reasons []string

	start := time.Now()
	cand := c.rules.Match(request)
	c.metrics.ObserveStage(string(MethodRule), time.Since(start))
	switch {
	case cand == nil:
		reasons = append(reasons, "rule: no pattern or description matched")
	case cand.Confidence >= t.Medium:
		var params map[string]string
		if cand.MatchedPattern == DescriptionMatch {
			params = ExtractContextParameters(request)
		} else {
			params = c.rules.ExtractParameters(request, cand.MatchedPattern)
		}
		return c.finish(*cand, params, MethodRule, reasons)
	default:
		reasons = append(reasons, fmt.Sprintf("rule: %s scored %.2f below %.2f", cand.ToolID, cand.Confidence, t.Medium))
	}

	start = time.Now()
	cand = c.intent.Detect(request)
	c.metrics.ObserveStage(string(MethodIntent), time.Since(start))
	switch {
	case cand == nil:
		reasons = append(reasons, "intent: no cue matched")
	case cand.Confidence >= t.Low:
		return c.finish(*cand, ExtractContextParameters(request), MethodIntent, reasons)
	default:
		reasons = append(reasons, fmt.Sprintf("intent: %s scored %.2f below %.2f", cand.ToolID, cand.Confidence, t.Low))
	}

	start = time.Now()
	id, reason := c.selectWithReasoning(ctx, request, model)
	c.metrics.ObserveStage(string(MethodSequential), time.Since(start))
	if id != "" {
		picked := Candidate{ToolID: id, Confidence: c.cfg.SequentialConfidence}
		return c.finish(picked, ExtractContextParameters(request), MethodSequential, reasons)
	}
	reasons = append(reasons, "sequential: "+reason)

	fallback := Candidate{ToolID: c.cfg.DefaultTool, Confidence: c.cfg.FallbackConfidence}
	return c.finish(fallback, map[string]string{"query": strings.TrimSpace(request)}, MethodFallback, reasons)
}

func (c *Classifier) finish(cand Candidate, params map[string]string, method Method, reasons []string) *EnhancedMatch {
	cand.Confidence = clamp(cand.Confidence)
	if params == nil {
		params = make(map[string]string)
	}
	m := &EnhancedMatch{
		Candidate:            cand,
		Parameters:           params,
		Method:               method,
		RequiresConfirmation: needsConfirmation(method, cand.Confidence, c.cfg.Thresholds),
		Reasons:              reasons,
	}

	c.metrics.ObserveClassification(string(method), m.ToolID, m.Confidence)
	c.logger.Info().
		Str("tool", m.ToolID).
		Str("method", string(method)).
		Float64("confidence", m.Confidence).
		Bool("confirm", m.RequiresConfirmation).
		Strs("reasons", reasons).
		Msg("request classified")
	return m
}

// selectWithReasoning asks the reasoning engine to pick a tool. It returns
// the tool ID, or "" and the reason the stage declined.
func (c *Classifier) selectWithReasoning(ctx context.Context, request string, model config.ModelConfig) (string, string) {
	if c.reasoner == nil || !c.cfg.SequentialEnabled() {
		return "", "disabled"
	}
	if strings.TrimSpace(request) == "" {
		return "", "empty request"
	}

	sess, err := c.reasoner.RunSession(ctx, reasoning.Request{
		Task:         c.selectionTask(request),
		SystemPrompt: selectionSystemPrompt,
		ModelTask:    c.cfg.SelectionTask,
	}, model)
	if err != nil {
		c.logger.Warn().Err(err).Msg("model-assisted selection failed")
		return "", fmt.Sprintf("reasoning failed: %v", err)
	}

	answer := sess.Final()
	id, ok := NormalizeToolAnswer(answer, c.ids)
	if !ok {
		c.logger.Debug().Str("answer", firstLine(answer)).Msg("model answer named no known tool")
		return "", fmt.Sprintf("answer %q named no known tool", firstLine(answer))
	}
	return id, ""
}

const selectionSystemPrompt = `You route user requests to tools. When next_thought_needed is false, the thought must start with the chosen tool id on its own line and nothing else on that line.`

func (c *Classifier) selectionTask(request string) string {
	var sb strings.Builder
	sb.WriteString("Choose the single most appropriate tool for the user request below.\n\n")
	sb.WriteString("User request: ")
	sb.WriteString(strings.TrimSpace(request))
	sb.WriteString("\n\nAvailable tools:\n")
	for _, tool := range c.tools {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", tool.ID, tool.Description))
	}
	sb.WriteString("\nAnswer with the tool id.")
	return sb.String()
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
