package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/toolroute/pkg/adapter"
	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/metrics"
	"github.com/zen-systems/toolroute/pkg/reasoning"
)

var testModel = config.ModelConfig{
	Provider:     config.ProviderMock,
	PrimaryModel: "test-model",
	MaxTokens:    500,
	Temperature:  0.7,
}

func step(text string, next bool, number, total int) string {
	return fmt.Sprintf(`{"thought":%q,"next_thought_needed":%t,"thought_number":%d,"total_thoughts":%d}`, text, next, number, total)
}

// countingReasoner records how often the model-assisted stage runs.
type countingReasoner struct {
	calls  atomic.Int32
	answer string
	err    error
}

func (r *countingReasoner) RunSession(ctx context.Context, req reasoning.Request, cfg config.ModelConfig) (*reasoning.Session, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	engine := reasoning.NewEngine(reasoning.WithAdapter(adapter.NewMockAdapterWithResponses(step(r.answer, false, 1, 1))))
	return engine.RunSession(ctx, req, cfg)
}

func newTestClassifier(t *testing.T, reasoner Reasoner, opts ...ClassifierOption) *Classifier {
	t.Helper()
	c, err := NewClassifier(defaultTools(), config.DefaultClassifierConfig(), reasoner, opts...)
	require.NoError(t, err)
	return c
}

func TestClassify_RuleMatch(t *testing.T) {
	reasoner := &countingReasoner{answer: "prd-generator"}
	c := newTestClassifier(t, reasoner)

	m := c.Classify(context.Background(), "research the latest advancements in quantum computing", testModel)

	assert.Equal(t, "research-manager", m.ToolID)
	assert.Equal(t, MethodRule, m.Method)
	assert.GreaterOrEqual(t, m.Confidence, 0.8)
	assert.Equal(t, "research {topic}", m.MatchedPattern)
	assert.Equal(t, "the latest advancements in quantum computing", m.Parameters["topic"])
	assert.False(t, m.RequiresConfirmation)
	assert.Empty(t, m.Reasons)
	assert.Zero(t, reasoner.calls.Load(), "later stages must not run after a confident rule match")
}

func TestClassify_DescriptionMatch(t *testing.T) {
	c := newTestClassifier(t, nil)

	m := c.Classify(context.Background(), "I need a summary of findings on technical topics", testModel)

	assert.Equal(t, "research-manager", m.ToolID)
	assert.Equal(t, MethodRule, m.Method)
	assert.Equal(t, DescriptionMatch, m.MatchedPattern)
	assert.Equal(t, 0.7, m.Confidence)
	assert.True(t, m.RequiresConfirmation)
	assert.Equal(t, "technical topics", m.Parameters["topic"])
}

func TestClassify_IntentMatch(t *testing.T) {
	reasoner := &countingReasoner{answer: "prd-generator"}
	c := newTestClassifier(t, reasoner)

	request := "As a shopper, I want to save my cart"
	m := c.Classify(context.Background(), request, testModel)

	assert.Equal(t, "user-stories-generator", m.ToolID)
	assert.Equal(t, MethodIntent, m.Method)
	assert.InDelta(t, 0.6, m.Confidence, 1e-9)
	assert.True(t, m.RequiresConfirmation)
	assert.Equal(t, map[string]string{"query": request}, m.Parameters)
	assert.Equal(t, []string{"rule: no pattern or description matched"}, m.Reasons)
	assert.Zero(t, reasoner.calls.Load())
}

func TestClassify_SequentialWithEngine(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(
		step("The user wants to organize work.", true, 1, 2),
		step("task-list-generator\nOrganizing things means breaking work into tasks.", false, 2, 2),
	)
	engine := reasoning.NewEngine(reasoning.WithAdapter(mock))
	c := newTestClassifier(t, engine)

	request := "I need some help organizing things"
	m := c.Classify(context.Background(), request, testModel)

	assert.Equal(t, "task-list-generator", m.ToolID)
	assert.Equal(t, MethodSequential, m.Method)
	assert.Equal(t, 0.5, m.Confidence)
	assert.Empty(t, m.MatchedPattern)
	assert.True(t, m.RequiresConfirmation)
	assert.Equal(t, request, m.Parameters["query"])

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "test-model", reqs[0].Model)
	assert.Contains(t, reqs[0].System, selectionSystemPrompt)
	assert.Contains(t, reqs[0].User, "User request: "+request)
	assert.Contains(t, reqs[0].User, "- task-list-generator: Breaks user stories down")
}

func TestClassify_SequentialSingleRound(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(step("task-list-generator", false, 1, 1))
	c := newTestClassifier(t, reasoning.NewEngine(reasoning.WithAdapter(mock)))

	m := c.Classify(context.Background(), "I need some help organizing things", testModel)

	assert.Equal(t, "task-list-generator", m.ToolID)
	assert.Equal(t, MethodSequential, m.Method)
	assert.Equal(t, 0.5, m.Confidence)
	assert.True(t, m.RequiresConfirmation)
	assert.Equal(t, 1, mock.Calls())
}

func TestClassify_LoweringThresholdsOnlyAddsAcceptances(t *testing.T) {
	tests := []struct {
		name       string
		request    string
		strict     config.Thresholds
		lenient    config.Thresholds
		wantStrict Method
		wantLoose  Method
	}{
		{
			name:       "rule stage",
			request:    "research quantum computing",
			strict:     config.Thresholds{High: 0.95, Medium: 0.95, Low: 0.4},
			lenient:    config.Thresholds{High: 0.95, Medium: 0.6, Low: 0.4},
			wantStrict: MethodIntent,
			wantLoose:  MethodRule,
		},
		{
			name:       "intent stage",
			request:    "As a shopper, I want to save my cart",
			strict:     config.Thresholds{High: 0.8, Medium: 0.7, Low: 0.7},
			lenient:    config.Thresholds{High: 0.8, Medium: 0.7, Low: 0.4},
			wantStrict: MethodFallback,
			wantLoose:  MethodIntent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classify := func(th config.Thresholds) *EnhancedMatch {
				cfg := config.DefaultClassifierConfig()
				cfg.Thresholds = th
				c, err := NewClassifier(defaultTools(), cfg, nil)
				require.NoError(t, err)
				return c.Classify(context.Background(), tt.request, testModel)
			}

			assert.Equal(t, tt.wantStrict, classify(tt.strict).Method)
			assert.Equal(t, tt.wantLoose, classify(tt.lenient).Method)
		})
	}
}

func TestClassify_SequentialUsesSelectionModel(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(step("rules-generator", false, 1, 1))
	engine := reasoning.NewEngine(reasoning.WithAdapter(mock))
	c := newTestClassifier(t, engine)

	model := testModel
	model.LLMMapping = config.LLMMapping{"tool_selection": "small-router-model"}
	m := c.Classify(context.Background(), "I need some help organizing things", model)

	assert.Equal(t, "rules-generator", m.ToolID)
	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "small-router-model", reqs[0].Model)
}

func TestClassify_FallbackPaths(t *testing.T) {
	request := "I need some help organizing things"

	tests := []struct {
		name       string
		reasoner   Reasoner
		wantReason string
	}{
		{
			name:       "no reasoner",
			reasoner:   nil,
			wantReason: "sequential: disabled",
		},
		{
			name:       "engine error",
			reasoner:   &countingReasoner{err: &adapter.ModelCallError{Status: 503, Body: "overloaded"}},
			wantReason: "sequential: reasoning failed",
		},
		{
			name: "model call fails mid session",
			reasoner: reasoning.NewEngine(reasoning.WithAdapter(adapter.NewMockAdapterWithReplies(
				adapter.MockReply{Err: errors.New("connection reset")},
			))),
			wantReason: "sequential: reasoning failed",
		},
		{
			name:       "answer names no tool",
			reasoner:   &countingReasoner{answer: "I am not sure which tool fits."},
			wantReason: "named no known tool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t, tt.reasoner)

			m := c.Classify(context.Background(), request, testModel)

			assert.Equal(t, "research-manager", m.ToolID)
			assert.Equal(t, MethodFallback, m.Method)
			assert.Equal(t, 0.2, m.Confidence)
			assert.True(t, m.RequiresConfirmation)
			assert.Equal(t, map[string]string{"query": request}, m.Parameters)
			require.NotEmpty(t, m.Reasons)
			assert.Contains(t, m.Reasons[len(m.Reasons)-1], tt.wantReason)
		})
	}
}

func TestClassify_MissingModelFallsBack(t *testing.T) {
	engine := reasoning.NewEngine(reasoning.WithAdapter(adapter.NewMockAdapter()))
	c := newTestClassifier(t, engine)

	m := c.Classify(context.Background(), "I need some help organizing things", config.ModelConfig{Provider: config.ProviderMock})

	assert.Equal(t, MethodFallback, m.Method)
	assert.Contains(t, m.Reasons[len(m.Reasons)-1], "configuration error")
}

func TestClassify_EmptyRequestSkipsReasoning(t *testing.T) {
	reasoner := &countingReasoner{answer: "prd-generator"}
	c := newTestClassifier(t, reasoner)

	m := c.Classify(context.Background(), "   ", testModel)

	assert.Equal(t, MethodFallback, m.Method)
	assert.Equal(t, "research-manager", m.ToolID)
	assert.Equal(t, "", m.Parameters["query"])
	assert.Zero(t, reasoner.calls.Load())
}

func TestClassify_SequentialDisabled(t *testing.T) {
	reasoner := &countingReasoner{answer: "prd-generator"}
	cfg := config.DefaultClassifierConfig()
	disabled := false
	cfg.EnableSequential = &disabled

	c, err := NewClassifier(defaultTools(), cfg, reasoner)
	require.NoError(t, err)

	m := c.Classify(context.Background(), "I need some help organizing things", testModel)
	assert.Equal(t, MethodFallback, m.Method)
	assert.Zero(t, reasoner.calls.Load())
}

func TestClassify_InjectedThresholds(t *testing.T) {
	cfg := config.DefaultClassifierConfig()
	cfg.Thresholds = config.Thresholds{High: 0.95, Medium: 0.95, Low: 0.4}

	c, err := NewClassifier(defaultTools(), cfg, nil)
	require.NoError(t, err)

	// The pattern still matches but no longer clears the rule threshold, so
	// the keyword cue decides.
	m := c.Classify(context.Background(), "research quantum computing", testModel)
	assert.Equal(t, MethodIntent, m.Method)
	assert.Equal(t, "research-manager", m.ToolID)
	assert.InDelta(t, 0.55, m.Confidence, 1e-9)
	require.NotEmpty(t, m.Reasons)
	assert.Contains(t, m.Reasons[0], "below 0.95")
}

func TestClassify_ConfirmationFollowsConfidence(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(step("prd-generator", false, 1, 1))
	c := newTestClassifier(t, reasoning.NewEngine(reasoning.WithAdapter(mock)))
	high := config.DefaultThresholds().High

	for _, request := range []string{
		"research the latest advancements in quantum computing",
		"create a prd for a pet store",
		"I need a summary of findings on technical topics",
		"As a shopper, I want to save my cart",
		"I need some help organizing things",
		"",
	} {
		m := c.Classify(context.Background(), request, testModel)
		want := m.Confidence < high || m.Method == MethodSequential || m.Method == MethodFallback
		assert.Equal(t, want, m.RequiresConfirmation, "request %q", request)
		assert.GreaterOrEqual(t, m.Confidence, 0.0)
		assert.LessOrEqual(t, m.Confidence, 1.0)
		assert.NotNil(t, m.Parameters)
	}
}

func TestClassify_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClassifier(t, nil, WithMetrics(metrics.New(reg)))

	c.Classify(context.Background(), "research go generics", testModel)
	c.Classify(context.Background(), "hello world", testModel)

	count, err := testutil.GatherAndCount(reg, "toolroute_classifications_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewClassifier_Errors(t *testing.T) {
	t.Run("unregistered default tool", func(t *testing.T) {
		cfg := config.DefaultClassifierConfig()
		cfg.DefaultTool = "missing-tool"

		_, err := NewClassifier(defaultTools(), cfg, nil)
		var cfgErr *config.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "classifier.default_tool", cfgErr.Field)
	})

	t.Run("unordered thresholds", func(t *testing.T) {
		cfg := config.DefaultClassifierConfig()
		cfg.Thresholds = config.Thresholds{High: 0.5, Medium: 0.6, Low: 0.4}

		_, err := NewClassifier(defaultTools(), cfg, nil)
		require.Error(t, err)
	})

	t.Run("invalid phrase", func(t *testing.T) {
		tools := append(defaultTools(), Tool{ID: "broken", Phrases: []string{"[a-"}})

		_, err := NewClassifier(tools, config.DefaultClassifierConfig(), nil)
		require.Error(t, err)
	})
}

func TestEnhancedMatchJSON(t *testing.T) {
	m := &EnhancedMatch{
		Candidate:  Candidate{ToolID: "prd-generator", Confidence: 0.5},
		Parameters: map[string]string{"query": "x"},
		Method:     MethodSequential,
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool_id":"prd-generator","confidence":0.5,"parameters":{"query":"x"},"method":"sequential","requires_confirmation":false}`, string(data))
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name     string
		match    *EnhancedMatch
		contains []string
	}{
		{
			name:     "nil",
			match:    nil,
			contains: []string{"No match"},
		},
		{
			name: "pattern",
			match: &EnhancedMatch{
				Candidate: Candidate{ToolID: "research-manager", Confidence: 0.9, MatchedPattern: "research {topic}"},
				Method:    MethodRule,
			},
			contains: []string{"research-manager", `"research {topic}"`, "0.90"},
		},
		{
			name: "description",
			match: &EnhancedMatch{
				Candidate:            Candidate{ToolID: "research-manager", Confidence: 0.7, MatchedPattern: DescriptionMatch},
				Method:               MethodRule,
				RequiresConfirmation: true,
			},
			contains: []string{"description", "Please confirm"},
		},
		{
			name: "intent",
			match: &EnhancedMatch{
				Candidate: Candidate{ToolID: "prd-generator", Confidence: 0.55, MatchedPattern: "prd"},
				Method:    MethodIntent,
			},
			contains: []string{"intent", `"prd"`},
		},
		{
			name: "sequential",
			match: &EnhancedMatch{
				Candidate: Candidate{ToolID: "task-list-generator", Confidence: 0.5},
				Method:    MethodSequential,
			},
			contains: []string{"reasoning", "task-list-generator"},
		},
		{
			name: "fallback",
			match: &EnhancedMatch{
				Candidate: Candidate{ToolID: "research-manager", Confidence: 0.2},
				Method:    MethodFallback,
			},
			contains: []string{"default tool research-manager"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Explain(tt.match)
			for _, s := range tt.contains {
				assert.Contains(t, text, s)
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	c := newTestClassifier(t, nil)

	model := testModel
	model.LLMMapping = config.LLMMapping{"research_query": "perplexity/sonar"}
	routes := c.Routes(model)
	require.Len(t, routes, 6)

	byID := make(map[string]RouteInfo)
	for _, r := range routes {
		byID[r.ToolID] = r
	}
	assert.Equal(t, "perplexity/sonar", byID["research-manager"].Model)
	assert.Equal(t, "test-model", byID["prd-generator"].Model)
	assert.Equal(t, "prd_generation", byID["prd-generator"].Task)

	for _, r := range c.Routes(config.ModelConfig{}) {
		assert.Empty(t, r.Model, r.ToolID)
	}
}
