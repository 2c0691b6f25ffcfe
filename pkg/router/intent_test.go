package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/toolroute/pkg/config"
)

func newTestDetector(t *testing.T) *IntentDetector {
	t.Helper()
	d, err := NewIntentDetector(defaultTools(), config.DefaultClassifierConfig())
	require.NoError(t, err)
	return d
}

func TestIntentDetector_UniquePhrase(t *testing.T) {
	d := newTestDetector(t)

	cand := d.Detect("As a shopper, I want to save my cart")
	require.NotNil(t, cand)
	assert.Equal(t, "user-stories-generator", cand.ToolID)
	assert.Equal(t, "as a shopper, i want", cand.MatchedPattern)
	// base + one phrase + unique bonus
	assert.InDelta(t, 0.6, cand.Confidence, 1e-9)
}

func TestIntentDetector_ContestedMatchIsDamped(t *testing.T) {
	d := newTestDetector(t)

	cand := d.Detect("boilerplate and milestones")
	require.NotNil(t, cand)
	// Equal scores resolve to the first tool by ID.
	assert.Equal(t, "fullstack-starter-kit-generator", cand.ToolID)
	assert.InDelta(t, 0.36, cand.Confidence, 1e-9)
}

func TestIntentDetector_ConfidenceIsCapped(t *testing.T) {
	d := newTestDetector(t)

	cand := d.Detect("research and investigate, explore, compare: what is behind the latest trends")
	require.NotNil(t, cand)
	assert.Equal(t, "research-manager", cand.ToolID)
	assert.Equal(t, 0.75, cand.Confidence)
}

func TestIntentDetector_NoCue(t *testing.T) {
	d := newTestDetector(t)

	assert.Nil(t, d.Detect("hello world"))
	assert.Nil(t, d.Detect(""))
	assert.Nil(t, d.Detect("   "))
}

func TestIntentDetector_KeywordsAreWordBounded(t *testing.T) {
	d := newTestDetector(t)

	// "prd" inside another word is not a cue.
	assert.Nil(t, d.Detect("the sprdx widget"))
}

func TestNewIntentDetector_InvalidPhrase(t *testing.T) {
	tools := []Tool{{ID: "broken", Phrases: []string{"(unclosed"}}}

	_, err := NewIntentDetector(tools, config.DefaultClassifierConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestExtractContextParameters(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    map[string]string
	}{
		{
			name:    "preposition span",
			request: "Tell me about vector databases for search.",
			want:    map[string]string{"query": "vector databases for search", "topic": "vector databases for search"},
		},
		{
			name:    "single quoted span",
			request: "it's John's 'big plan' today",
			want:    map[string]string{"query": "big plan"},
		},
		{
			name:    "no cues",
			request: "hello world!",
			want:    map[string]string{"query": "hello world"},
		},
		{
			name:    "empty",
			request: "",
			want:    map[string]string{"query": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractContextParameters(tt.request))
		})
	}
}

func TestExtractContextParameters_QuotedSpanWinsQuery(t *testing.T) {
	params := ExtractContextParameters(`Summarize "the state of WebAssembly runtimes" for me`)

	assert.Equal(t, "the state of WebAssembly runtimes", params["query"])
	assert.Equal(t, "me", params["topic"])
}
