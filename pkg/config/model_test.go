package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectModel(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ModelConfig
		task     string
		expected string
	}{
		{
			name: "task mapping wins",
			cfg: ModelConfig{
				PrimaryModel: "primary",
				LLMMapping:   LLMMapping{"tool_selection": "selector", DefaultGenerationTask: "generic"},
			},
			task:     "tool_selection",
			expected: "selector",
		},
		{
			name: "default generation mapping before primary",
			cfg: ModelConfig{
				PrimaryModel: "primary",
				LLMMapping:   LLMMapping{DefaultGenerationTask: "generic"},
			},
			task:     "prd_generation",
			expected: "generic",
		},
		{
			name:     "primary model",
			cfg:      ModelConfig{PrimaryModel: "primary", FallbackModel: "fallback"},
			task:     "prd_generation",
			expected: "primary",
		},
		{
			name:     "fallback model last",
			cfg:      ModelConfig{FallbackModel: "fallback"},
			task:     "prd_generation",
			expected: "fallback",
		},
		{
			name:     "blank mapping entries are ignored",
			cfg:      ModelConfig{PrimaryModel: "primary", LLMMapping: LLMMapping{"research_query": "  "}},
			task:     "research_query",
			expected: "primary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.SelectModel(tt.task)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSelectModelMissing(t *testing.T) {
	_, err := ModelConfig{}.SelectModel("research_query")

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model", cfgErr.Field)
	assert.Contains(t, err.Error(), "research_query")
}

func TestModelConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ModelConfig
		wantField string
	}{
		{
			name:      "openai-compatible needs base url",
			cfg:       ModelConfig{Provider: ProviderOpenAI, PrimaryModel: "m"},
			wantField: "model.base_url",
		},
		{
			name:      "unknown provider",
			cfg:       ModelConfig{Provider: "carrier", PrimaryModel: "m"},
			wantField: "model.provider",
		},
		{
			name:      "no model at all",
			cfg:       ModelConfig{Provider: ProviderMock},
			wantField: "model",
		},
		{
			name:      "anthropic needs api key",
			cfg:       ModelConfig{Provider: ProviderAnthropic, PrimaryModel: "claude-sonnet-4-20250514"},
			wantField: "model.api_key",
		},
		{
			name:      "google needs api key",
			cfg:       ModelConfig{Provider: ProviderGoogle, PrimaryModel: "gemini-2.5-flash", APIKey: "  "},
			wantField: "model.api_key",
		},
		{
			name: "valid anthropic",
			cfg:  ModelConfig{Provider: ProviderAnthropic, APIKey: "sk-test", PrimaryModel: "claude-sonnet-4-20250514"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestLLMMappingHelpers(t *testing.T) {
	var nilMapping LLMMapping
	assert.Equal(t, "", nilMapping.Lookup("anything"))
	assert.Nil(t, nilMapping.Clone())

	mapping := LLMMapping{"b": "model-b", "a": "model-a"}
	assert.Equal(t, []string{"a", "b"}, mapping.Tasks())

	clone := mapping.Clone()
	clone["a"] = "changed"
	assert.Equal(t, "model-a", mapping["a"])
}
