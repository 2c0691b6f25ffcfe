package config

import (
	"fmt"
	"sort"
	"strings"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderMock      = "mock"
)

// DefaultGenerationTask is the llm_mapping key consulted when a task has no
// mapping of its own.
const DefaultGenerationTask = "default_generation"

const (
	defaultBaseURL      = "https://openrouter.ai/api/v1"
	defaultPrimaryModel = "google/gemini-2.5-flash"
	defaultMaxTokens    = 1000
	defaultTemperature  = 0.7
)

// ModelConfig describes how to reach the completion model.
type ModelConfig struct {
	Provider      string `yaml:"provider,omitempty"`
	BaseURL       string `yaml:"base_url,omitempty"`
	APIKey        string `yaml:"api_key,omitempty"`
	PrimaryModel  string `yaml:"primary_model,omitempty"`
	FallbackModel string `yaml:"fallback_model,omitempty"`

	// LLMMapping maps logical task names to model identifiers.
	LLMMapping LLMMapping `yaml:"llm_mapping,omitempty"`

	MaxTokens         int64   `yaml:"max_tokens,omitempty"`
	Temperature       float64 `yaml:"temperature,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

func (m *ModelConfig) applyDefaults() {
	if m.Provider == "" {
		m.Provider = ProviderOpenAI
	}
	if m.BaseURL == "" && m.Provider == ProviderOpenAI {
		m.BaseURL = defaultBaseURL
	}
	if m.PrimaryModel == "" && m.LLMMapping.Lookup(DefaultGenerationTask) == "" {
		m.PrimaryModel = defaultPrimaryModel
	}
	if m.MaxTokens <= 0 {
		m.MaxTokens = defaultMaxTokens
	}
}

// Validate reports missing endpoint or model settings.
func (m ModelConfig) Validate() error {
	switch m.Provider {
	case ProviderOpenAI:
		if strings.TrimSpace(m.BaseURL) == "" {
			return &ConfigurationError{Field: "model.base_url", Reason: "is required for the openai provider"}
		}
	case ProviderAnthropic, ProviderGoogle:
		if strings.TrimSpace(m.APIKey) == "" {
			return &ConfigurationError{Field: "model.api_key", Reason: fmt.Sprintf("is required for the %s provider", m.Provider)}
		}
	case ProviderMock:
	default:
		return &ConfigurationError{Field: "model.provider", Reason: fmt.Sprintf("unsupported provider %q", m.Provider)}
	}
	if m.Temperature < 0 || m.Temperature > 2 {
		return &ConfigurationError{Field: "model.temperature", Reason: "must be between 0 and 2"}
	}
	if m.RequestsPerSecond < 0 {
		return &ConfigurationError{Field: "model.requests_per_second", Reason: "must not be negative"}
	}
	if _, err := m.SelectModel(DefaultGenerationTask); err != nil {
		return err
	}
	return nil
}

// SelectModel picks the model for a logical task: the task's own mapping,
// then the default_generation mapping, then the primary model, then the
// fallback model.
func (m ModelConfig) SelectModel(task string) (string, error) {
	if model := m.LLMMapping.Lookup(task); model != "" {
		return model, nil
	}
	if model := m.LLMMapping.Lookup(DefaultGenerationTask); model != "" {
		return model, nil
	}
	if model := strings.TrimSpace(m.PrimaryModel); model != "" {
		return model, nil
	}
	if model := strings.TrimSpace(m.FallbackModel); model != "" {
		return model, nil
	}
	return "", &ConfigurationError{
		Field:  "model",
		Reason: fmt.Sprintf("no model configured for task %q", task),
	}
}

// LLMMapping maps logical task names to model identifiers.
type LLMMapping map[string]string

// Lookup returns the mapped model for a task, or "" when unmapped.
func (l LLMMapping) Lookup(task string) string {
	if l == nil || task == "" {
		return ""
	}
	return strings.TrimSpace(l[task])
}

// Tasks returns the mapped task names in sorted order.
func (l LLMMapping) Tasks() []string {
	tasks := make([]string, 0, len(l))
	for task := range l {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)
	return tasks
}

// Clone returns a copy of the mapping.
func (l LLMMapping) Clone() LLMMapping {
	if l == nil {
		return nil
	}
	result := make(LLMMapping, len(l))
	for k, v := range l {
		result[k] = v
	}
	return result
}
