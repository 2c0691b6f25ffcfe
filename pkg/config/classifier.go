package config

import "fmt"

// Thresholds are the confidence bands the classifier uses to accept a stage
// or ask for confirmation.
type Thresholds struct {
	High   float64 `yaml:"high,omitempty"`
	Medium float64 `yaml:"medium,omitempty"`
	Low    float64 `yaml:"low,omitempty"`
}

// DefaultThresholds returns the standard 0.8 / 0.6 / 0.4 bands.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.8, Medium: 0.6, Low: 0.4}
}

// ClassifierConfig holds the scoring constants for every classification stage.
type ClassifierConfig struct {
	Thresholds  Thresholds `yaml:"thresholds,omitempty"`
	DefaultTool string     `yaml:"default_tool,omitempty"`

	PatternConfidence     float64 `yaml:"pattern_confidence,omitempty"`
	DescriptionConfidence float64 `yaml:"description_confidence,omitempty"`
	DescriptionMinOverlap int     `yaml:"description_min_overlap,omitempty"`
	IntentMaxConfidence   float64 `yaml:"intent_max_confidence,omitempty"`
	SequentialConfidence  float64 `yaml:"sequential_confidence,omitempty"`
	FallbackConfidence    float64 `yaml:"fallback_confidence,omitempty"`

	// SelectionTask is the llm_mapping key used by the model-assisted stage.
	SelectionTask    string `yaml:"selection_task,omitempty"`
	EnableSequential *bool  `yaml:"enable_sequential,omitempty"`
}

// DefaultClassifierConfig returns a classifier configuration with defaults applied.
func DefaultClassifierConfig() ClassifierConfig {
	cfg := ClassifierConfig{
		Thresholds:            DefaultThresholds(),
		PatternConfidence:     0.9,
		DescriptionConfidence: 0.7,
		IntentMaxConfidence:   0.75,
		SequentialConfidence:  0.5,
		FallbackConfidence:    0.2,
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills fields whose zero value is never meaningful. Scores
// and thresholds may legitimately be zero, so they are seeded before the
// file is decoded instead.
func (c *ClassifierConfig) applyDefaults() {
	if c.DefaultTool == "" {
		c.DefaultTool = "research-manager"
	}
	if c.DescriptionMinOverlap <= 0 {
		c.DescriptionMinOverlap = 2
	}
	if c.SelectionTask == "" {
		c.SelectionTask = "tool_selection"
	}
	if c.EnableSequential == nil {
		enabled := true
		c.EnableSequential = &enabled
	}
}

// SequentialEnabled reports whether the model-assisted stage may run.
func (c ClassifierConfig) SequentialEnabled() bool {
	return c.EnableSequential == nil || *c.EnableSequential
}

// Validate checks that the bands are ordered and every score is a probability.
func (c ClassifierConfig) Validate() error {
	t := c.Thresholds
	if !(t.Low <= t.Medium && t.Medium <= t.High) {
		return &ConfigurationError{
			Field:  "classifier.thresholds",
			Reason: fmt.Sprintf("must satisfy low <= medium <= high (got %.2f, %.2f, %.2f)", t.Low, t.Medium, t.High),
		}
	}
	scores := []struct {
		field string
		value float64
	}{
		{"thresholds.high", t.High},
		{"thresholds.low", t.Low},
		{"pattern_confidence", c.PatternConfidence},
		{"description_confidence", c.DescriptionConfidence},
		{"intent_max_confidence", c.IntentMaxConfidence},
		{"sequential_confidence", c.SequentialConfidence},
		{"fallback_confidence", c.FallbackConfidence},
	}
	for _, s := range scores {
		if s.value < 0 || s.value > 1 {
			return &ConfigurationError{Field: "classifier." + s.field, Reason: "must be between 0 and 1"}
		}
	}
	if c.IntentMaxConfidence >= c.PatternConfidence {
		return &ConfigurationError{
			Field:  "classifier.intent_max_confidence",
			Reason: "must be below pattern_confidence",
		}
	}
	return nil
}
