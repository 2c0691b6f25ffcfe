package router

import "github.com/zen-systems/toolroute/pkg/config"

// Method names the classification stage that produced a match.
type Method string

const (
	MethodRule       Method = "rule"
	MethodIntent     Method = "intent"
	MethodSequential Method = "sequential"
	MethodFallback   Method = "fallback"
)

// DescriptionMatch is the MatchedPattern of a rule match found through the
// tool description rather than a declared pattern.
const DescriptionMatch = "description_match"

// Candidate is a scored guess at the tool for a request.
type Candidate struct {
	ToolID         string  `json:"tool_id"`
	Confidence     float64 `json:"confidence"`
	MatchedPattern string  `json:"matched_pattern,omitempty"`
}

// EnhancedMatch is the classifier's final answer.
type EnhancedMatch struct {
	Candidate
	Parameters           map[string]string `json:"parameters"`
	Method               Method            `json:"method"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	// Reasons records why earlier stages declined.
	Reasons []string `json:"reasons,omitempty"`
}

// needsConfirmation is the single rule for when a caller must confirm a
// match before running the tool.
func needsConfirmation(method Method, confidence float64, t config.Thresholds) bool {
	if method == MethodSequential || method == MethodFallback {
		return true
	}
	return confidence < t.High
}

func clamp(confidence float64) float64 {
	switch {
	case confidence < 0:
		return 0
	case confidence > 1:
		return 1
	}
	return confidence
}
