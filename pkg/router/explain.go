package router

import "fmt"

// Explain renders a short human-readable rationale for a match.
func Explain(m *EnhancedMatch) string {
	if m == nil {
		return "No match was produced."
	}

	var text string
	switch m.Method {
	case MethodRule:
		if m.MatchedPattern == DescriptionMatch {
			text = fmt.Sprintf("Matched %s because the request shares key terms with its description (confidence %.2f).", m.ToolID, m.Confidence)
		} else {
			text = fmt.Sprintf("Matched %s with the pattern %q (confidence %.2f).", m.ToolID, m.MatchedPattern, m.Confidence)
		}
	case MethodIntent:
		if m.MatchedPattern != "" {
			text = fmt.Sprintf("Detected a %s intent from %q (confidence %.2f).", m.ToolID, m.MatchedPattern, m.Confidence)
		} else {
			text = fmt.Sprintf("Detected a %s intent (confidence %.2f).", m.ToolID, m.Confidence)
		}
	case MethodSequential:
		text = fmt.Sprintf("Selected %s after step-by-step model reasoning (confidence %.2f).", m.ToolID, m.Confidence)
	case MethodFallback:
		text = fmt.Sprintf("No confident match was found, so the default tool %s was chosen (confidence %.2f).", m.ToolID, m.Confidence)
	default:
		text = fmt.Sprintf("Selected %s (confidence %.2f).", m.ToolID, m.Confidence)
	}

	if m.RequiresConfirmation {
		text += " Please confirm before running it."
	}
	return text
}
