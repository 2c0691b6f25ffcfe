package router

import "strings"

// NormalizeToolAnswer maps a free-text model answer onto a registered tool
// ID. Only the first non-empty line is read. A leading "label:" is dropped,
// the rest is lowercased, and the answer is accepted when it names a tool
// exactly or contains a tool ID. The longest contained ID wins.
func NormalizeToolAnswer(answer string, ids []string) (string, bool) {
	line := firstLine(answer)
	if line == "" {
		return "", false
	}

	candidates := []string{line}
	if idx := strings.Index(line, ":"); idx >= 0 {
		candidates = []string{line[idx+1:], line}
	}

	for _, c := range candidates {
		c = strings.ToLower(strings.Trim(strings.TrimSpace(c), "\"'`*_.,;!?()[] "))
		if c == "" {
			continue
		}
		for _, id := range ids {
			if c == strings.ToLower(id) {
				return id, true
			}
		}
		best := ""
		for _, id := range ids {
			if strings.Contains(c, strings.ToLower(id)) && len(id) > len(best) {
				best = id
			}
		}
		if best != "" {
			return best, true
		}
	}
	return "", false
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
