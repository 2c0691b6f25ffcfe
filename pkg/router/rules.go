package router

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/zen-systems/toolroute/pkg/config"
)

// RuleMatcher matches requests against declared tool patterns, then against
// tool descriptions. It holds only compiled, read-only state.
type RuleMatcher struct {
	cfg config.ClassifierConfig
	// Compiled rules ordered by priority (more literal text first for specificity)
	rules        []compiledRule
	byPattern    map[string]compiledRule
	descriptions []toolWords
}

type compiledRule struct {
	toolID  string
	pattern string
	// literalLen counts pattern characters outside {slot} placeholders.
	literalLen int
	// re is nil for literal patterns.
	re    *regexp.Regexp
	slots []string
}

type toolWords struct {
	toolID string
	words  map[string]struct{}
}

var slotPattern = regexp.MustCompile(`\{(\w+)\}`)

// NewRuleMatcher compiles the patterns of every tool.
func NewRuleMatcher(tools []Tool, cfg config.ClassifierConfig) *RuleMatcher {
	rm := &RuleMatcher{cfg: cfg, byPattern: make(map[string]compiledRule)}
	rm.compile(tools)
	return rm
}

func (rm *RuleMatcher) compile(tools []Tool) {
	for _, tool := range tools {
		for _, p := range tool.Patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			rule := compilePattern(tool.ID, p)
			rm.rules = append(rm.rules, rule)
			if _, dup := rm.byPattern[p]; !dup {
				rm.byPattern[p] = rule
			}
		}
		rm.descriptions = append(rm.descriptions, toolWords{
			toolID: tool.ID,
			words:  significantWords(tool.Description),
		})
	}

	// Rank by literal text so slot names never make a template outrank a
	// literal pattern the request equals.
	sort.SliceStable(rm.rules, func(i, j int) bool {
		if rm.rules[i].literalLen != rm.rules[j].literalLen {
			return rm.rules[i].literalLen > rm.rules[j].literalLen
		}
		if len(rm.rules[i].pattern) != len(rm.rules[j].pattern) {
			return len(rm.rules[i].pattern) > len(rm.rules[j].pattern)
		}
		if rm.rules[i].toolID != rm.rules[j].toolID {
			return rm.rules[i].toolID < rm.rules[j].toolID
		}
		return rm.rules[i].pattern < rm.rules[j].pattern
	})
}

// Match returns the best rule candidate for a request, or nil.
func (rm *RuleMatcher) Match(request string) *Candidate {
	normalized := normalizeRequest(request)
	if normalized == "" {
		return nil
	}
	lower := strings.ToLower(normalized)

	for _, rule := range rm.rules {
		if rule.matches(normalized, lower) {
			return &Candidate{
				ToolID:         rule.toolID,
				Confidence:     clamp(rm.cfg.PatternConfidence),
				MatchedPattern: rule.pattern,
			}
		}
	}

	return rm.matchDescription(lower)
}

// ExtractParameters fills the pattern's {slot} placeholders from the request.
// Literal patterns, the description match and non-matching requests yield an
// empty map.
func (rm *RuleMatcher) ExtractParameters(request, pattern string) map[string]string {
	params := make(map[string]string)
	if pattern == "" || pattern == DescriptionMatch {
		return params
	}
	rule, ok := rm.byPattern[pattern]
	if !ok {
		rule = compilePattern("", pattern)
	}
	if rule.re == nil {
		return params
	}

	m := rule.re.FindStringSubmatch(normalizeRequest(request))
	if m == nil {
		return params
	}
	for i, slot := range rule.slots {
		if v := cleanSlotValue(m[i+1]); v != "" {
			params[slot] = v
		}
	}
	return params
}

func (rm *RuleMatcher) matchDescription(lowerRequest string) *Candidate {
	requestWords := significantWords(lowerRequest)
	if len(requestWords) == 0 {
		return nil
	}

	bestID := ""
	bestOverlap := 0
	for _, tw := range rm.descriptions {
		overlap := 0
		for w := range requestWords {
			if _, ok := tw.words[w]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestID, bestOverlap = tw.toolID, overlap
		}
	}

	if bestID == "" || bestOverlap < rm.cfg.DescriptionMinOverlap {
		return nil
	}
	return &Candidate{
		ToolID:         bestID,
		Confidence:     clamp(rm.cfg.DescriptionConfidence),
		MatchedPattern: DescriptionMatch,
	}
}

func (r compiledRule) matches(normalized, lower string) bool {
	if r.re != nil {
		return r.re.MatchString(normalized)
	}
	return containsTrigger(lower, strings.ToLower(r.pattern))
}

// compilePattern turns "break down {product} into tasks" into an anchored,
// case-insensitive expression with one capture per slot.
func compilePattern(toolID, pattern string) compiledRule {
	rule := compiledRule{
		toolID:     toolID,
		pattern:    pattern,
		literalLen: len(slotPattern.ReplaceAllString(pattern, "")),
	}
	locs := slotPattern.FindAllStringSubmatchIndex(pattern, -1)
	if len(locs) == 0 {
		return rule
	}

	var sb strings.Builder
	sb.WriteString(`(?is)^`)
	last := 0
	for i, loc := range locs {
		sb.WriteString(literalExpr(pattern[last:loc[0]]))
		rule.slots = append(rule.slots, pattern[loc[2]:loc[3]])
		if i == len(locs)-1 {
			sb.WriteString(`(.+)`)
		} else {
			sb.WriteString(`(.+?)`)
		}
		last = loc[1]
	}
	sb.WriteString(literalExpr(pattern[last:]))
	sb.WriteString(`$`)

	rule.re = regexp.MustCompile(sb.String())
	return rule
}

// literalExpr quotes literal pattern text, letting any run of whitespace
// match any run of whitespace.
func literalExpr(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return `\s+`
	}
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	out := strings.Join(fields, `\s+`)
	if unicode.IsSpace(rune(s[0])) {
		out = `\s+` + out
	}
	if unicode.IsSpace(rune(s[len(s)-1])) {
		out += `\s+`
	}
	return out
}

var politePrefixes = []string{
	"please ",
	"kindly ",
	"can you ",
	"could you ",
	"would you ",
	"will you ",
	"i want you to ",
	"i need you to ",
	"i'd like you to ",
	"help me ",
}

// normalizeRequest trims whitespace, trailing punctuation and polite lead-ins
// while preserving case.
func normalizeRequest(request string) string {
	s := strings.Join(strings.Fields(request), " ")
	s = strings.TrimRight(s, ".!? ")
	for changed := true; changed; {
		changed = false
		for _, p := range politePrefixes {
			if len(s) > len(p) && strings.EqualFold(s[:len(p)], p) {
				s = strings.TrimSpace(s[len(p):])
				changed = true
			}
		}
	}
	return s
}

func cleanSlotValue(v string) string {
	return strings.Trim(strings.TrimSpace(v), "\"'`“”‘’.,;:!? ")
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+(?:-[a-z0-9]+)*`)

var stopwords = map[string]struct{}{
	"about": {}, "also": {}, "away": {}, "been": {}, "could": {}, "does": {}, "each": {},
	"from": {}, "have": {}, "into": {}, "just": {}, "like": {}, "make": {}, "more": {},
	"need": {}, "please": {}, "some": {}, "such": {}, "than": {}, "that": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "what": {},
	"when": {}, "which": {}, "will": {}, "with": {}, "would": {}, "your": {}, "want": {},
}

// significantWords returns the lowercased content words of s with a crude
// plural fold, so "topics" and "topic" compare equal.
func significantWords(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		if len(w) < 4 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len(w) > 4 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			w = strings.TrimSuffix(w, "s")
		}
		words[w] = struct{}{}
	}
	return words
}

// containsTrigger checks if the text contains the trigger phrase.
// It looks for the trigger as a word or phrase boundary match.
func containsTrigger(text, trigger string) bool {
	if trigger == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], trigger)
		if idx == -1 {
			return false
		}
		idx += offset

		endIdx := idx + len(trigger)
		before := idx == 0 || !isWordChar(text[idx-1])
		after := endIdx >= len(text) || !isWordChar(text[endIdx])
		if before && after {
			return true
		}
		offset = idx + 1
	}
	return false
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
