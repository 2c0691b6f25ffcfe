package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zen-systems/toolroute/pkg/config"
)

const (
	keywordWeight = 1.0
	phraseWeight  = 1.5

	intentBase      = 0.35
	intentPerPoint  = 0.1
	intentUnique    = 0.1
	intentContested = 0.8
)

// IntentDetector scores requests against looser per-tool cues. Its
// confidence is capped below what a pattern rule produces.
type IntentDetector struct {
	cfg   config.ClassifierConfig
	tools []intentCues
}

type intentCues struct {
	toolID   string
	keywords []string
	phrases  []compiledPhrase
}

type compiledPhrase struct {
	source string
	re     *regexp.Regexp
}

// NewIntentDetector compiles every tool's keywords and phrase expressions.
func NewIntentDetector(tools []Tool, cfg config.ClassifierConfig) (*IntentDetector, error) {
	d := &IntentDetector{cfg: cfg}
	for _, tool := range tools {
		cues := intentCues{toolID: tool.ID}
		for _, kw := range tool.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				cues.keywords = append(cues.keywords, kw)
			}
		}
		for _, p := range tool.Phrases {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("tool %q: invalid phrase %q: %w", tool.ID, p, err)
			}
			cues.phrases = append(cues.phrases, compiledPhrase{source: p, re: re})
		}
		d.tools = append(d.tools, cues)
	}
	return d, nil
}

// Detect returns the strongest intent candidate, or nil when no cue fires.
func (d *IntentDetector) Detect(request string) *Candidate {
	lower := strings.ToLower(normalizeRequest(request))
	if lower == "" {
		return nil
	}

	var (
		bestID     string
		bestCue    string
		bestScore  float64
		secondBest float64
	)
	for _, tool := range d.tools {
		score, cue := tool.score(lower)
		switch {
		case score > bestScore:
			secondBest = bestScore
			bestID, bestCue, bestScore = tool.toolID, cue, score
		case score > secondBest:
			secondBest = score
		}
	}
	if bestID == "" {
		return nil
	}

	confidence := intentBase + intentPerPoint*bestScore
	switch {
	case secondBest == 0:
		confidence += intentUnique
	case secondBest >= 0.7*bestScore:
		confidence *= intentContested
	}
	if confidence > d.cfg.IntentMaxConfidence {
		confidence = d.cfg.IntentMaxConfidence
	}

	return &Candidate{
		ToolID:         bestID,
		Confidence:     clamp(confidence),
		MatchedPattern: bestCue,
	}
}

// score sums the weights of every cue found in text and reports the
// strongest one.
func (c intentCues) score(text string) (float64, string) {
	var (
		total      float64
		strongest  string
		strongestW float64
	)
	consider := func(cue string, w float64) {
		total += w
		if w > strongestW || (w == strongestW && len(cue) > len(strongest)) {
			strongest, strongestW = cue, w
		}
	}
	for _, kw := range c.keywords {
		if containsTrigger(text, kw) {
			consider(kw, keywordWeight)
		}
	}
	for _, p := range c.phrases {
		if m := p.re.FindString(text); m != "" {
			consider(m, phraseWeight)
		}
	}
	return total, strongest
}

var (
	quotedSpan = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|(?:^|\s)'([^']+)'(?:$|[\s.,;:!?])`)
	topicSpan  = regexp.MustCompile(`(?i)\b(?:about|on|regarding|for)\s+([^.?!]+)`)
)

// ExtractContextParameters pulls a query from free text: the longest quoted
// span, else the longest span after a topic preposition, else the whole
// request. "topic" is set when a preposition span was found.
func ExtractContextParameters(request string) map[string]string {
	params := make(map[string]string)
	text := strings.TrimSpace(request)

	if quoted := longestSubmatch(quotedSpan, text); quoted != "" {
		params["query"] = quoted
	}
	if topic := longestSubmatch(topicSpan, text); topic != "" {
		params["topic"] = topic
		if _, ok := params["query"]; !ok {
			params["query"] = topic
		}
	}
	if _, ok := params["query"]; !ok {
		params["query"] = strings.TrimRight(text, ".!? ")
	}
	return params
}

func longestSubmatch(re *regexp.Regexp, text string) string {
	longest := ""
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		for _, g := range m[1:] {
			if g = cleanSlotValue(g); len(g) > len(longest) {
				longest = g
			}
		}
	}
	return longest
}
