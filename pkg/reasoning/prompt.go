package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const systemPrompt = `You are a careful problem solver who thinks in numbered steps.

Each reply is exactly one step, written as a single JSON object with these fields:
- "thought" (string): the content of this step.
- "next_thought_needed" (boolean): true if another step is needed, false when the answer is complete.
- "thought_number" (integer): the number of this step, starting at 1.
- "total_thoughts" (integer): your current estimate of how many steps are needed. You may raise or lower it.
- "is_revision" (boolean, optional): true if this step reconsiders an earlier one.
- "revises_thought" (integer, optional): which step is being reconsidered.
- "branch_from_thought" (integer, optional): the step this one branches from.
- "branch_id" (string, optional): a label for the branch.
- "needs_more_thoughts" (boolean, optional): true if you reached the end but realise more steps are needed.

Do not wrap the JSON in markdown. When next_thought_needed is false, the thought must contain the final answer.`

// buildSystemPrompt appends caller instructions to the step protocol.
func buildSystemPrompt(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + extra
}

// buildUserPrompt renders the prior rounds followed by the task.
func buildUserPrompt(task string, rounds []Round, estimate int) string {
	var sb strings.Builder
	if len(rounds) > 0 {
		sb.WriteString("Previous thoughts:\n")
		for _, r := range rounds {
			sb.WriteString(fmt.Sprintf("[Thought %d/%d]", r.Index, r.TotalEstimate))
			switch {
			case r.IsRevision && r.RevisesRound != nil:
				sb.WriteString(fmt.Sprintf(" (revises thought %d)", *r.RevisesRound))
			case r.BranchPoint != nil:
				branch := ""
				if r.BranchID != nil {
					branch = " " + *r.BranchID
				}
				sb.WriteString(fmt.Sprintf(" (branch%s from thought %d)", branch, *r.BranchPoint))
			}
			sb.WriteString(": ")
			sb.WriteString(r.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Task: ")
	sb.WriteString(task)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Provide thought %d of an estimated %d as a JSON object.", len(rounds)+1, estimate))
	return sb.String()
}

type wireRound struct {
	Thought           *string `json:"thought"`
	NextThoughtNeeded *bool   `json:"next_thought_needed"`
	ThoughtNumber     *int    `json:"thought_number"`
	TotalThoughts     *int    `json:"total_thoughts"`
	IsRevision        bool    `json:"is_revision"`
	RevisesThought    *int    `json:"revises_thought"`
	BranchFromThought *int    `json:"branch_from_thought"`
	BranchID          *string `json:"branch_id"`
	NeedsMoreThoughts bool    `json:"needs_more_thoughts"`
}

var errMissingField = errors.New("missing required field")

// parseRound decodes a model reply. Markdown code fences are tolerated.
func parseRound(content string) (*wireRound, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var w wireRound
	if err := json.Unmarshal([]byte(content), &w); err != nil {
		return nil, err
	}
	switch {
	case w.Thought == nil:
		return nil, fmt.Errorf("%w: thought", errMissingField)
	case w.NextThoughtNeeded == nil:
		return nil, fmt.Errorf("%w: next_thought_needed", errMissingField)
	case w.ThoughtNumber == nil:
		return nil, fmt.Errorf("%w: thought_number", errMissingField)
	case w.TotalThoughts == nil:
		return nil, fmt.Errorf("%w: total_thoughts", errMissingField)
	}
	return &w, nil
}
