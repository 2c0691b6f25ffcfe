package reasoning

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/toolroute/pkg/adapter"
)

// Round is one step of a reasoning session.
type Round struct {
	Index         int    `json:"index"`
	TotalEstimate int    `json:"total_estimate"`
	Text          string `json:"text"`
	Continue      bool   `json:"continue"`

	IsRevision      bool    `json:"is_revision,omitempty"`
	RevisesRound    *int    `json:"revises_round,omitempty"`
	BranchPoint     *int    `json:"branch_point,omitempty"`
	BranchID        *string `json:"branch_id,omitempty"`
	NeedsMoreRounds bool    `json:"needs_more_rounds,omitempty"`

	// Malformed marks a round synthesized from output that was not valid
	// round JSON. Its Text is the raw model output.
	Malformed bool `json:"malformed,omitempty"`
}

// History is an append-only log of rounds. Indices strictly increase.
type History struct {
	rounds []Round
}

// Append adds a round. The round's index must follow the last one.
func (h *History) Append(r Round) error {
	if r.Index != len(h.rounds)+1 {
		return fmt.Errorf("round index %d out of order (expected %d)", r.Index, len(h.rounds)+1)
	}
	h.rounds = append(h.rounds, r)
	return nil
}

// Len returns the number of rounds.
func (h *History) Len() int {
	return len(h.rounds)
}

// Last returns the most recent round.
func (h *History) Last() (Round, bool) {
	if len(h.rounds) == 0 {
		return Round{}, false
	}
	return h.rounds[len(h.rounds)-1], true
}

// Rounds returns a copy of the log.
func (h *History) Rounds() []Round {
	out := make([]Round, len(h.rounds))
	copy(out, h.rounds)
	return out
}

// Session is the state of one reasoning run. It is owned by a single
// goroutine and discarded when the run returns.
type Session struct {
	ID        string        `json:"id"`
	Task      string        `json:"task"`
	Model     string        `json:"model"`
	History   History       `json:"-"`
	Truncated bool          `json:"truncated,omitempty"`
	Usage     adapter.Usage `json:"usage"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

func newSession(task, model string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Task:      task,
		Model:     model,
		StartedAt: time.Now(),
	}
}

// Final returns the text of the last round, or "" for an empty session.
func (s *Session) Final() string {
	if s == nil {
		return ""
	}
	last, ok := s.History.Last()
	if !ok {
		return ""
	}
	return last.Text
}
