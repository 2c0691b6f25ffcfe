// Package evidence writes reasoning transcripts and routing decisions to disk
// for later inspection.
package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zen-systems/toolroute/pkg/reasoning"
	"github.com/zen-systems/toolroute/pkg/router"
)

// SessionRecord captures session-level metadata.
type SessionRecord struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	Task             string    `json:"task"`
	Model            string    `json:"model"`
	Rounds           int       `json:"rounds"`
	Truncated        bool      `json:"truncated"`
	Final            string    `json:"final"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	DurationMillis   int64     `json:"duration_ms"`
}

// RoundRecord captures one reasoning round.
type RoundRecord struct {
	Index           int     `json:"index"`
	TotalEstimate   int     `json:"total_estimate"`
	Text            string  `json:"text"`
	Continue        bool    `json:"continue"`
	IsRevision      bool    `json:"is_revision,omitempty"`
	RevisesRound    *int    `json:"revises_round,omitempty"`
	BranchPoint     *int    `json:"branch_point,omitempty"`
	BranchID        *string `json:"branch_id,omitempty"`
	NeedsMoreRounds bool    `json:"needs_more_rounds,omitempty"`
	Malformed       bool    `json:"malformed,omitempty"`
}

// DecisionRecord captures one routing decision.
type DecisionRecord struct {
	Timestamp time.Time             `json:"timestamp"`
	Request   string                `json:"request"`
	Match     *router.EnhancedMatch `json:"match"`
	Rationale string                `json:"rationale"`
}

// Writer writes evidence bundles to disk.
type Writer struct {
	baseDir string
	runDir  string
}

// NewWriter creates a new evidence writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0700); err != nil {
		return nil, err
	}
	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteSession writes session.json and one rounds/<n>.json per round.
func (w *Writer) WriteSession(sess *reasoning.Session) error {
	if sess == nil {
		return fmt.Errorf("session is required")
	}
	rounds := sess.History.Rounds()
	record := SessionRecord{
		ID:               sess.ID,
		StartedAt:        sess.StartedAt,
		Task:             sess.Task,
		Model:            sess.Model,
		Rounds:           len(rounds),
		Truncated:        sess.Truncated,
		Final:            sess.Final(),
		PromptTokens:     sess.Usage.PromptTokens,
		CompletionTokens: sess.Usage.CompletionTokens,
		TotalTokens:      sess.Usage.TotalTokens,
		DurationMillis:   sess.Duration.Milliseconds(),
	}
	if err := writeJSON(filepath.Join(w.runDir, "session.json"), record); err != nil {
		return err
	}

	roundsDir := filepath.Join(w.runDir, "rounds")
	if err := os.MkdirAll(roundsDir, 0700); err != nil {
		return err
	}

	for _, r := range rounds {
		rr := RoundRecord{
			Index:           r.Index,
			TotalEstimate:   r.TotalEstimate,
			Text:            r.Text,
			Continue:        r.Continue,
			IsRevision:      r.IsRevision,
			RevisesRound:    r.RevisesRound,
			BranchPoint:     r.BranchPoint,
			BranchID:        r.BranchID,
			NeedsMoreRounds: r.NeedsMoreRounds,
			Malformed:       r.Malformed,
		}
		path := filepath.Join(roundsDir, fmt.Sprintf("%03d.json", r.Index))
		if err := writeJSON(path, rr); err != nil {
			return err
		}
	}
	return nil
}

// WriteDecision writes decision.json.
func (w *Writer) WriteDecision(request string, match *router.EnhancedMatch) error {
	if match == nil {
		return fmt.Errorf("match is required")
	}
	return writeJSON(filepath.Join(w.runDir, "decision.json"), DecisionRecord{
		Timestamp: time.Now().UTC(),
		Request:   request,
		Match:     match,
		Rationale: router.Explain(match),
	})
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
