package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeToolAnswer(t *testing.T) {
	ids := toolIDs(defaultTools())

	tests := []struct {
		name   string
		answer string
		want   string
		wantOK bool
	}{
		{"exact id", "task-list-generator", "task-list-generator", true},
		{"labelled and cased", "Tool: PRD-Generator", "prd-generator", true},
		{"sentence on first line", "Answer: I'd pick the user-stories-generator here.\nBecause stories.", "user-stories-generator", true},
		{"id before colon", "research-manager: best for this", "research-manager", true},
		{"leading blank lines", "\n\n  rules-generator  ", "rules-generator", true},
		{"quoted", "`fullstack-starter-kit-generator`", "fullstack-starter-kit-generator", true},
		{"only first line is read", "not sure yet\nprd-generator", "", false},
		{"unknown", "none of them", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeToolAnswer(tt.answer, ids)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeToolAnswer_LongestContainedIDWins(t *testing.T) {
	ids := []string{"task-list", "task-list-generator"}

	got, ok := NormalizeToolAnswer("use task-list-generator.", ids)
	assert.True(t, ok)
	assert.Equal(t, "task-list-generator", got)
}
