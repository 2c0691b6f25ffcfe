package router

import (
	"sort"

	"github.com/zen-systems/toolroute/pkg/config"
)

// Tool is a registered tool and the cues that select it.
type Tool struct {
	ID          string
	Description string
	Patterns    []string
	Keywords    []string
	Phrases     []string
	Task        string
	Prompt      string
}

// ToolsFromConfig converts the configured catalogue into tools ordered by ID.
func ToolsFromConfig(cfg map[string]config.ToolConfig) []Tool {
	tools := make([]Tool, 0, len(cfg))
	for id, tc := range cfg {
		tools = append(tools, Tool{
			ID:          id,
			Description: tc.Description,
			Patterns:    tc.Patterns,
			Keywords:    tc.Keywords,
			Phrases:     tc.Phrases,
			Task:        tc.Task,
			Prompt:      tc.Prompt,
		})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools
}

func toolIDs(tools []Tool) []string {
	ids := make([]string, len(tools))
	for i, t := range tools {
		ids[i] = t.ID
	}
	return ids
}
