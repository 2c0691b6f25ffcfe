package router

import (
	"github.com/zen-systems/toolroute/pkg/config"
)

// RouteInfo describes a registered tool and the model its execution uses.
type RouteInfo struct {
	ToolID      string
	Description string
	Patterns    []string
	Keywords    []string
	Task        string
	Model       string // Empty when no model is configured for the task
}

// Routes lists every registered tool with the model selected for its task.
func (c *Classifier) Routes(model config.ModelConfig) []RouteInfo {
	routes := make([]RouteInfo, 0, len(c.tools))
	for _, tool := range c.tools {
		resolved, err := model.SelectModel(tool.Task)
		if err != nil {
			resolved = ""
		}
		routes = append(routes, RouteInfo{
			ToolID:      tool.ID,
			Description: tool.Description,
			Patterns:    tool.Patterns,
			Keywords:    tool.Keywords,
			Task:        tool.Task,
			Model:       resolved,
		})
	}
	return routes
}
