package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/dispatch"
	"github.com/zen-systems/toolroute/pkg/router"
)

// ProcessRequestTool handles the process-request MCP tool: classify the
// request, then run the chosen tool when the match is confident or the
// caller confirmed it.
type ProcessRequestTool struct {
	classifier *router.Classifier
	dispatcher *dispatch.Dispatcher
	model      config.ModelConfig
	logger     zerolog.Logger
}

// NewProcessRequestTool creates a ProcessRequestTool. A nil dispatcher
// makes the tool classify only.
func NewProcessRequestTool(classifier *router.Classifier, dispatcher *dispatch.Dispatcher, model config.ModelConfig, logger zerolog.Logger) *ProcessRequestTool {
	return &ProcessRequestTool{classifier: classifier, dispatcher: dispatcher, model: model, logger: logger}
}

// Definition returns the MCP tool definition for process-request.
func (t *ProcessRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("process-request",
		mcp.WithDescription(
			"Route a natural-language request to the most suitable tool and run it. "+
				"Low-confidence matches are returned for confirmation instead of running.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The user's request in plain language"),
		),
		mcp.WithBoolean("confirmed",
			mcp.Description("Run the matched tool even when the match needs confirmation (default: false)"),
		),
	)
}

// Handle processes the process-request tool call.
func (t *ProcessRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	request := req.GetString("request", "")
	if strings.TrimSpace(request) == "" {
		return mcp.NewToolResultError("'request' is required"), nil
	}
	confirmed := boolArg(req, "confirmed", false)

	match := t.classifier.Classify(ctx, request, t.model)
	explanation := router.Explain(match)
	if t.dispatcher == nil {
		return mcp.NewToolResultText(explanation), nil
	}

	res, err := t.dispatcher.Dispatch(ctx, match, confirmed)
	switch {
	case errors.Is(err, dispatch.ErrConfirmationRequired):
		return mcp.NewToolResultText(fmt.Sprintf(
			"%s\nCall process-request again with confirmed=true to run %s.", explanation, match.ToolID)), nil
	case err != nil:
		t.logger.Error().Err(err).Str("tool", match.ToolID).Msg("process-request failed")
		return mcp.NewToolResultError(fmt.Sprintf("%s\nfailed to run %s: %v", explanation, match.ToolID, err)), nil
	}
	return mcp.NewToolResultText(explanation + "\n\n" + res.Output), nil
}

// ClassifyRequestTool handles the classify-request MCP tool.
type ClassifyRequestTool struct {
	classifier *router.Classifier
	model      config.ModelConfig
}

// NewClassifyRequestTool creates a ClassifyRequestTool.
func NewClassifyRequestTool(classifier *router.Classifier, model config.ModelConfig) *ClassifyRequestTool {
	return &ClassifyRequestTool{classifier: classifier, model: model}
}

// Definition returns the MCP tool definition for classify-request.
func (t *ClassifyRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("classify-request",
		mcp.WithDescription("Classify a request without running anything. Returns the match and a short rationale as JSON."),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The user's request in plain language"),
		),
	)
}

type classification struct {
	Match     *router.EnhancedMatch `json:"match"`
	Rationale string                `json:"rationale"`
}

// Handle processes the classify-request tool call.
func (t *ClassifyRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	request := req.GetString("request", "")
	if strings.TrimSpace(request) == "" {
		return mcp.NewToolResultError("'request' is required"), nil
	}

	match := t.classifier.Classify(ctx, request, t.model)
	data, err := json.MarshalIndent(classification{Match: match, Rationale: router.Explain(match)}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode match: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ListToolsTool handles the list-tools MCP tool.
type ListToolsTool struct {
	classifier *router.Classifier
	model      config.ModelConfig
}

// NewListToolsTool creates a ListToolsTool.
func NewListToolsTool(classifier *router.Classifier, model config.ModelConfig) *ListToolsTool {
	return &ListToolsTool{classifier: classifier, model: model}
}

// Definition returns the MCP tool definition for list-tools.
func (t *ListToolsTool) Definition() mcp.Tool {
	return mcp.NewTool("list-tools",
		mcp.WithDescription("List the tools requests can be routed to, with their patterns and models."),
	)
}

// Handle processes the list-tools tool call.
func (t *ListToolsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	for _, r := range t.classifier.Routes(t.model) {
		model := r.Model
		if model == "" {
			model = "(none)"
		}
		sb.WriteString(fmt.Sprintf("## %s\n%s\nModel: %s\n", r.ToolID, r.Description, model))
		if len(r.Patterns) > 0 {
			sb.WriteString("Patterns: " + strings.Join(r.Patterns, "; ") + "\n")
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(strings.TrimSpace(sb.String())), nil
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
