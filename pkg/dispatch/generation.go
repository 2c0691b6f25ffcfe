package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/reasoning"
	"github.com/zen-systems/toolroute/pkg/router"
)

// Runner runs a reasoning session. *reasoning.Engine satisfies it.
type Runner interface {
	RunSession(ctx context.Context, req reasoning.Request, cfg config.ModelConfig) (*reasoning.Session, error)
}

// GenerationExecutor produces a tool's output with the reasoning engine.
// The tool prompt is a text/template evaluated against the parameters, so
// a prompt may reference {{.topic}} or {{.product}}.
type GenerationExecutor struct {
	tool   router.Tool
	prompt *template.Template
	runner Runner
	model  config.ModelConfig
}

// NewGenerationExecutor parses the tool prompt.
func NewGenerationExecutor(tool router.Tool, runner Runner, model config.ModelConfig) (*GenerationExecutor, error) {
	if runner == nil {
		return nil, fmt.Errorf("tool %q: runner is required", tool.ID)
	}
	tmpl, err := template.New(tool.ID).Option("missingkey=zero").Parse(tool.Prompt)
	if err != nil {
		return nil, fmt.Errorf("tool %q: parse prompt: %w", tool.ID, err)
	}
	return &GenerationExecutor{tool: tool, prompt: tmpl, runner: runner, model: model}, nil
}

// GenerationExecutors builds one executor per tool.
func GenerationExecutors(tools []router.Tool, runner Runner, model config.ModelConfig) ([]Executor, error) {
	out := make([]Executor, 0, len(tools))
	for _, tool := range tools {
		ex, err := NewGenerationExecutor(tool, runner, model)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

// ID returns the tool ID.
func (g *GenerationExecutor) ID() string {
	return g.tool.ID
}

// Execute renders the prompt and returns the engine's final answer.
func (g *GenerationExecutor) Execute(ctx context.Context, params map[string]string) (string, error) {
	task, err := g.render(params)
	if err != nil {
		return "", err
	}
	sess, err := g.runner.RunSession(ctx, reasoning.Request{
		Task:      task,
		ModelTask: g.tool.Task,
	}, g.model)
	if err != nil {
		return "", err
	}
	return sess.Final(), nil
}

func (g *GenerationExecutor) render(params map[string]string) (string, error) {
	var sb strings.Builder
	if err := g.prompt.Execute(&sb, params); err != nil {
		return "", fmt.Errorf("tool %q: render prompt: %w", g.tool.ID, err)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		sb.WriteString("\n\nParameters:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", k, params[k]))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
