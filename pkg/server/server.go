// Package server exposes the router over the Model Context Protocol.
//
// New is the composition point for MCP: it takes an already built
// classifier and dispatcher and registers the tools that use them.
package server

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/logging"
	"github.com/zen-systems/toolroute/pkg/dispatch"
	"github.com/zen-systems/toolroute/pkg/router"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the components the MCP tools call into.
type Deps struct {
	Classifier *router.Classifier
	// Dispatcher may be nil, in which case process-request only classifies.
	Dispatcher *dispatch.Dispatcher
	Model      config.ModelConfig
	Logger     zerolog.Logger
}

// New creates the MCP server with every tool registered.
func New(cfg config.ServerConfig, deps Deps) *server.MCPServer {
	name := cfg.Name
	if name == "" {
		name = "toolroute"
	}
	logger := logging.Component(deps.Logger, "mcp")

	s := server.NewMCPServer(
		name,
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	process := NewProcessRequestTool(deps.Classifier, deps.Dispatcher, deps.Model, logger)
	s.AddTool(process.Definition(), process.Handle)

	classify := NewClassifyRequestTool(deps.Classifier, deps.Model)
	s.AddTool(classify.Definition(), classify.Handle)

	list := NewListToolsTool(deps.Classifier, deps.Model)
	s.AddTool(list.Definition(), list.Handle)

	return s
}

const instructions = `Use process-request for any request that one of the listed generators or the research manager could handle.
If the result asks for confirmation, show the rationale to the user and call process-request again with confirmed=true once they agree.
Use classify-request to see which tool would be chosen without running it.`
