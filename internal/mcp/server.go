// Package mcp exposes the variable index over the Model Context Protocol so
// coding agents can resolve CMake paths in-process instead of shelling out
// and re-parsing the workspace per question.
package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/cmi/internal/config"
	"github.com/standardbeagle/cmi/internal/debug"
	"github.com/standardbeagle/cmi/internal/service"
	"github.com/standardbeagle/cmi/internal/version"
)

// Server wires the resolution engine into an MCP stdio server.
type Server struct {
	svc    *service.Service
	cfg    *config.Config
	server *mcp.Server
}

// NewServer creates a new MCP server over an initialized service.
func NewServer(svc *service.Service, cfg *config.Config) *Server {
	// Stdout carries the protocol; route all logging elsewhere.
	debug.SetMCPMode(true)

	s := &Server{
		svc: svc,
		cfg: cfg,
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "cmi-mcp-server",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "resolve_path",
		Description: "Resolve a CMake path expression like ${CMAKE_SOURCE_DIR}/src against the indexed workspace. Substitutes ${VAR} and $ENV{NAME} references, normalizes separators, and probes filesystem existence.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"expression": {
					Type:        "string",
					Description: "Path expression to resolve (e.g. \"${PROJECT_SOURCE_DIR}/include\")",
				},
				"max_depth": {
					Type:        "integer",
					Description: "Maximum substitution passes for nested variables (default 10)",
				},
			},
			Required: []string{"expression"},
		},
	}, s.handleResolvePath)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_variables",
		Description: "List indexed CMake variables and their raw values. Filter with a name prefix like CMAKE_ or PROJECT_.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"prefix": {
					Type:        "string",
					Description: "Only return variables whose name starts with this prefix",
				},
			},
		},
	}, s.handleListVariables)

	s.server.AddTool(&mcp.Tool{
		Name:        "variable_info",
		Description: "Show one variable in full: raw value, defining file and line, cache-entry flag, and the fully resolved value. Unknown names get close-match suggestions.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Variable name (e.g. \"CMAKE_SOURCE_DIR\")",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleVariableInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        "check_file",
		Description: "Scan one CMake file for path-like tokens and report the broken ones: unresolved variables or targets that do not exist on disk.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file": {
					Type:        "string",
					Description: "File to check, absolute or relative to the workspace root",
				},
			},
			Required: []string{"file"},
		},
	}, s.handleCheckFile)

	s.server.AddTool(&mcp.Tool{
		Name:        "rescan_workspace",
		Description: "Re-scan the whole workspace from scratch. Use after large checkouts or branch switches; single file edits are picked up automatically when watching is enabled.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleRescanWorkspace)

	s.server.AddTool(&mcp.Tool{
		Name:        "workspace_status",
		Description: "Report engine state: workspace root, project name, files indexed, variable count, last scan stats, and watcher activity.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleWorkspaceStatus)
}

// Run serves MCP over stdio until the context is canceled. When watch mode is
// enabled the index stays live for the whole session.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Index.WatchMode {
		if err := s.svc.StartWatching(nil, nil); err != nil {
			debug.LogMCP("file watching unavailable: %v\n", err)
		} else {
			defer s.svc.StopWatching()
		}
	}

	debug.LogMCP("serving over stdio\n")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
