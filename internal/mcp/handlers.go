package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/cmi/internal/service"
	"github.com/standardbeagle/cmi/pkg/pathutil"
)

type ResolvePathParams struct {
	Expression string `json:"expression"`
	MaxDepth   int    `json:"max_depth,omitempty"`
}

type ListVariablesParams struct {
	Prefix string `json:"prefix,omitempty"`
}

type VariableInfoParams struct {
	Name string `json:"name"`
}

type CheckFileParams struct {
	File string `json:"file"`
}

func (s *Server) handleResolvePath(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ResolvePathParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("resolve_path", fmt.Errorf("invalid parameters: %w", err))
	}
	if strings.TrimSpace(params.Expression) == "" {
		return createErrorResponse("resolve_path", errors.New("expression is required"))
	}

	// A zero or absent max_depth selects the configured default.
	resolved := s.svc.ResolvePath(params.Expression, params.MaxDepth)
	return createJSONResponse(resolved)
}

func (s *Server) handleListVariables(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ListVariablesParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("list_variables", fmt.Errorf("invalid parameters: %w", err))
	}

	type entry struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	entries := []entry{}
	for _, name := range s.svc.Names() {
		if params.Prefix != "" && !strings.HasPrefix(name, params.Prefix) {
			continue
		}
		if value, ok := s.svc.Get(name); ok {
			entries = append(entries, entry{Name: name, Value: value})
		}
	}

	return createJSONResponse(map[string]interface{}{
		"count":     len(entries),
		"variables": entries,
	})
}

func (s *Server) handleVariableInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params VariableInfoParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("variable_info", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Name == "" {
		return createErrorResponse("variable_info", errors.New("name is required"))
	}

	value, ok := s.svc.Get(params.Name)
	if !ok {
		errorContext := map[string]interface{}{}
		if suggestions := s.svc.Suggest(params.Name, 5); len(suggestions) > 0 {
			names := make([]string, len(suggestions))
			for i, sg := range suggestions {
				names[i] = sg.Name
			}
			errorContext["suggestions"] = names
		}
		return createSmartErrorResponse("variable_info",
			fmt.Errorf("variable %q is not defined in the workspace", params.Name), errorContext)
	}

	info := map[string]interface{}{
		"name":  params.Name,
		"value": value,
	}
	if b, ok := s.svc.GetBinding(params.Name); ok {
		// Workspace-relative paths keep responses readable for agents.
		info["defined_in"] = pathutil.ToRelative(b.DefinedIn, s.cfg.Project.Root)
		info["defined_at_line"] = b.DefinedAtLine
		info["is_cache_entry"] = b.IsCacheEntry
	}

	resolved := s.svc.ResolvePath("${" + params.Name + "}")
	info["resolved"] = resolved.Resolved
	info["exists"] = resolved.Exists
	if len(resolved.UnresolvedVariables) > 0 {
		info["unresolved"] = resolved.UnresolvedVariables
	}
	return createJSONResponse(info)
}

func (s *Server) handleCheckFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params CheckFileParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("check_file", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.File == "" {
		return createErrorResponse("check_file", errors.New("file is required"))
	}

	path := params.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.Project.Root, path)
	}

	diags, err := s.svc.CheckFile(path)
	if err != nil {
		return createErrorResponse("check_file", err)
	}
	if diags == nil {
		diags = []service.Diagnostic{}
	}
	return createJSONResponse(service.CheckResult{
		File:        pathutil.ToRelative(path, s.cfg.Project.Root),
		Diagnostics: diags,
	})
}

func (s *Server) handleRescanWorkspace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.ScanAll(ctx)
	if err != nil {
		return createErrorResponse("rescan_workspace", err)
	}
	return createJSONResponse(map[string]interface{}{
		"files_scanned": stats.FilesScanned,
		"files_skipped": stats.FilesSkipped,
		"bindings":      stats.Bindings,
		"duration_ms":   stats.Duration.Milliseconds(),
	})
}

func (s *Server) handleWorkspaceStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return createJSONResponse(s.svc.Status())
}
