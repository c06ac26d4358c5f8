package mcp

// In-process testing support. CallTool invokes a tool handler directly,
// bypassing the stdio transport, which keeps tests fast, synchronous, and
// debuggable with plain stack traces.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallTool is a test helper method to simulate MCP tool calls
func (s *Server) CallTool(toolName string, params map[string]interface{}) (string, error) {
	ctx := context.Background()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      toolName,
			Arguments: paramsJSON,
		},
	}

	var result *mcp.CallToolResult

	switch toolName {
	case "resolve_path":
		result, err = s.handleResolvePath(ctx, req)
	case "list_variables":
		result, err = s.handleListVariables(ctx, req)
	case "variable_info":
		result, err = s.handleVariableInfo(ctx, req)
	case "check_file":
		result, err = s.handleCheckFile(ctx, req)
	case "rescan_workspace":
		result, err = s.handleRescanWorkspace(ctx, req)
	case "workspace_status":
		result, err = s.handleWorkspaceStatus(ctx, req)
	default:
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}

	if err != nil {
		return "", err
	}
	if result == nil || len(result.Content) == 0 {
		return "", nil
	}

	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return "", fmt.Errorf("unexpected content type %T", result.Content[0])
	}

	if result.IsError {
		// Surface the error payload as a Go error for test validation.
		var response map[string]interface{}
		if json.Unmarshal([]byte(textContent.Text), &response) == nil {
			if errorMsg, ok := response["error"].(string); ok {
				details := "MCP error: " + errorMsg
				if raw, ok := response["suggestions"].([]interface{}); ok && len(raw) > 0 {
					names := make([]string, 0, len(raw))
					for _, v := range raw {
						if name, ok := v.(string); ok {
							names = append(names, name)
						}
					}
					details += "\nSuggestions: " + strings.Join(names, ", ")
				}
				return "", fmt.Errorf("%s", details)
			}
		}
		return "", fmt.Errorf("MCP error: %s", textContent.Text)
	}

	return textContent.Text, nil
}
