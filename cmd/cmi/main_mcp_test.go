package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests use the official MCP SDK client to drive the server binary
// through the actual stdio protocol, providing true end-to-end coverage.

// testClientImpl is the client implementation used for all SDK-based tests
var testClientImpl = &mcp.Implementation{Name: "cmi-test-client", Version: "1.0.0"}

// resultText collects the text content from a tool call result
func resultText(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(*mcp.TextContent); ok {
			sb.WriteString(textContent.Text)
		}
	}
	return sb.String()
}

// TestMCPServerInitialize tests basic MCP initialization using the SDK client
func TestMCPServerInitialize(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test (spawns process)")
	}
	if testBinaryPath == "" {
		t.Fatal("Test binary not built - TestMain did not run")
	}

	projectDir := setupTestWorkspace(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.Command(testBinaryPath, "-r", projectDir, "mcp")

	client := mcp.NewClient(testClientImpl, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err, "Failed to connect to MCP server")
	defer session.Close()

	err = session.Ping(ctx, nil)
	require.NoError(t, err, "Failed to ping MCP server")
}

// TestMCPServerListTools tests that all six tools are advertised
func TestMCPServerListTools(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test (spawns process)")
	}
	if testBinaryPath == "" {
		t.Fatal("Test binary not built - TestMain did not run")
	}

	projectDir := setupTestWorkspace(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.Command(testBinaryPath, "-r", projectDir, "mcp")
	client := mcp.NewClient(testClientImpl, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err, "Failed to list tools")
	require.NotNil(t, tools)

	toolNames := make(map[string]bool)
	for _, tool := range tools.Tools {
		toolNames[tool.Name] = true
	}

	expectedTools := []string{
		"resolve_path", "list_variables", "variable_info",
		"check_file", "rescan_workspace", "workspace_status",
	}
	for _, expected := range expectedTools {
		assert.True(t, toolNames[expected], "Expected tool %q to be available", expected)
	}
}

// TestMCPServerResolveTool resolves a nested variable path over the wire
func TestMCPServerResolveTool(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test (spawns process)")
	}
	if testBinaryPath == "" {
		t.Fatal("Test binary not built - TestMain did not run")
	}

	projectDir := setupTestWorkspace(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.Command(testBinaryPath, "-r", projectDir, "mcp")
	client := mcp.NewClient(testClientImpl, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "resolve_path",
		Arguments: map[string]any{"expression": "${LIB_DIR}/ssl"},
	})
	require.NoError(t, err, "Failed to call resolve_path tool")
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	text := resultText(result)
	assert.Contains(t, text, "/lib/ssl")
}

// TestMCPServerVariableInfoMiss verifies unknown names produce an in-band
// tool error rather than a protocol failure.
func TestMCPServerVariableInfoMiss(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test (spawns process)")
	}
	if testBinaryPath == "" {
		t.Fatal("Test binary not built - TestMain did not run")
	}

	projectDir := setupTestWorkspace(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.Command(testBinaryPath, "-r", projectDir, "mcp")
	client := mcp.NewClient(testClientImpl, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "variable_info",
		Arguments: map[string]any{"name": "ABSOLUTELY_NOT_HERE"},
	})
	require.NoError(t, err, "Tool errors should not surface as protocol errors")
	require.NotNil(t, result)
	assert.True(t, result.IsError, "Unknown variable should set isError")
	assert.Contains(t, resultText(result), "not defined")
}

// TestMCPServerWorkspaceStatus checks the status tool end to end
func TestMCPServerWorkspaceStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test (spawns process)")
	}
	if testBinaryPath == "" {
		t.Fatal("Test binary not built - TestMain did not run")
	}

	projectDir := setupTestWorkspace(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.Command(testBinaryPath, "-r", projectDir, "mcp")
	client := mcp.NewClient(testClientImpl, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "workspace_status",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	text := resultText(result)
	assert.Contains(t, text, "CliDemo")
	assert.Contains(t, text, "files_indexed")
}

// TestMCPSignalShutdown tests that the MCP server shuts down on SIGINT.
// This needs manual process control, so no SDK client here.
func TestMCPSignalShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping slow integration test (spawns process, 5s timeout)")
	}
	if testBinaryPath == "" {
		t.Fatal("Test binary not built - TestMain did not run")
	}

	projectDir := setupTestWorkspace(t)

	cmd := exec.Command(testBinaryPath, "-r", projectDir, "mcp")

	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Start()
	require.NoError(t, err)

	initRequest := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test-client","version":"1.0.0"}}}` + "\n"
	_, err = stdin.Write([]byte(initRequest))
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	err = cmd.Process.Signal(os.Interrupt)
	require.NoError(t, err)

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- cmd.Wait() }()

	select {
	case err := <-shutdownDone:
		t.Logf("Process shutdown with: %v", err)
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		t.Fatal("MCP server failed to shutdown gracefully within 5 seconds")
	}

	// Cancellation surfaces as "context canceled" when the run loop is
	// interrupted mid-request; anything else on stderr is a real failure.
	stderrStr := stderr.String()
	if strings.Contains(stderrStr, "Fatal error") && !strings.Contains(stderrStr, "context canceled") {
		t.Errorf("Unexpected fatal error in shutdown: %s", stderrStr)
	}
}
