package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"blockpad/internal/editor"
)

// Server exposes the block editor as MCP tools so AI agents can edit
// the document — add, edit, move, and delete blocks, with full
// undo/redo — through the same controller a UI would use.
type Server struct {
	mcp *server.MCPServer
	ed  *editor.Editor
}

// New creates and configures the MCP server around an editor that has
// already loaded its document.
func New(ed *editor.Editor) *Server {
	s := &Server{ed: ed}
	s.mcp = server.NewMCPServer(
		"blockpad-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerBlockTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(b bool) *bool { return &b }

// optionalInt pulls a number argument as *int, nil when absent.
func optionalInt(args map[string]any, key string) *int {
	if f, ok := args[key].(float64); ok {
		n := int(f)
		return &n
	}
	return nil
}
