package mcp

import (
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okibi/gemini-mcp/internal/gemini"
)

// resultToMCP converts a formatted tool result into the protocol
// envelope. Metadata travels as the handler's structured output.
func resultToMCP(result gemini.ToolResult) (*mcp.CallToolResult, any) {
	content := make([]mcp.Content, 0, len(result.Blocks))
	for _, block := range result.Blocks {
		content = append(content, &mcp.TextContent{Text: block})
	}
	if len(content) == 0 {
		content = append(content, &mcp.TextContent{Text: ""})
	}

	return &mcp.CallToolResult{
		Content: content,
		IsError: result.IsError,
	}, result.Meta
}

// errorResult builds an error envelope from a classified message.
// Handlers never propagate raw errors to the dispatcher: every failure
// becomes a valid result with the error flag set.
func errorResult(class gemini.ErrorClass, format string, args ...any) (*mcp.CallToolResult, any, error) {
	text := fmt.Sprintf("[%s] %s", class, fmt.Sprintf(format, args...))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}

// errorResultFrom converts an upstream error into an error envelope,
// preserving its class when it is a classified call failure.
func errorResultFrom(err error) (*mcp.CallToolResult, any, error) {
	var ce *gemini.CallError
	if errors.As(err, &ce) {
		return errorResult(ce.Class, "%s", ce.Message)
	}
	return errorResult(gemini.ClassUnknown, "%v", err)
}
