package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okibi/gemini-mcp/internal/gemini"
)

// SearchInput defines the input schema for the gemini_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The question to answer using Google Search grounding"`

	Model string `json:"model,omitempty" jsonschema:"Optional model identifier override"`

	GenerationConfig map[string]any `json:"generation_config,omitempty" jsonschema:"Optional generation parameters (temperature, top_p, top_k, max_output_tokens)"`
}

func (s *Server) registerSearch() error {
	schema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gemini_search",
		Description: "Answer a question using Gemini with Google Search grounding. Returns the answer with source citations.",
		InputSchema: schema,
	}, s.Search)
	return nil
}

// Search handles the gemini_search tool call.
func (s *Server) Search(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	if in.Query == "" {
		return errorResult(gemini.ClassInvalidRequest, "query is required and cannot be empty")
	}

	requestID := uuid.NewString()
	logger := s.logger.With("tool", "gemini_search", "request_id", requestID)

	sel := s.selector.Select(gemini.ToolSearch, in.Model, false, nil)
	logger.Info("executing search", "model", sel.ModelID)

	greq := gemini.BuildSearch(in.Query, in.GenerationConfig)
	payload := s.adapter.ToPayload(greq, sel.ModelID)

	resp, err := s.engine.Execute(ctx, sel.ModelID, payload)
	if err != nil {
		logger.Warn("search failed", "error", err)
		return errorResultFrom(err)
	}

	result, meta := resultToMCP(s.formatter.Format(resp, sel, requestID))
	return result, meta, nil
}
