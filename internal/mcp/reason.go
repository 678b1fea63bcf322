package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okibi/gemini-mcp/internal/files"
	"github.com/okibi/gemini-mcp/internal/gemini"
	"github.com/okibi/gemini-mcp/internal/log"
)

// ReasonInput defines the input schema for the gemini_reason tool.
type ReasonInput struct {
	Problem string `json:"problem" jsonschema:"The problem or question to reason about"`

	ShowSteps bool `json:"show_steps,omitempty" jsonschema:"Ask the model to show step-by-step working"`

	FilePaths []string `json:"file_paths,omitempty" jsonschema:"Optional files to attach as context"`

	Model string `json:"model,omitempty" jsonschema:"Optional model identifier override"`

	GenerationConfig map[string]any `json:"generation_config,omitempty" jsonschema:"Optional generation parameters"`
}

func (s *Server) registerReason() error {
	schema, err := jsonschema.For[ReasonInput](nil)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gemini_reason",
		Description: "Solve a complex problem with Gemini's reasoning model. Optionally attach files as context.",
		InputSchema: schema,
	}, s.Reason)

	// Deprecated alias kept for clients registered against old releases.
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gemini_ask",
		Description: "Deprecated: use gemini_reason.",
		InputSchema: schema,
	}, s.Reason)

	return nil
}

// Reason handles the gemini_reason tool call and its deprecated
// gemini_ask alias.
func (s *Server) Reason(ctx context.Context, req *mcp.CallToolRequest, in ReasonInput) (*mcp.CallToolResult, any, error) {
	if in.Problem == "" {
		return errorResult(gemini.ClassInvalidRequest, "problem is required and cannot be empty")
	}

	requestID := uuid.NewString()
	logger := s.logger.With("tool", "gemini_reason", "request_id", requestID)
	warnDeprecatedAlias(logger, req, "gemini_reason")

	var attachments []files.Part
	var categories []files.Category
	if len(in.FilePaths) > 0 {
		attachments = s.loader.Load(in.FilePaths)
		categories = partCategories(attachments)
	}

	sel := s.selector.Select(gemini.ToolReason, in.Model, false, categories)
	logger.Info("executing reason", "model", sel.ModelID, "attachments", len(attachments))

	greq := gemini.BuildReason(in.Problem, in.ShowSteps, attachments, in.GenerationConfig)
	payload := s.adapter.ToPayload(greq, sel.ModelID)

	resp, err := s.engine.Execute(ctx, sel.ModelID, payload)
	if err != nil {
		logger.Warn("reason failed", "error", err)
		return errorResultFrom(err)
	}

	result, meta := resultToMCP(s.formatter.Format(resp, sel, requestID))
	return result, meta, nil
}

// warnDeprecatedAlias logs when a tool was invoked through a
// deprecated alias name.
func warnDeprecatedAlias(logger log.Logger, req *mcp.CallToolRequest, canonical string) {
	if req == nil || req.Params == nil {
		return
	}
	if req.Params.Name != "" && req.Params.Name != canonical {
		logger.Warn("tool invoked through deprecated alias",
			"alias", req.Params.Name, "canonical", canonical)
	}
}

// partCategories collects the classification of each successfully
// loaded part for model selection.
func partCategories(parts []files.Part) []files.Category {
	cats := make([]files.Category, 0, len(parts))
	for _, p := range parts {
		if p.Err {
			continue
		}
		cats = append(cats, p.Category)
	}
	return cats
}
