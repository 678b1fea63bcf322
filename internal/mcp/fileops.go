package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okibi/gemini-mcp/internal/files"
	"github.com/okibi/gemini-mcp/internal/gemini"
)

// FileOpsInput defines the input schema for the gemini_fileops tool.
type FileOpsInput struct {
	FilePath string `json:"file_path,omitempty" jsonschema:"Path or URL of the file to process"`

	FilePaths []string `json:"file_paths,omitempty" jsonschema:"Multiple paths or URLs; concatenated into one document where possible"`

	Operation string `json:"operation,omitempty" jsonschema:"One of summarize, extract, analyze. Default: summarize"`

	Instruction string `json:"instruction,omitempty" jsonschema:"Free-text instruction; takes precedence over operation"`

	LargeInput bool `json:"large_input,omitempty" jsonschema:"Set for very large inputs to select the large-context model"`

	Model string `json:"model,omitempty" jsonschema:"Optional model identifier override"`

	GenerationConfig map[string]any `json:"generation_config,omitempty" jsonschema:"Optional generation parameters"`
}

func (s *Server) registerFileOps() error {
	schema, err := jsonschema.For[FileOpsInput](nil)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gemini_fileops",
		Description: "Summarize, extract from, or analyze files (text, code, images, PDFs) with Gemini.",
		InputSchema: schema,
	}, s.FileOps)

	// Deprecated alias kept for clients registered against old releases.
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gemini_analyze",
		Description: "Deprecated: use gemini_fileops.",
		InputSchema: schema,
	}, s.FileOps)

	return nil
}

// FileOps handles the gemini_fileops tool call and its deprecated
// gemini_analyze alias.
func (s *Server) FileOps(ctx context.Context, req *mcp.CallToolRequest, in FileOpsInput) (*mcp.CallToolResult, any, error) {
	paths := in.FilePaths
	if in.FilePath != "" {
		paths = append([]string{in.FilePath}, paths...)
	}
	if len(paths) == 0 {
		return errorResult(gemini.ClassInvalidRequest, "file_path or file_paths is required")
	}

	op, err := fileOperation(in.Operation)
	if err != nil {
		return errorResult(gemini.ClassInvalidRequest, "%v", err)
	}

	requestID := uuid.NewString()
	logger := s.logger.With("tool", "gemini_fileops", "request_id", requestID)
	warnDeprecatedAlias(logger, req, "gemini_fileops")

	// Multi-file batches collapse into one synthetic document; binary
	// parts ride alongside. Per-file failures become error parts.
	var parts []files.Part
	if len(paths) > 1 {
		parts = s.loader.Combine(paths)
	} else {
		parts = s.loader.Load(paths)
	}

	loadable := partCategories(parts)
	if len(loadable) == 0 {
		// Nothing usable at all: surface the load failures directly.
		var msgs []string
		for _, p := range parts {
			msgs = append(msgs, p.Text)
		}
		return errorResult(gemini.ClassFileError, "no loadable files: %s", strings.Join(msgs, "; "))
	}

	sel := s.selector.Select(gemini.ToolFileOps, in.Model, in.LargeInput, loadable)
	logger.Info("executing fileops",
		"model", sel.ModelID, "operation", op, "files", len(paths))

	greq := gemini.BuildFileOps(op, in.Instruction, parts, in.GenerationConfig)
	payload := s.adapter.ToPayload(greq, sel.ModelID)

	resp, err := s.engine.Execute(ctx, sel.ModelID, payload)
	if err != nil {
		logger.Warn("fileops failed", "error", err)
		return errorResultFrom(err)
	}

	result, meta := resultToMCP(s.formatter.Format(resp, sel, requestID))
	return result, meta, nil
}

func fileOperation(op string) (gemini.FileOperation, error) {
	switch strings.ToLower(op) {
	case "", "summarize":
		return gemini.OpSummarize, nil
	case "extract":
		return gemini.OpExtract, nil
	case "analyze":
		return gemini.OpAnalyze, nil
	default:
		return "", fmt.Errorf("unsupported operation %q: expected summarize, extract, or analyze", op)
	}
}
