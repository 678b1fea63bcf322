package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okibi/gemini-mcp/internal/gemini"
	"github.com/okibi/gemini-mcp/internal/repopack"
)

// CodeInput defines the input schema for the gemini_code tool. Exactly
// one of DirectoryPath or CodebasePath must be set.
type CodeInput struct {
	Question string `json:"question" jsonschema:"The question to answer about the codebase"`

	DirectoryPath string `json:"directory_path,omitempty" jsonschema:"Repository directory to pack and analyze"`

	CodebasePath string `json:"codebase_path,omitempty" jsonschema:"Pre-packed repository document to analyze"`

	Model string `json:"model,omitempty" jsonschema:"Optional model identifier override"`

	GenerationConfig map[string]any `json:"generation_config,omitempty" jsonschema:"Optional generation parameters"`
}

func (s *Server) registerCode() error {
	schema, err := jsonschema.For[CodeInput](nil)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gemini_code",
		Description: "Answer a question about a codebase. Provide either directory_path (packed automatically) or codebase_path (a pre-packed document).",
		InputSchema: schema,
	}, s.Code)
	return nil
}

// Code handles the gemini_code tool call.
func (s *Server) Code(ctx context.Context, req *mcp.CallToolRequest, in CodeInput) (*mcp.CallToolResult, any, error) {
	if in.Question == "" {
		return errorResult(gemini.ClassInvalidRequest, "question is required and cannot be empty")
	}
	if (in.DirectoryPath == "") == (in.CodebasePath == "") {
		return errorResult(gemini.ClassInvalidRequest,
			"exactly one of directory_path or codebase_path is required")
	}

	requestID := uuid.NewString()
	logger := s.logger.With("tool", "gemini_code", "request_id", requestID)

	packed, err := s.packedDocument(in)
	if err != nil {
		logger.Warn("obtaining repository document failed", "error", err)
		if errors.Is(err, repopack.ErrNotADirectory) || errors.Is(err, repopack.ErrEmptyRepository) {
			return errorResult(gemini.ClassInvalidRequest, "%v", err)
		}
		return errorResult(gemini.ClassFileError, "%v", err)
	}

	sel := s.selector.Select(gemini.ToolCode, in.Model, false, nil)
	logger.Info("executing code analysis", "model", sel.ModelID, "document_bytes", len(packed))

	greq := gemini.BuildCode(in.Question, packed, in.GenerationConfig)
	payload := s.adapter.ToPayload(greq, sel.ModelID)

	resp, err := s.engine.Execute(ctx, sel.ModelID, payload)
	if err != nil {
		logger.Warn("code analysis failed", "error", err)
		return errorResultFrom(err)
	}

	result, meta := resultToMCP(s.formatter.Format(resp, sel, requestID))
	return result, meta, nil
}

// packedDocument obtains the single repository document: packing the
// directory, or reading the pre-packed artifact.
func (s *Server) packedDocument(in CodeInput) (string, error) {
	if in.DirectoryPath != "" {
		return s.packer.Pack(in.DirectoryPath)
	}

	data, err := os.ReadFile(in.CodebasePath)
	if err != nil {
		return "", fmt.Errorf("reading packed codebase %s: %w", in.CodebasePath, err)
	}
	return string(data), nil
}
