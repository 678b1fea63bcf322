package mcp

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpSDK "github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"

	"github.com/okibi/gemini-mcp/internal/files"
	"github.com/okibi/gemini-mcp/internal/gemini"
	"github.com/okibi/gemini-mcp/internal/log"
	"github.com/okibi/gemini-mcp/internal/repopack"
)

// fakeGenerate records upstream calls and replays scripted failures
// before settling on a fixed answer.
type fakeGenerate struct {
	models []string
	errs   []error
	answer string
}

func (f *fakeGenerate) fn() gemini.GenerateFunc {
	return func(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		i := len(f.models)
		f.models = append(f.models, model)
		if i < len(f.errs) && f.errs[i] != nil {
			return nil, f.errs[i]
		}
		answer := f.answer
		if answer == "" {
			answer = "scripted answer"
		}
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: answer}}}},
			},
		}, nil
	}
}

func newTestServer(t *testing.T, fake *fakeGenerate) *Server {
	t.Helper()

	logger := log.NewNop()
	registry := gemini.NewRegistry()
	adapter := gemini.NewAdapter(registry, logger)

	s, err := NewServer(Config{
		Name:      "gemini-mcp-test",
		Version:   "0.0.0",
		Logger:    logger,
		Selector:  gemini.NewSelector(registry, "", logger),
		Adapter:   adapter,
		Engine:    gemini.NewEngine(fake.fn(), registry, adapter, gemini.EngineOptions{}, logger),
		Formatter: gemini.NewFormatter(logger),
		Loader:    files.NewLoader(logger),
		Packer:    repopack.New(logger),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestNewServer_Validation(t *testing.T) {
	if _, err := NewServer(Config{Version: "1"}); err == nil {
		t.Error("missing name must fail")
	}
	if _, err := NewServer(Config{Name: "x", Version: "1"}); err == nil {
		t.Error("missing components must fail")
	}
}

func TestSearch(t *testing.T) {
	fake := &fakeGenerate{answer: "grounded answer"}
	s := newTestServer(t, fake)

	result, meta, err := s.Search(context.Background(), nil, SearchInput{Query: "test"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.HasPrefix(text, "Model used: gemini-2.5-flash\n\n") {
		t.Errorf("model banner missing: %q", text)
	}
	if !strings.Contains(text, "grounded answer") {
		t.Errorf("answer missing: %q", text)
	}
	if fake.models[0] != "gemini-2.5-flash" {
		t.Errorf("search routed to %q", fake.models[0])
	}

	m, ok := meta.(map[string]any)
	if !ok || m["model_used"] != "gemini-2.5-flash" || m["request_id"] == "" {
		t.Errorf("meta = %v", meta)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})

	result, _, err := s.Search(context.Background(), nil, SearchInput{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.IsError || !strings.HasPrefix(textOf(t, result), "[invalid_request]") {
		t.Errorf("result = %q", textOf(t, result))
	}
}

func TestSearch_UpstreamFailure(t *testing.T) {
	fake := &fakeGenerate{errs: []error{genai.APIError{Code: 429, Message: "quota exceeded"}}}
	s := newTestServer(t, fake)

	result, _, err := s.Search(context.Background(), nil, SearchInput{Query: "test"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Flash has no designated sibling, so the rate limit surfaces as an
	// error envelope rather than a protocol failure.
	if !result.IsError || !strings.HasPrefix(textOf(t, result), "[rate_limited]") {
		t.Errorf("result = %q", textOf(t, result))
	}
}

func TestReason(t *testing.T) {
	fake := &fakeGenerate{}
	s := newTestServer(t, fake)

	result, _, err := s.Reason(context.Background(), nil, ReasonInput{Problem: "why"})
	if err != nil {
		t.Fatalf("Reason: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}
	if fake.models[0] != "gemini-2.5-pro" {
		t.Errorf("reason routed to %q", fake.models[0])
	}
}

func TestReason_EmptyProblem(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})

	result, _, _ := s.Reason(context.Background(), nil, ReasonInput{})
	if !result.IsError || !strings.HasPrefix(textOf(t, result), "[invalid_request]") {
		t.Errorf("result = %q", textOf(t, result))
	}
}

func TestReason_WithAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("some context"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeGenerate{}
	s := newTestServer(t, fake)

	result, _, err := s.Reason(context.Background(), nil, ReasonInput{
		Problem:   "summarize",
		FilePaths: []string{path},
	})
	if err != nil {
		t.Fatalf("Reason: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}
}

func TestCode_PathValidation(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   CodeInput
	}{
		{"neither path", CodeInput{Question: "q"}},
		{"both paths", CodeInput{Question: "q", DirectoryPath: "a", CodebasePath: "b"}},
		{"no question", CodeInput{DirectoryPath: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, _ := s.Code(ctx, nil, tt.in)
			if !result.IsError || !strings.HasPrefix(textOf(t, result), "[invalid_request]") {
				t.Errorf("result = %q", textOf(t, result))
			}
		})
	}
}

func TestCode_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeGenerate{}
	s := newTestServer(t, fake)

	result, _, err := s.Code(context.Background(), nil, CodeInput{
		Question:      "what does this do?",
		DirectoryPath: dir,
	})
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}
	if fake.models[0] != "gemini-2.5-pro" {
		t.Errorf("code routed to %q", fake.models[0])
	}
}

func TestCode_EmptyDirectory(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})

	result, _, _ := s.Code(context.Background(), nil, CodeInput{
		Question:      "q",
		DirectoryPath: t.TempDir(),
	})
	if !result.IsError || !strings.HasPrefix(textOf(t, result), "[invalid_request]") {
		t.Errorf("empty repository should be an input error: %q", textOf(t, result))
	}
}

func TestCode_PackedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packed.txt")
	if err := os.WriteFile(path, []byte("===== main.go =====\npackage main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeGenerate{}
	s := newTestServer(t, fake)

	result, _, err := s.Code(context.Background(), nil, CodeInput{
		Question:     "q",
		CodebasePath: path,
	})
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}
}

func TestCode_MissingPackedDocument(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})

	result, _, _ := s.Code(context.Background(), nil, CodeInput{
		Question:     "q",
		CodebasePath: filepath.Join(t.TempDir(), "nope.txt"),
	})
	if !result.IsError || !strings.HasPrefix(textOf(t, result), "[file_error]") {
		t.Errorf("result = %q", textOf(t, result))
	}
}

func TestFileOps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("document body"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeGenerate{}
	s := newTestServer(t, fake)

	result, _, err := s.FileOps(context.Background(), nil, FileOpsInput{FilePath: path})
	if err != nil {
		t.Fatalf("FileOps: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}
	if fake.models[0] != "gemini-2.5-flash-lite" {
		t.Errorf("fileops routed to %q", fake.models[0])
	}
}

func TestFileOps_MissingFile(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})
	missing := filepath.Join(t.TempDir(), "missing.txt")

	result, _, _ := s.FileOps(context.Background(), nil, FileOpsInput{FilePath: missing})
	text := textOf(t, result)
	if !result.IsError || !strings.HasPrefix(text, "[file_error]") {
		t.Fatalf("result = %q", text)
	}
	if !strings.Contains(text, "missing.txt") {
		t.Errorf("error must name the offending path: %q", text)
	}
}

func TestFileOps_AllFilesMissing(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeGenerate{}
	s := newTestServer(t, fake)

	result, _, _ := s.FileOps(context.Background(), nil, FileOpsInput{
		FilePaths: []string{
			filepath.Join(dir, "one.txt"),
			filepath.Join(dir, "two.txt"),
		},
	})
	text := textOf(t, result)
	if !result.IsError || !strings.HasPrefix(text, "[file_error]") {
		t.Fatalf("batch of unloadable files must fail like the single-file case: %q", text)
	}
	if !strings.Contains(text, "one.txt") || !strings.Contains(text, "two.txt") {
		t.Errorf("error must name the offending paths: %q", text)
	}
	if len(fake.models) != 0 {
		t.Errorf("made %d upstream calls, want 0 with nothing loadable", len(fake.models))
	}
}

func TestFileOps_NoPaths(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})

	result, _, _ := s.FileOps(context.Background(), nil, FileOpsInput{})
	if !result.IsError || !strings.HasPrefix(textOf(t, result), "[invalid_request]") {
		t.Errorf("result = %q", textOf(t, result))
	}
}

func TestFileOps_BadOperation(t *testing.T) {
	s := newTestServer(t, &fakeGenerate{})

	result, _, _ := s.FileOps(context.Background(), nil, FileOpsInput{
		FilePath:  "x.txt",
		Operation: "translate",
	})
	if !result.IsError || !strings.HasPrefix(textOf(t, result), "[invalid_request]") {
		t.Errorf("result = %q", textOf(t, result))
	}
}

func TestWarnDeprecatedAlias(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, log.Config{})

	req := &mcpSDK.CallToolRequest{Params: &mcpSDK.CallToolParamsRaw{Name: "gemini_ask"}}
	warnDeprecatedAlias(logger, req, "gemini_reason")
	if !strings.Contains(buf.String(), "deprecated") || !strings.Contains(buf.String(), "gemini_ask") {
		t.Errorf("alias invocation must log a deprecation warning, got %q", buf.String())
	}

	buf.Reset()
	req.Params.Name = "gemini_reason"
	warnDeprecatedAlias(logger, req, "gemini_reason")
	if buf.Len() != 0 {
		t.Errorf("canonical name must not warn, got %q", buf.String())
	}

	warnDeprecatedAlias(logger, nil, "gemini_reason")
}

func TestFileOps_LargeInputUpgradesModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("document body"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeGenerate{}
	s := newTestServer(t, fake)

	_, _, err := s.FileOps(context.Background(), nil, FileOpsInput{
		FilePath:   path,
		LargeInput: true,
	})
	if err != nil {
		t.Fatalf("FileOps: %v", err)
	}
	if fake.models[0] != "gemini-2.5-pro" {
		t.Errorf("large input routed to %q, want the large-context model", fake.models[0])
	}
}
