package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okibi/gemini-mcp/internal/log"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return p
}

func TestLoad_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	ok1 := writeFile(t, dir, "a.txt", "alpha")
	ok2 := writeFile(t, dir, "b.md", "beta")
	missing := filepath.Join(dir, "missing.txt")

	loader := NewLoader(log.NewNop())
	parts := loader.Load([]string{ok1, missing, ok2})

	if len(parts) != 3 {
		t.Fatalf("Load() returned %d parts, want 3", len(parts))
	}

	var errCount, okCount int
	for _, p := range parts {
		if p.Err {
			errCount++
		} else {
			okCount++
		}
	}
	if errCount != 1 || okCount != 2 {
		t.Errorf("got %d error parts and %d ok parts, want 1 and 2", errCount, okCount)
	}

	if !parts[1].Err || !strings.Contains(parts[1].Text, "missing.txt") {
		t.Errorf("error part should name the missing path: %+v", parts[1])
	}
}

func TestLoad_TextBecomesFencedPart(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"key": "value"}`)

	loader := NewLoader(log.NewNop())
	parts := loader.Load([]string{p})

	if len(parts) != 1 {
		t.Fatalf("Load() returned %d parts, want 1", len(parts))
	}
	part := parts[0]
	if part.Inline != nil {
		t.Error("structured text should not be shipped as inline binary data")
	}
	if !strings.Contains(part.Text, "```") || !strings.Contains(part.Text, `"key": "value"`) {
		t.Errorf("expected fenced text content, got %q", part.Text)
	}
	if part.Category != CategoryData {
		t.Errorf("Category = %q, want %q", part.Category, CategoryData)
	}
}

func TestLoad_BinaryBecomesInlinePart(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "img.png", "\x89PNG fake bytes")

	loader := NewLoader(log.NewNop())
	parts := loader.Load([]string{p})

	part := parts[0]
	if part.Inline == nil {
		t.Fatal("image file should produce an inline part")
	}
	if part.Inline.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", part.Inline.MIMEType)
	}
	if part.Category != CategoryImage {
		t.Errorf("Category = %q, want %q", part.Category, CategoryImage)
	}
}

func TestLoad_DirectoryIsError(t *testing.T) {
	dir := t.TempDir()

	loader := NewLoader(log.NewNop())
	parts := loader.Load([]string{dir})

	if !parts[0].Err {
		t.Error("directory input should produce an error part")
	}
}

func TestLoad_RemoteURIs(t *testing.T) {
	loader := NewLoader(log.NewNop())

	tests := []struct {
		name     string
		uri      string
		wantRef  bool
		wantText string
	}{
		{
			name:    "cloud storage object",
			uri:     "gs://bucket/data.pdf",
			wantRef: true,
		},
		{
			name:    "file API upload",
			uri:     "https://generativelanguage.googleapis.com/v1beta/files/abc123",
			wantRef: true,
		},
		{
			name:    "youtube link",
			uri:     "https://youtu.be/dQw4w9WgXcQ",
			wantRef: true,
		},
		{
			name:     "plain https url",
			uri:      "https://example.com/article.html",
			wantText: "Please fetch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := loader.Load([]string{tt.uri})
			part := parts[0]

			if tt.wantRef {
				if part.FileRef == nil {
					t.Fatalf("expected FileRef part, got %+v", part)
				}
				if part.FileRef.URI != tt.uri {
					t.Errorf("URI = %q, want %q", part.FileRef.URI, tt.uri)
				}
				return
			}

			if part.FileRef != nil {
				t.Fatal("plain URL must not become a FileRef part")
			}
			if !strings.Contains(part.Text, tt.wantText) || !strings.Contains(part.Text, tt.uri) {
				t.Errorf("expected fetch instruction naming the URL, got %q", part.Text)
			}
		})
	}
}

func TestLoad_OversizedFileIsError(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "big.png", strings.Repeat("x", 128))

	loader := NewLoader(log.NewNop())
	loader.maxInlineBytes = 64
	parts := loader.Load([]string{p})

	if !parts[0].Err || !strings.Contains(parts[0].Text, "inline limit") {
		t.Errorf("oversized file should produce an inline-limit error part: %+v", parts[0])
	}
}

func TestCombine(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "beta")
	img := writeFile(t, dir, "c.png", "\x89PNG fake bytes")

	loader := NewLoader(log.NewNop())
	parts := loader.Combine([]string{a, b, img})

	if len(parts) != 2 {
		t.Fatalf("Combine() returned %d parts, want 2 (combined doc + image)", len(parts))
	}

	doc := parts[0]
	if doc.Text == "" {
		t.Fatal("first part should be the combined document")
	}
	if !strings.Contains(doc.Text, "File 1: "+a) || !strings.Contains(doc.Text, "File 2: "+b) {
		t.Errorf("combined document missing per-file headers:\n%s", doc.Text)
	}
	if !strings.Contains(doc.Text, "alpha") || !strings.Contains(doc.Text, "beta") {
		t.Errorf("combined document missing file contents:\n%s", doc.Text)
	}

	if parts[1].Inline == nil {
		t.Error("binary part should pass through Combine untouched")
	}
}

func TestCombine_KeepsErrorPartsAside(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	missing := filepath.Join(dir, "missing.txt")

	loader := NewLoader(log.NewNop())
	parts := loader.Combine([]string{a, missing})

	if len(parts) != 2 {
		t.Fatalf("Combine() returned %d parts, want combined doc + error part", len(parts))
	}
	if strings.Contains(parts[0].Text, "missing.txt") {
		t.Errorf("failure notice folded into the combined document:\n%s", parts[0].Text)
	}
	if !parts[1].Err || !strings.Contains(parts[1].Text, "missing.txt") {
		t.Errorf("load failure must survive as an error part: %+v", parts[1])
	}
}

func TestCombine_AllErrors(t *testing.T) {
	dir := t.TempDir()

	loader := NewLoader(log.NewNop())
	parts := loader.Combine([]string{
		filepath.Join(dir, "one.txt"),
		filepath.Join(dir, "two.txt"),
	})

	if len(parts) != 2 {
		t.Fatalf("Combine() returned %d parts, want one error part per input", len(parts))
	}
	for i, p := range parts {
		if !p.Err {
			t.Errorf("part %d lost its error flag: %+v", i, p)
		}
	}
}

func TestCombine_AllBinary(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "c.png", "\x89PNG fake bytes")

	loader := NewLoader(log.NewNop())
	parts := loader.Combine([]string{img})

	if len(parts) != 1 || parts[0].Inline == nil {
		t.Fatalf("Combine with only binary inputs should return them as-is: %+v", parts)
	}
}
