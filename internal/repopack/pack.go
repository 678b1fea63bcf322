// Package repopack flattens a source directory into a single
// structured-text document suitable as model context.
package repopack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/okibi/gemini-mcp/internal/log"
)

var (
	// ErrNotADirectory indicates the input path is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrEmptyRepository indicates no packable files were found.
	ErrEmptyRepository = errors.New("no packable files found")
)

// DefaultByteBudget caps the packed document size. Roughly a quarter of
// a 1M-token context window at 4 bytes per token.
const DefaultByteBudget = 1 << 20

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".idea":        true,
	".vscode":      true,
}

// skipExtensions are file extensions excluded as binary or generated.
var skipExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".jar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".class": true, ".pyc": true, ".lock": true,
	".woff": true, ".woff2": true, ".ttf": true, ".mp3": true, ".mp4": true,
}

// maxFileBytes skips individual files larger than this before the
// budget check even runs; huge single files are rarely useful context.
const maxFileBytes = 256 << 10

// Packer walks a directory tree and emits one document with per-file
// headers.
type Packer struct {
	logger     log.Logger
	byteBudget int
}

// New creates a Packer with the default byte budget.
func New(logger log.Logger) *Packer {
	return &Packer{logger: logger, byteBudget: DefaultByteBudget}
}

// Pack flattens dir into a single document. Files are emitted in
// deterministic path order until the byte budget is exhausted; skipped
// files are listed in a trailing note so the model knows the document
// is partial.
func (p *Packer) Pack(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if packable(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyRepository, dir)
	}
	sort.Strings(paths)

	var doc strings.Builder
	fmt.Fprintf(&doc, "Repository: %s\nFiles: %d\n", dir, len(paths))

	var omitted []string
	for _, path := range paths {
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			p.logger.Warn("skipping unreadable file", "path", path, "error", readErr)
			omitted = append(omitted, rel)
			continue
		}
		if len(data) > maxFileBytes || !utf8.Valid(data) {
			omitted = append(omitted, rel)
			continue
		}

		entry := fmt.Sprintf("\n===== %s =====\n%s\n", rel, strings.TrimRight(string(data), "\n"))
		if doc.Len()+len(entry) > p.byteBudget {
			omitted = append(omitted, rel)
			continue
		}
		doc.WriteString(entry)
	}

	if len(omitted) > 0 {
		fmt.Fprintf(&doc, "\n===== omitted (%d files, size or budget) =====\n%s\n",
			len(omitted), strings.Join(omitted, "\n"))
	}

	p.logger.Debug("packed repository",
		"dir", dir, "files", len(paths), "omitted", len(omitted), "bytes", doc.Len())

	return doc.String(), nil
}

func packable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if skipExtensions[ext] {
		return false
	}
	return !strings.HasPrefix(name, ".")
}
