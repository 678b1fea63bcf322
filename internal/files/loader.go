package files

import (
	"fmt"
	"os"
	"strings"

	"github.com/okibi/gemini-mcp/internal/log"
)

// Part is one unit of content destined for the provider. Exactly one of
// Text, Inline, or FileRef is set.
type Part struct {
	// Text holds plain text content, including fenced file contents and
	// per-file error notices.
	Text string

	// Inline holds raw bytes shipped inline with the request.
	Inline *InlineData

	// FileRef points at a provider-resolvable remote resource.
	FileRef *FileRef

	// Err marks this part as a load-failure notice. The Text field
	// carries the human-readable message.
	Err bool

	// Category records the classification of the source, for model
	// selection downstream.
	Category Category
}

// InlineData carries raw bytes plus their MIME type. The SDK handles
// base64 encoding at the wire.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// FileRef references a remote resource the provider fetches itself.
type FileRef struct {
	MIMEType string
	URI      string
}

// Loader reads local files and resolves remote URIs into Parts.
type Loader struct {
	logger log.Logger

	// maxInlineBytes caps a single inline payload. Files beyond the cap
	// become error parts instead of oversized requests.
	maxInlineBytes int64
}

// DefaultMaxInlineBytes matches the Gemini API's ~20MB inline request cap.
const DefaultMaxInlineBytes = 20 << 20

// NewLoader creates a Loader.
func NewLoader(logger log.Logger) *Loader {
	return &Loader{
		logger:         logger,
		maxInlineBytes: DefaultMaxInlineBytes,
	}
}

// Load converts each input path or URL into a Part. Per-file failures
// become error-text parts; they never abort the batch. The returned
// slice always has one entry per input, in input order.
func (l *Loader) Load(pathsOrURLs []string) []Part {
	parts := make([]Part, 0, len(pathsOrURLs))
	for _, p := range pathsOrURLs {
		parts = append(parts, l.loadOne(p))
	}
	return parts
}

func (l *Loader) loadOne(pathOrURL string) Part {
	cls := Classify(pathOrURL)

	if isRemote(pathOrURL) {
		if providerFetchable(pathOrURL) {
			return Part{
				FileRef:  &FileRef{MIMEType: cls.MIMEType, URI: pathOrURL},
				Category: cls.Category,
			}
		}
		// Plain HTTP(S) fetching is not a reliable provider contract;
		// ask the model to fetch instead of pretending we attached it.
		l.logger.Debug("substituting fetch instruction for plain URL", "url", pathOrURL)
		return Part{
			Text:     fmt.Sprintf("Please fetch and consider the content of this URL: %s", pathOrURL),
			Category: cls.Category,
		}
	}

	info, err := os.Stat(pathOrURL)
	if err != nil {
		l.logger.Warn("file not accessible", "path", pathOrURL, "error", err)
		return errorPart(fmt.Sprintf("[file error] %s: %v", pathOrURL, err))
	}
	if info.IsDir() {
		return errorPart(fmt.Sprintf("[file error] %s: is a directory, expected a file", pathOrURL))
	}
	if info.Size() > l.maxInlineBytes {
		return errorPart(fmt.Sprintf("[file error] %s: %d bytes exceeds the %d byte inline limit",
			pathOrURL, info.Size(), l.maxInlineBytes))
	}

	data, err := os.ReadFile(pathOrURL)
	if err != nil {
		l.logger.Warn("file read failed", "path", pathOrURL, "error", err)
		return errorPart(fmt.Sprintf("[file error] %s: %v", pathOrURL, err))
	}

	// Structured text and code travel as fenced text: the provider's
	// handling of these MIME types as binary blobs is unreliable.
	switch cls.Category {
	case CategoryText, CategoryCode, CategoryData:
		return Part{Text: fencedText(pathOrURL, data), Category: cls.Category}
	default:
		return Part{
			Inline:   &InlineData{MIMEType: cls.MIMEType, Data: data},
			Category: cls.Category,
		}
	}
}

// Combine loads several inputs and concatenates text-compatible results
// into one synthetic document with per-file headers. Inline (binary)
// parts and load-failure parts are returned alongside untouched, after
// the combined document: folding a failure notice into the document
// would strip its Err flag and hide it from callers that count loadable
// parts. Used by callers with single-document semantics.
func (l *Loader) Combine(pathsOrURLs []string) []Part {
	loaded := l.Load(pathsOrURLs)

	var doc strings.Builder
	var rest []Part
	textCount := 0

	for i, part := range loaded {
		if part.Err || part.Inline != nil || part.FileRef != nil {
			rest = append(rest, part)
			continue
		}
		if textCount > 0 {
			doc.WriteString("\n\n")
		}
		fmt.Fprintf(&doc, "===== File %d: %s =====\n", i+1, pathsOrURLs[i])
		doc.WriteString(part.Text)
		textCount++
	}

	if textCount == 0 {
		return loaded
	}

	combined := Part{Text: doc.String(), Category: CategoryText}
	return append([]Part{combined}, rest...)
}

func errorPart(msg string) Part {
	return Part{Text: msg, Err: true, Category: CategoryUnknown}
}

func fencedText(path string, data []byte) string {
	return fmt.Sprintf("File: %s\n```\n%s\n```", path, strings.TrimRight(string(data), "\n"))
}

// isRemote reports whether the input is a URI rather than a local path.
func isRemote(s string) bool {
	return strings.Contains(s, "://")
}

// providerFetchable reports whether the provider resolves this URI
// natively: Cloud Storage objects, File API uploads, and YouTube links.
func providerFetchable(uri string) bool {
	if strings.HasPrefix(uri, "gs://") {
		return true
	}
	lower := strings.ToLower(uri)
	return strings.Contains(lower, "generativelanguage.googleapis.com/v1beta/files/") ||
		strings.Contains(lower, "youtube.com/watch") ||
		strings.Contains(lower, "youtu.be/")
}
