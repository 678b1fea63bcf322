// Package files classifies and loads caller-supplied file inputs into
// provider-ready content parts.
package files

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Category is a coarse grouping of file types used for model selection
// and prompt shaping.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
	CategoryCode     Category = "code"
	CategoryText     Category = "text"
	CategoryData     Category = "data"
	CategoryArchive  Category = "archive"
	CategoryAudio    Category = "audio"
	CategoryVideo    Category = "video"
	CategoryUnknown  Category = "unknown"
)

// Classification is the result of classifying a path or URL.
type Classification struct {
	MIMEType string
	Category Category
}

// genericMIME is the fallback for unknown extensions and malformed URLs.
const genericMIME = "application/octet-stream"

// extensionMIME maps lowercase file extensions to MIME types.
// Pure lookup; unknown extensions fall back to genericMIME.
var extensionMIME = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".heic": "image/heic",
	".heif": "image/heif",

	// Documents
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".rtf":  "application/rtf",
	".odt":  "application/vnd.oasis.opendocument.text",

	// Code
	".go":    "text/x-go",
	".py":    "text/x-python",
	".js":    "text/javascript",
	".ts":    "text/x-typescript",
	".jsx":   "text/javascript",
	".tsx":   "text/x-typescript",
	".java":  "text/x-java",
	".c":     "text/x-c",
	".h":     "text/x-c",
	".cpp":   "text/x-c++",
	".hpp":   "text/x-c++",
	".cs":    "text/x-csharp",
	".rb":    "text/x-ruby",
	".rs":    "text/x-rust",
	".php":   "text/x-php",
	".swift": "text/x-swift",
	".kt":    "text/x-kotlin",
	".sh":    "text/x-shellscript",
	".sql":   "text/x-sql",

	// Plain text
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".log":      "text/plain",

	// Structured data
	".json": "application/json",
	".xml":  "application/xml",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",

	// Archives
	".zip": "application/zip",
	".tar": "application/x-tar",
	".gz":  "application/gzip",
	".bz2": "application/x-bzip2",
	".xz":  "application/x-xz",
	".7z":  "application/x-7z-compressed",
	".rar": "application/vnd.rar",

	// Audio
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",

	// Video
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// Classify maps a file path or URL to a MIME type and a coarse category.
// Unknown extensions yield the generic binary MIME type and
// CategoryUnknown, never an error. Malformed URLs degrade the same way.
func Classify(pathOrURL string) Classification {
	ext := extensionOf(pathOrURL)

	mimeType, ok := extensionMIME[ext]
	if !ok {
		return Classification{MIMEType: genericMIME, Category: CategoryUnknown}
	}

	return Classification{MIMEType: mimeType, Category: categoryOf(mimeType)}
}

// extensionOf recovers the lowercase extension from a path or URL.
// For URLs the query string and fragment are stripped first.
func extensionOf(pathOrURL string) string {
	p := pathOrURL
	if strings.Contains(p, "://") {
		u, err := url.Parse(p)
		if err != nil {
			return ""
		}
		p = path.Base(u.Path)
	}
	return strings.ToLower(filepath.Ext(p))
}

// categoryOf buckets a known MIME type into a coarse category.
func categoryOf(mimeType string) Category {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case strings.HasPrefix(mimeType, "audio/"):
		return CategoryAudio
	case strings.HasPrefix(mimeType, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mimeType, "text/x-") || mimeType == "text/javascript":
		return CategoryCode
	case mimeType == "application/json" || mimeType == "application/xml" ||
		mimeType == "application/yaml" || mimeType == "application/toml" ||
		mimeType == "text/csv" || mimeType == "text/tab-separated-values" ||
		mimeType == "text/html" || mimeType == "text/css":
		return CategoryData
	case strings.HasPrefix(mimeType, "text/"):
		return CategoryText
	case mimeType == "application/pdf" || strings.Contains(mimeType, "msword") ||
		strings.Contains(mimeType, "officedocument") || strings.Contains(mimeType, "opendocument") ||
		mimeType == "application/rtf" || strings.Contains(mimeType, "ms-excel") ||
		strings.Contains(mimeType, "ms-powerpoint"):
		return CategoryDocument
	case mimeType == "application/zip" || mimeType == "application/gzip" ||
		strings.HasPrefix(mimeType, "application/x-") || mimeType == "application/vnd.rar":
		return CategoryArchive
	default:
		return CategoryUnknown
	}
}
