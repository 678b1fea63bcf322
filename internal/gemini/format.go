package gemini

import (
	"fmt"
	"strings"

	"github.com/okibi/gemini-mcp/internal/log"
)

// ToolResult is the final envelope returned to the protocol layer:
// ordered text blocks, a metadata object, and an error flag.
type ToolResult struct {
	Blocks  []string
	Meta    map[string]any
	IsError bool
}

// Formatter renders normalized responses into tool results. It never
// panics outward: any internal failure degrades to an error envelope.
type Formatter struct {
	logger log.Logger
}

// NewFormatter creates a Formatter.
func NewFormatter(logger log.Logger) *Formatter {
	return &Formatter{logger: logger}
}

// Format renders resp into the final envelope. The first text block is
// always prefixed with the model that actually produced the content,
// post-fallback.
func (f *Formatter) Format(resp *Response, sel Selection, requestID string) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("formatter panic recovered", "panic", r)
			result = ToolResult{
				Blocks:  []string{fmt.Sprintf("internal formatting error: %v", r)},
				IsError: true,
			}
		}
	}()

	meta := map[string]any{
		"model_used": resp.ModelID,
		"request_id": requestID,
	}
	if sel.Requested != "" && sel.Requested != resp.ModelID {
		meta["model_requested"] = sel.Requested
	}
	if resp.FallbackApplied {
		meta["fallback_applied"] = true
	}

	banner := fmt.Sprintf("Model used: %s\n\n", resp.ModelID)

	switch resp.Kind {
	case KindBlocked:
		return ToolResult{
			Blocks: []string{banner + fmt.Sprintf(
				"The request was blocked by the provider's content filter (reason: %s). "+
					"Rephrase the request and try again.", resp.BlockReason)},
			Meta:    meta,
			IsError: true,
		}

	case KindVision:
		return ToolResult{
			Blocks: []string{banner + renderVision(resp)},
			Meta:   meta,
		}

	case KindGrounded:
		meta["source_count"] = len(resp.Grounding.Sources)
		return ToolResult{
			Blocks: []string{banner + resp.Text() + renderCitations(resp.Grounding)},
			Meta:   meta,
		}

	case KindText:
		return ToolResult{
			Blocks: []string{banner + resp.Text()},
			Meta:   meta,
		}

	default:
		// Unreachable while ResponseKind stays closed; degrade loudly
		// instead of dropping the response on the floor.
		f.logger.Error("unhandled response kind", "kind", resp.Kind)
		return ToolResult{
			Blocks: []string{banner + resp.Text()},
			Meta:   meta,
		}
	}
}

// renderVision presents bounding-box detections with a synthesized
// lead-in instead of returning raw JSON alone.
func renderVision(resp *Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The image analysis detected %d object(s):\n\n", len(resp.Detections))
	for _, d := range resp.Detections {
		label := d.Label
		if label == "" {
			label = "(unlabeled)"
		}
		fmt.Fprintf(&b, "- %s at [ymin=%.0f, xmin=%.0f, ymax=%.0f, xmax=%.0f] (0-1000 normalized)\n",
			label, d.Box[0], d.Box[1], d.Box[2], d.Box[3])
	}

	// Keep any descriptive prose the model produced alongside the boxes.
	if text := strings.TrimSpace(resp.Text()); text != "" && !looksLikeRawDetectionJSON(text) {
		b.WriteString("\n")
		b.WriteString(text)
	}
	return b.String()
}

// looksLikeRawDetectionJSON reports whether text is just the detection
// payload (possibly fenced) with no prose worth keeping.
func looksLikeRawDetectionJSON(text string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(text, "```json"))
	trimmed = strings.TrimSpace(strings.Trim(trimmed, "`"))
	return strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")
}

func renderCitations(g *Grounding) string {
	if g == nil || (len(g.Sources) == 0 && len(g.Queries) == 0) {
		return ""
	}

	var b strings.Builder
	if len(g.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, s := range g.Sources {
			title := s.Title
			if title == "" {
				title = s.URL
			}
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, title, s.URL)
		}
	}
	if len(g.Queries) > 0 {
		fmt.Fprintf(&b, "\nSearch queries used: %s\n", strings.Join(g.Queries, "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}
