package gemini

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"github.com/okibi/gemini-mcp/internal/files"
	"github.com/okibi/gemini-mcp/internal/log"
)

// Payload is the exact shape handed to the upstream SDK.
type Payload struct {
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// ResponseKind tags the normalized response shape. The formatter
// matches on it exhaustively.
type ResponseKind string

const (
	KindText     ResponseKind = "text"
	KindGrounded ResponseKind = "grounded"
	KindVision   ResponseKind = "vision"
	KindBlocked  ResponseKind = "blocked"
)

// Source is one grounding citation.
type Source struct {
	Title string
	URL   string
}

// Grounding carries search citations attached by the model.
type Grounding struct {
	Sources []Source
	Queries []string
}

// Detection is one vision bounding box. Box is [ymin, xmin, ymax, xmax]
// in 0-1000 normalized coordinates.
type Detection struct {
	Label string
	Box   [4]float64
}

// Response is the normalized upstream result.
type Response struct {
	Kind        ResponseKind
	Texts       []string
	Grounding   *Grounding
	Detections  []Detection
	BlockReason string

	// ModelID is the model that actually produced the answer. It may
	// differ from the requested one after fallback.
	ModelID string

	// FallbackApplied is true when the engine substituted the model.
	FallbackApplied bool
}

// Text joins the ordered text fragments.
func (r *Response) Text() string {
	return strings.Join(r.Texts, "")
}

// Adapter translates between the intermediate request and the upstream
// SDK wire shapes.
type Adapter struct {
	registry *Registry
	logger   log.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(registry *Registry, logger log.Logger) *Adapter {
	return &Adapter{registry: registry, logger: logger}
}

// ToPayload converts the intermediate request into the SDK shape for
// modelID, applying model-family transformations: system-instruction
// carriage, generation parameter precedence, and conditional search
// tool attachment.
func (a *Adapter) ToPayload(req *Request, modelID string) *Payload {
	desc := a.registry.Lookup(modelID)
	config := &genai.GenerateContentConfig{}

	system := req.System
	embedSystem := system != "" && desc != nil && !desc.SystemInstructionField
	if system != "" && !embedSystem {
		config.SystemInstruction = genai.NewContentFromText(system, "")
	}

	applyGenerationConfig(config, req.Params, req.Overrides)

	if req.EnableSearch {
		if desc != nil && desc.SupportsSearch {
			config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
		} else {
			a.logger.Warn("search grounding requested but model is not eligible", "model", modelID)
		}
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for i, msg := range req.Messages {
		content := &genai.Content{Role: string(genai.RoleUser)}

		// Models without a dedicated system-instruction channel get the
		// instruction merged into the first user message.
		if embedSystem && i == 0 {
			content.Parts = append(content.Parts, &genai.Part{Text: system + "\n\n"})
		}

		for _, p := range msg.Parts {
			content.Parts = append(content.Parts, toGenaiPart(p))
		}
		contents = append(contents, content)
	}

	if embedSystem && len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText(system, genai.RoleUser))
	}

	return &Payload{Contents: contents, Config: config}
}

// applyGenerationConfig merges generation parameters. The caller's
// nested overrides map is applied first; explicit builder params win
// ties. Neither source is dropped.
func applyGenerationConfig(config *genai.GenerateContentConfig, params GenerationParams, overrides map[string]any) {
	if v, ok := floatOverride(overrides, "temperature"); ok {
		config.Temperature = genai.Ptr(v)
	}
	if v, ok := floatOverride(overrides, "top_p"); ok {
		config.TopP = genai.Ptr(v)
	}
	if v, ok := floatOverride(overrides, "top_k"); ok {
		config.TopK = genai.Ptr(v)
	}
	if v, ok := floatOverride(overrides, "max_output_tokens"); ok {
		config.MaxOutputTokens = int32(v)
	}

	if params.Temperature != nil {
		config.Temperature = genai.Ptr(*params.Temperature)
	}
	if params.TopP != nil {
		config.TopP = genai.Ptr(*params.TopP)
	}
	if params.TopK != nil {
		config.TopK = genai.Ptr(*params.TopK)
	}
	if params.MaxOutputTokens > 0 {
		config.MaxOutputTokens = params.MaxOutputTokens
	}
}

func floatOverride(overrides map[string]any, key string) (float32, bool) {
	if overrides == nil {
		return 0, false
	}
	switch v := overrides[key].(type) {
	case float64:
		return float32(v), true
	case float32:
		return v, true
	case int:
		return float32(v), true
	default:
		return 0, false
	}
}

func toGenaiPart(p files.Part) *genai.Part {
	switch {
	case p.Inline != nil:
		return &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: p.Inline.MIMEType,
				Data:     p.Inline.Data,
			},
		}
	case p.FileRef != nil:
		return &genai.Part{
			FileData: &genai.FileData{
				MIMEType: p.FileRef.MIMEType,
				FileURI:  p.FileRef.URI,
			},
		}
	default:
		return &genai.Part{Text: p.Text}
	}
}

// FromResponse normalizes a raw SDK response. Extraction order: the
// SDK's text accessor, then the known candidate/content/parts shape,
// then a bounded scan of the raw JSON tree as a last resort against
// response shape drift.
func (a *Adapter) FromResponse(raw *genai.GenerateContentResponse) (*Response, error) {
	if raw == nil {
		return nil, NewCallError(ClassUnknown, "empty response from upstream")
	}

	if reason := blockReason(raw); reason != "" {
		return &Response{Kind: KindBlocked, BlockReason: reason}, nil
	}

	resp := &Response{Kind: KindText}

	if text := raw.Text(); text != "" {
		resp.Texts = append(resp.Texts, text)
	} else if texts := candidateTexts(raw); len(texts) > 0 {
		resp.Texts = texts
	} else if texts := scanForText(raw, a.logger); len(texts) > 0 {
		resp.Texts = texts
	}

	if g := extractGrounding(raw); g != nil {
		resp.Grounding = g
		resp.Kind = KindGrounded
	}

	if dets, ok := parseDetections(resp.Text()); ok {
		resp.Detections = dets
		resp.Kind = KindVision
	}

	if len(resp.Texts) == 0 && resp.Kind == KindText {
		return nil, NewCallError(ClassUnknown, "upstream response contained no extractable text")
	}

	return resp, nil
}

func blockReason(raw *genai.GenerateContentResponse) string {
	if raw.PromptFeedback != nil &&
		raw.PromptFeedback.BlockReason != "" &&
		raw.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return string(raw.PromptFeedback.BlockReason)
	}
	for _, c := range raw.Candidates {
		if c.FinishReason == genai.FinishReasonSafety ||
			c.FinishReason == genai.FinishReasonProhibitedContent {
			return string(c.FinishReason)
		}
	}
	return ""
}

// candidateTexts walks the known structural location:
// candidates -> content -> parts[].text.
func candidateTexts(raw *genai.GenerateContentResponse) []string {
	var texts []string
	for _, c := range raw.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	return texts
}

// scanText bounds for the last-resort traversal.
const (
	scanMaxDepth  = 3
	scanMinLength = 10
)

// scanForText is the fallback of last resort for response shape drift:
// a depth-bounded walk over the value's JSON tree collecting every
// field literally named "text" longer than scanMinLength.
func scanForText(v any, logger log.Logger) []string {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var texts []string
	var walk func(v gjson.Result, depth int)
	walk = func(v gjson.Result, depth int) {
		if depth > scanMaxDepth {
			return
		}
		v.ForEach(func(key, value gjson.Result) bool {
			if value.IsObject() || value.IsArray() {
				walk(value, depth+1)
				return true
			}
			if strings.EqualFold(key.String(), "text") && len(value.String()) > scanMinLength {
				texts = append(texts, value.String())
			}
			return true
		})
	}
	walk(gjson.ParseBytes(data), 0)

	if len(texts) > 0 {
		logger.Warn("extracted response text via bounded fallback scan", "fragments", len(texts))
	}
	return texts
}

func extractGrounding(raw *genai.GenerateContentResponse) *Grounding {
	if len(raw.Candidates) == 0 {
		return nil
	}
	meta := raw.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	g := &Grounding{Queries: meta.WebSearchQueries}
	seen := make(map[string]bool)
	for _, chunk := range meta.GroundingChunks {
		var src Source
		switch {
		case chunk.Web != nil:
			src = Source{Title: chunk.Web.Title, URL: chunk.Web.URI}
		case chunk.RetrievedContext != nil:
			src = Source{Title: chunk.RetrievedContext.Title, URL: chunk.RetrievedContext.URI}
		}
		if src.URL == "" || seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		g.Sources = append(g.Sources, src)
	}

	if len(g.Sources) == 0 && len(g.Queries) == 0 {
		return nil
	}
	return g
}

// parseDetections recognizes the vision bounding-box shape: a JSON
// array of objects carrying a box_2d field, optionally wrapped in a
// markdown code fence.
func parseDetections(text string) ([]Detection, bool) {
	body := strings.TrimSpace(text)
	if i := strings.Index(body, "```"); i >= 0 {
		body = body[i+3:]
		body = strings.TrimPrefix(body, "json")
		if j := strings.Index(body, "```"); j >= 0 {
			body = body[:j]
		}
		body = strings.TrimSpace(body)
	}

	parsed := gjson.Parse(body)
	if !parsed.IsArray() {
		return nil, false
	}

	var dets []Detection
	valid := true
	parsed.ForEach(func(_, item gjson.Result) bool {
		box := item.Get("box_2d")
		if !box.IsArray() || len(box.Array()) != 4 {
			valid = false
			return false
		}
		var d Detection
		for i, coord := range box.Array() {
			d.Box[i] = coord.Float()
		}
		d.Label = item.Get("label").String()
		dets = append(dets, d)
		return true
	})

	if !valid || len(dets) == 0 {
		return nil, false
	}
	return dets, true
}
