// Package gemini implements the model-selection, request construction,
// provider adaptation, execution, and response formatting pipeline
// behind the MCP tool handlers.
package gemini

// ModelDescriptor is a static record describing one upstream model.
// The registry is populated at process start and never mutated.
type ModelDescriptor struct {
	// ID is the canonical upstream model identifier.
	ID string

	// DisplayName is the human-readable model name.
	DisplayName string

	// ContextWindow is the input context size in tokens.
	ContextWindow int

	// MaxOutputTokens is the output budget in tokens.
	MaxOutputTokens int32

	// SupportsSearch indicates Google Search grounding eligibility.
	SupportsSearch bool

	// SupportsThinking indicates reasoning/"thinking" support.
	SupportsThinking bool

	// Multimodal indicates image/audio/video input support.
	Multimodal bool

	// FastResponse marks latency-optimized variants.
	FastResponse bool

	// SystemInstructionField indicates the model requires the system
	// instruction in the dedicated config field rather than embedded in
	// the content list.
	SystemInstructionField bool

	// Advanced marks the expensive tier eligible for automatic
	// substitution by FlashSibling on rate limits.
	Advanced bool

	// FlashSibling is the lighter model substituted after a rate-limit
	// failure. Empty for models that have no designated sibling.
	FlashSibling string

	// UseCases describes intended usage, surfaced in tool metadata.
	UseCases string
}

// Stable model identifiers known to the registry.
const (
	ModelPro       = "gemini-2.5-pro"
	ModelFlash     = "gemini-2.5-flash"
	ModelFlashLite = "gemini-2.5-flash-lite"
	ModelFlash20   = "gemini-2.0-flash"
)

// Registry is the read-only set of known model descriptors plus the
// fallback table mapping unavailable identifiers to working ones.
type Registry struct {
	models   map[string]*ModelDescriptor
	fallback map[string]string
}

// NewRegistry builds the static registry. Call once at process start.
func NewRegistry() *Registry {
	descriptors := []*ModelDescriptor{
		{
			ID:                     ModelPro,
			DisplayName:            "Gemini 2.5 Pro",
			ContextWindow:          1_048_576,
			MaxOutputTokens:        65_536,
			SupportsSearch:         true,
			SupportsThinking:       true,
			Multimodal:             true,
			SystemInstructionField: false,
			Advanced:               true,
			FlashSibling:           ModelFlash,
			UseCases:               "complex reasoning, code analysis, large documents",
		},
		{
			ID:                     ModelFlash,
			DisplayName:            "Gemini 2.5 Flash",
			ContextWindow:          1_048_576,
			MaxOutputTokens:        65_536,
			SupportsSearch:         true,
			SupportsThinking:       true,
			Multimodal:             true,
			FastResponse:           true,
			SystemInstructionField: true,
			FlashSibling:           ModelFlashLite,
			UseCases:               "search-grounded answers, fast multimodal tasks",
		},
		{
			ID:                     ModelFlashLite,
			DisplayName:            "Gemini 2.5 Flash-Lite",
			ContextWindow:          1_048_576,
			MaxOutputTokens:        65_536,
			Multimodal:             true,
			FastResponse:           true,
			SystemInstructionField: true,
			UseCases:               "cheap file operations, summarization, extraction",
		},
		{
			ID:                     ModelFlash20,
			DisplayName:            "Gemini 2.0 Flash",
			ContextWindow:          1_048_576,
			MaxOutputTokens:        8_192,
			SupportsSearch:         true,
			Multimodal:             true,
			FastResponse:           true,
			SystemInstructionField: true,
			UseCases:               "legacy stable fallback",
		},
	}

	models := make(map[string]*ModelDescriptor, len(descriptors))
	for _, d := range descriptors {
		models[d.ID] = d
	}

	// Preview, experimental, and retired identifiers seen in the wild,
	// mapped to known-good substitutes.
	fallback := map[string]string{
		"gemini-2.5-pro-preview-06-05":   ModelPro,
		"gemini-2.5-pro-preview-05-06":   ModelPro,
		"gemini-2.5-pro-exp-03-25":       ModelPro,
		"gemini-2.5-flash-preview-05-20": ModelFlash,
		"gemini-2.5-flash-preview-04-17": ModelFlash,
		"gemini-2.0-flash-exp":           ModelFlash20,
		"gemini-2.0-pro-exp":             ModelPro,
		"gemini-exp-1206":                ModelPro,
		"gemini-1.5-pro":                 ModelPro,
		"gemini-1.5-pro-latest":          ModelPro,
		"gemini-1.5-flash":               ModelFlash,
		"gemini-1.5-flash-latest":        ModelFlash,
		"gemini-1.5-flash-8b":            ModelFlashLite,
	}

	return &Registry{models: models, fallback: fallback}
}

// Lookup returns the descriptor for id, or nil when unknown.
func (r *Registry) Lookup(id string) *ModelDescriptor {
	return r.models[id]
}

// Resolve passes id through the fallback table. Identifiers without an
// entry are returned unchanged.
func (r *Registry) Resolve(id string) string {
	if sub, ok := r.fallback[id]; ok {
		return sub
	}
	return id
}

// FallbackFor returns the designated lighter sibling for id, or ""
// when none exists.
func (r *Registry) FallbackFor(id string) string {
	if d := r.Lookup(id); d != nil {
		return d.FlashSibling
	}
	return ""
}

// IDs returns all registered canonical identifiers.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}
