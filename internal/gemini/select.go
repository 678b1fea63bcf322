package gemini

import (
	"strings"

	"github.com/okibi/gemini-mcp/internal/files"
	"github.com/okibi/gemini-mcp/internal/log"
)

// Tool identifies one of the exposed MCP tools.
type Tool string

const (
	ToolSearch  Tool = "search"
	ToolReason  Tool = "reason"
	ToolCode    Tool = "code"
	ToolFileOps Tool = "fileops"
)

// toolDefaults maps each tool to its nominal model.
var toolDefaults = map[Tool]string{
	ToolSearch:  ModelFlash,
	ToolReason:  ModelPro,
	ToolCode:    ModelPro,
	ToolFileOps: ModelFlashLite,
}

// Selector resolves a tool invocation to a canonical model identifier.
// Resolution order: explicit per-call override, process-wide default
// override, tool policy with file-category promotion. Every result
// passes through the fallback table.
type Selector struct {
	registry     *Registry
	defaultModel string
	logger       log.Logger
}

// NewSelector creates a Selector. defaultModel is the optional
// process-wide override from configuration; empty means none.
func NewSelector(registry *Registry, defaultModel string, logger log.Logger) *Selector {
	return &Selector{
		registry:     registry,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Selection describes a resolved model choice.
type Selection struct {
	// ModelID is the resolved canonical identifier.
	ModelID string

	// Requested is the identifier before fallback resolution, when it
	// differs from ModelID.
	Requested string

	// Heuristic is true when the identifier was unknown and mapped by
	// family-name matching rather than a confident registry lookup.
	Heuristic bool
}

// Select resolves the model for a tool call.
//
// largeInput upgrades fileops to the large-context model. categories
// promote the choice to the most capable model any single file needs:
// a code file promotes the batch to the reasoning model, a document to
// the standard flash tier.
func (s *Selector) Select(tool Tool, override string, largeInput bool, categories []files.Category) Selection {
	if override != "" {
		return s.resolve(override)
	}
	if s.defaultModel != "" {
		return s.resolve(s.defaultModel)
	}

	id, ok := toolDefaults[tool]
	if !ok {
		id = ModelFlash
	}

	if tool == ToolFileOps && largeInput {
		id = ModelPro
	}

	if promoted := promoteForCategories(id, categories); promoted != id {
		s.logger.Debug("file categories promoted model",
			"tool", tool, "from", id, "to", promoted)
		id = promoted
	}

	return s.resolve(id)
}

// resolve passes id through the fallback table, then applies the
// best-effort family heuristic for identifiers the registry has never
// seen. Heuristic hits are logged distinctly from confident lookups.
func (s *Selector) resolve(id string) Selection {
	resolved := s.registry.Resolve(id)
	sel := Selection{ModelID: resolved}
	if resolved != id {
		sel.Requested = id
		s.logger.Info("model resolved through fallback table",
			"requested", id, "resolved", resolved)
	}

	if s.registry.Lookup(sel.ModelID) != nil {
		return sel
	}

	// Unknown identifier: map preview/experimental-looking names to the
	// nearest stable family sibling. Best effort, not guaranteed correct.
	if mapped := nearestStableSibling(sel.ModelID); mapped != "" {
		s.logger.Warn("unknown model mapped by family heuristic",
			"requested", sel.ModelID, "mapped", mapped)
		sel.Requested = id
		sel.ModelID = mapped
		sel.Heuristic = true
		return sel
	}

	// Not even a recognizable family: pass through and let the upstream
	// API accept or reject it.
	s.logger.Debug("passing through unrecognized model identifier", "model", sel.ModelID)
	return sel
}

// capability ranks used for category promotion. Higher wins.
const (
	rankBase = iota + 1
	rankFlash
	rankPro
)

func modelRank(id string) int {
	switch id {
	case ModelPro:
		return rankPro
	case ModelFlash:
		return rankFlash
	default:
		return rankBase
	}
}

func categoryRank(c files.Category) int {
	switch c {
	case files.CategoryCode:
		return rankPro
	case files.CategoryDocument:
		return rankFlash
	default:
		return rankBase
	}
}

func promoteForCategories(id string, categories []files.Category) string {
	need := modelRank(id)
	for _, c := range categories {
		if r := categoryRank(c); r > need {
			need = r
		}
	}
	switch need {
	case rankPro:
		return ModelPro
	case rankFlash:
		if modelRank(id) < rankFlash {
			return ModelFlash
		}
	}
	return id
}

// nearestStableSibling maps an unknown identifier to a stable family
// member by substring. Order matters: "flash-lite" contains "flash".
func nearestStableSibling(id string) string {
	lower := strings.ToLower(id)
	switch {
	case strings.Contains(lower, "flash-lite"):
		return ModelFlashLite
	case strings.Contains(lower, "flash"):
		return ModelFlash
	case strings.Contains(lower, "pro"):
		return ModelPro
	default:
		return ""
	}
}
