package gemini

import (
	"fmt"
	"strings"

	"github.com/okibi/gemini-mcp/internal/files"
)

// Role tags a message in the intermediate request.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged entry in the intermediate request.
type Message struct {
	Role  Role
	Parts []files.Part
}

// GenerationParams are the provider-agnostic generation knobs. Nil
// pointer fields mean "not set"; they lose to caller overrides.
type GenerationParams struct {
	Temperature     *float32
	TopP            *float32
	TopK            *float32
	MaxOutputTokens int32
}

// Request is the provider-agnostic intermediate request. Built fresh
// per call, never persisted.
type Request struct {
	// System is the hoisted system instruction. Empty means none.
	System string

	// Messages is the ordered conversational content. After
	// normalization it contains no system-role entries.
	Messages []Message

	// Params are the builder's generation parameters. They take
	// precedence over Overrides.
	Params GenerationParams

	// Overrides is the caller-supplied nested generation-config object.
	// Recognized keys: temperature, top_p, top_k, max_output_tokens.
	Overrides map[string]any

	// EnableSearch requests the search-grounding tool, subject to the
	// resolved model's capability.
	EnableSearch bool
}

// Tool-specific generation temperatures.
const (
	searchTemperature  float32 = 0.7
	reasonTemperature  float32 = 0.2
	codeTemperature    float32 = 0.2
	fileopsTemperature float32 = 0.3
	analyzeTemperature float32 = 0.4
)

const searchSystemPrompt = "You are a research assistant with access to Google Search. " +
	"You MUST use the search tool to ground your answer in current sources. " +
	"Cite the sources you relied on."

const codeSystemPrompt = "You are a code analysis assistant. Answer strictly from the " +
	"repository document supplied in the user message. If the document does not contain " +
	"the answer, say so instead of speculating."

const stepByStepPrefix = "Think through this step by step and show your working.\n\n"

// BuildSearch constructs the request for the search tool.
func BuildSearch(query string, overrides map[string]any) *Request {
	req := &Request{
		Messages: []Message{
			{Role: RoleSystem, Parts: textParts(searchSystemPrompt)},
			{Role: RoleUser, Parts: textParts(query)},
		},
		Params:       GenerationParams{Temperature: ptr(searchTemperature)},
		Overrides:    overrides,
		EnableSearch: true,
	}
	return normalize(req)
}

// BuildReason constructs the request for the reason tool. No system
// prompt is injected by default: reasoning-tuned models do better
// without one. showSteps prefixes an explicit step-by-step instruction;
// attachments ride along in the same user message.
func BuildReason(problem string, showSteps bool, attachments []files.Part, overrides map[string]any) *Request {
	text := problem
	if showSteps {
		text = stepByStepPrefix + problem
	}
	parts := make([]files.Part, 0, len(attachments)+1)
	parts = append(parts, files.Part{Text: text})
	parts = append(parts, attachments...)

	req := &Request{
		Messages: []Message{
			{Role: RoleUser, Parts: parts},
		},
		Params: GenerationParams{
			Temperature:     ptr(reasonTemperature),
			MaxOutputTokens: 65_536,
		},
		Overrides: overrides,
	}
	return normalize(req)
}

// BuildCode constructs the request for the code tool. The packed
// repository document and the question travel in one consolidated user
// message so the model sees them as a single context.
func BuildCode(question, packedRepo string, overrides map[string]any) *Request {
	var body strings.Builder
	body.WriteString("Repository document:\n\n")
	body.WriteString(packedRepo)
	body.WriteString("\n\nQuestion: ")
	body.WriteString(question)

	req := &Request{
		Messages: []Message{
			{Role: RoleSystem, Parts: textParts(codeSystemPrompt)},
			{Role: RoleUser, Parts: textParts(body.String())},
		},
		Params: GenerationParams{
			Temperature:     ptr(codeTemperature),
			MaxOutputTokens: 65_536,
		},
		Overrides: overrides,
	}
	return normalize(req)
}

// FileOperation names the fixed fileops prompt variants.
type FileOperation string

const (
	OpSummarize FileOperation = "summarize"
	OpExtract   FileOperation = "extract"
	OpAnalyze   FileOperation = "analyze"
)

// BuildFileOps constructs the request for the fileops tool. A free-text
// instruction takes precedence over the named operation. The prompt
// wording follows the dominant category of the attached files.
func BuildFileOps(op FileOperation, instruction string, parts []files.Part, overrides map[string]any) *Request {
	prompt := instruction
	temp := fileopsTemperature
	if prompt == "" {
		prompt = fileOpsPrompt(op, dominantCategory(parts))
		if op == OpAnalyze {
			temp = analyzeTemperature
		}
	}

	userParts := make([]files.Part, 0, len(parts)+1)
	userParts = append(userParts, files.Part{Text: prompt})
	userParts = append(userParts, parts...)

	req := &Request{
		Messages: []Message{
			{Role: RoleUser, Parts: userParts},
		},
		Params:    GenerationParams{Temperature: ptr(temp)},
		Overrides: overrides,
	}
	return normalize(req)
}

// fileOpsPrompt picks the operation wording for the file category.
func fileOpsPrompt(op FileOperation, cat files.Category) string {
	subject := "the attached file(s)"
	switch cat {
	case files.CategoryImage:
		subject = "the attached image(s)"
	case files.CategoryDocument:
		subject = "the attached document(s)"
	}

	switch op {
	case OpSummarize:
		return fmt.Sprintf("Summarize %s concisely. Lead with the key points.", subject)
	case OpExtract:
		if cat == files.CategoryImage {
			return "Extract all visible text and structured data from the attached image(s). " +
				"Preserve layout where it carries meaning."
		}
		return fmt.Sprintf("Extract the structured data and key facts from %s.", subject)
	case OpAnalyze:
		return fmt.Sprintf("Analyze %s in detail: content, structure, and anything notable.", subject)
	default:
		return fmt.Sprintf("Describe %s.", subject)
	}
}

// dominantCategory returns the most frequent non-error category among
// the parts, preferring image and document over generic text on ties.
func dominantCategory(parts []files.Part) files.Category {
	counts := make(map[files.Category]int)
	for _, p := range parts {
		if p.Err {
			continue
		}
		counts[p.Category]++
	}
	best := files.CategoryUnknown
	bestCount := 0
	// Fixed preference order keeps ties deterministic.
	for _, c := range []files.Category{
		files.CategoryImage, files.CategoryDocument, files.CategoryCode,
		files.CategoryData, files.CategoryText, files.CategoryAudio,
		files.CategoryVideo, files.CategoryArchive, files.CategoryUnknown,
	} {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}

// normalize hoists system-role messages into the dedicated System field
// and drops them from the message list. Some model families reject a
// system role embedded in ordinary content, so the hoist happens here
// once instead of in every builder.
func normalize(req *Request) *Request {
	var system []string
	kept := req.Messages[:0]

	for _, msg := range req.Messages {
		if msg.Role != RoleSystem {
			kept = append(kept, msg)
			continue
		}
		for _, p := range msg.Parts {
			if text := strings.TrimSpace(p.Text); text != "" {
				system = append(system, text)
			}
		}
	}

	req.Messages = kept
	if req.System == "" {
		req.System = strings.Join(system, "\n\n")
	} else if len(system) > 0 {
		req.System = req.System + "\n\n" + strings.Join(system, "\n\n")
	}
	return req
}

func textParts(text string) []files.Part {
	return []files.Part{{Text: text}}
}

func ptr[T any](v T) *T { return &v }
