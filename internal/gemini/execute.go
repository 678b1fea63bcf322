package gemini

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/okibi/gemini-mcp/internal/log"
)

// GenerateFunc issues one generate call against the upstream API. It is
// injected so tests can run the engine against fakes; production wires
// it to genai's Models.GenerateContent.
type GenerateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// NewGenerateFunc adapts a genai client to GenerateFunc.
func NewGenerateFunc(client *genai.Client) GenerateFunc {
	return func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, contents, config)
	}
}

// Client-side pacing budgets, requests per minute. The free tier's
// published per-model limits sit near 10 RPM; staying under avoids
// burning the single substitution on self-inflicted 429s.
const (
	freeTierRPM = 8
	paidTierRPM = 150
)

// EngineOptions configures the Engine.
type EngineOptions struct {
	// PaidTier selects the wider pacing budget.
	PaidTier bool

	// Timeout bounds each upstream call. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration
}

// Engine executes provider payloads with rate-limit-aware pacing and
// at most one automatic model substitution per original request.
type Engine struct {
	generate GenerateFunc
	registry *Registry
	adapter  *Adapter
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   log.Logger
}

// NewEngine creates an Engine.
func NewEngine(generate GenerateFunc, registry *Registry, adapter *Adapter, opts EngineOptions, logger log.Logger) *Engine {
	rpm := freeTierRPM
	if opts.PaidTier {
		rpm = paidTierRPM
	}
	return &Engine{
		generate: generate,
		registry: registry,
		adapter:  adapter,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 2),
		timeout:  opts.Timeout,
		logger:   logger,
	}
}

// Execute runs the payload against modelID. A rate-limit failure on an
// advanced-tier model triggers exactly one retry against the model's
// designated lighter sibling with the same payload. Any other failure,
// or a failure on the substituted call, propagates as a *CallError.
func (e *Engine) Execute(ctx context.Context, modelID string, payload *Payload) (*Response, error) {
	resp, err := e.call(ctx, modelID, payload)
	if err == nil {
		resp.ModelID = modelID
		return resp, nil
	}

	ce := classifyError(err)
	if ce.Class != ClassRateLimited {
		return nil, ce
	}

	sibling := e.substituteFor(modelID)
	if sibling == "" {
		return nil, ce
	}

	e.logger.Warn("rate limited on advanced model, substituting lighter sibling",
		"model", modelID, "substitute", sibling)

	resp, err = e.call(ctx, sibling, payload)
	if err != nil {
		sub := classifyError(err)
		sub.Message = fmt.Sprintf("after substituting %s for rate-limited %s: %s",
			sibling, modelID, sub.Message)
		return nil, sub
	}

	resp.ModelID = sibling
	resp.FallbackApplied = true
	return resp, nil
}

// call performs one paced upstream call and normalizes the result.
func (e *Engine) call(ctx context.Context, modelID string, payload *Payload) (*Response, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		// Not classified as a rate limit: a failed wait means the caller's
		// context ended, and substitution would not help.
		return nil, NewCallError(ClassUnknown, "pacing wait: %v", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.generate(ctx, modelID, payload.Contents, payload.Config)
	if err != nil {
		return nil, err
	}
	return e.adapter.FromResponse(raw)
}

// substituteFor returns the designated lighter sibling, but only for
// advanced-tier models. Rate limits on anything else propagate.
func (e *Engine) substituteFor(modelID string) string {
	desc := e.registry.Lookup(modelID)
	if desc == nil || !desc.Advanced {
		return ""
	}
	return desc.FlashSibling
}
