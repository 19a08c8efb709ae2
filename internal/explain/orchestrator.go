package explain

import (
	"context"
	"log/slog"
	"strings"

	"github.com/voxpay/gateway/internal/domain"
)

// DefaultMaxChars is the generation length ceiling. Candidates longer than
// this are treated as generation failures, not truncated.
const DefaultMaxChars = 600

// previewLen bounds how much rejected text reaches the logs. Rejected
// candidates may contain leaked internal data, so the full text never
// does.
const previewLen = 60

// Generator produces a free-form explanation candidate from the fact set.
// Its output is fully untrusted until validated.
type Generator interface {
	Generate(ctx context.Context, req *domain.ExplanationRequest) (string, error)
}

// Orchestrator runs the explanation state machine: cache lookup, then
// generation, validation, contradiction check, and fallback substitution.
// Every terminal path writes its result back to the cache.
type Orchestrator struct {
	gen      Generator
	cache    *Cache
	logger   *slog.Logger
	maxChars int
}

// NewOrchestrator wires a generator and cache. A nil generator skips
// straight to the decision fallback, which keeps the pipeline usable
// without generation credentials.
func NewOrchestrator(gen Generator, cache *Cache, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache(0, false)
	}
	return &Orchestrator{
		gen:      gen,
		cache:    cache,
		logger:   logger,
		maxChars: DefaultMaxChars,
	}
}

// Explain resolves the explanation for one decision cycle. It never
// returns an error: every failure mode terminates in a deterministic
// fallback.
func (o *Orchestrator) Explain(ctx context.Context, req *domain.ExplanationRequest) domain.ExplanationResult {
	key := Fingerprint(req)

	if cached, ok := o.cache.Get(key); ok {
		return cached
	}

	result := o.resolve(ctx, req)
	o.cache.Set(key, result)
	return result
}

func (o *Orchestrator) resolve(ctx context.Context, req *domain.ExplanationRequest) domain.ExplanationResult {
	kind := req.Outcome.Kind()

	if o.gen == nil {
		return domain.ExplanationResult{Text: Fallback(kind), Source: domain.SourceFallback}
	}

	candidate, err := o.gen.Generate(ctx, req)
	if err != nil {
		o.logger.Warn("generation failed, using decision fallback",
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
		return domain.ExplanationResult{Text: Fallback(kind), Source: domain.SourceFallback}
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == "" || len(candidate) > o.maxChars {
		o.logger.Warn("generated text empty or overlong, using decision fallback",
			slog.String("kind", kind.String()),
			slog.Int("length", len(candidate)),
		)
		return domain.ExplanationResult{Text: Fallback(kind), Source: domain.SourceFallback}
	}

	if !Validate(candidate) {
		o.logger.Warn("candidate rejected by validator, using drift fallback",
			slog.String("kind", kind.String()),
			slog.String("preview", preview(candidate)),
		)
		return domain.ExplanationResult{Text: DriftFallback, Source: domain.SourceFallback, Rejected: true}
	}

	if Contradicts(req.Outcome.Decision, candidate) {
		o.logger.Warn("candidate contradicts decision, using decision fallback",
			slog.String("kind", kind.String()),
		)
		return domain.ExplanationResult{Text: Fallback(kind), Source: domain.SourceFallback, Rejected: true}
	}

	return domain.ExplanationResult{Text: candidate, Source: domain.SourceGenerated}
}

func preview(text string) string {
	if len(text) <= previewLen {
		return text
	}
	return text[:previewLen] + "..."
}
