// Package runtime composes the decision pipeline: authorization,
// normalization, explanation, narration, and audit recording for one turn.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxpay/gateway/internal/authz"
	"github.com/voxpay/gateway/internal/domain"
	"github.com/voxpay/gateway/internal/explain"
	"github.com/voxpay/gateway/internal/narrate"
	"github.com/voxpay/gateway/internal/storage"
)

// TurnInput is one proposed action plus the user text that produced it.
type TurnInput struct {
	UserText      string
	Scenario      string
	ActionType    string
	TargetSystem  string
	ActionSummary string
	Payload       json.RawMessage
	Speak         bool

	// DriftDetected is supplied by the caller when an earlier candidate
	// for this scenario was rejected as off-domain. It keys a separate
	// cache entry so the post-drift narration is never served from the
	// pre-drift one.
	DriftDetected bool
}

// TurnOutput is everything the presentation layer needs for one turn.
type TurnOutput struct {
	TurnID      string
	Outcome     domain.AuthorizationOutcome
	Explanation domain.ExplanationResult
	Audit       *domain.AuditSnapshot

	// Audio fields are populated only when narration was requested and
	// synthesis succeeded; AudioUnavailable marks a synthesis failure
	// that the turn survived.
	Audio            []byte
	Alignment        *domain.AlignmentData
	NarrationKey     string
	AudioUnavailable bool
}

// Pipeline owns every component of a decision cycle. Both caches are
// constructed here with injected configuration and passed by reference;
// they are the only shared mutable state between concurrent turns.
type Pipeline struct {
	authz     *authz.Client
	agentID   string
	generator explain.Generator
	explCache *explain.Cache
	narrator  *narrate.Narrator
	store     storage.DecisionStore
	logger    *slog.Logger

	orchestrator *explain.Orchestrator
}

// New creates a Pipeline from options. An authorizer is required;
// everything else degrades gracefully when absent.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.authz == nil {
		return nil, fmt.Errorf("pipeline requires an authorizer, use WithAuthorizer")
	}
	if p.explCache == nil {
		p.explCache = explain.NewCache(0, true)
	}

	p.orchestrator = explain.NewOrchestrator(p.generator, p.explCache, p.logger)
	return p, nil
}

// RunTurn executes one full decision cycle. The only errors it returns
// are transport failure reaching the authorization service, a contract
// violation in an ALLOW response, and invalid input; every other failure
// mode resolves to fallback text inside the output.
func (p *Pipeline) RunTurn(ctx context.Context, input *TurnInput) (*TurnOutput, error) {
	if input.ActionType == "" {
		return nil, domain.ErrInvalidRequest("action_type is required")
	}

	turnID := "turn_" + uuid.New().String()

	outcome, err := p.authz.Authorize(ctx, &authz.AuthorizeRequest{
		AgentID:      p.agentID,
		ActionType:   input.ActionType,
		TargetSystem: input.TargetSystem,
		Payload:      input.Payload,
	})
	if err != nil {
		return nil, domain.ErrUpstream(fmt.Sprintf("authorization unreachable: %v", err))
	}

	// An ALLOW without a receipt is a broken contract, not a valid
	// authorization; escalate instead of narrating it.
	if outcome.Decision == domain.DecisionAllow && outcome.ReceiptID == "" {
		return nil, domain.ErrMissingReceipt()
	}

	output := &TurnOutput{TurnID: turnID, Outcome: outcome}

	req := &domain.ExplanationRequest{
		Scenario:      input.Scenario,
		UserText:      input.UserText,
		ActionSummary: input.ActionSummary,
		ActionType:    input.ActionType,
		TargetSystem:  input.TargetSystem,
		Outcome:       outcome,
		DriftDetected: input.DriftDetected,
	}

	if outcome.Decision == domain.DecisionAllow {
		if snap, err := p.authz.FetchReceipt(ctx, outcome.ReceiptID); err == nil {
			req.Audit = snap
			output.Audit = snap
		} else {
			p.logger.Warn("receipt audit fetch failed",
				slog.String("turn_id", turnID),
				slog.String("error", err.Error()),
			)
		}
	}

	output.Explanation = p.orchestrator.Explain(ctx, req)

	if input.Speak && p.narrator != nil {
		narration, err := p.narrator.Speak(ctx, output.Explanation.Text)
		if err != nil {
			// Text narration proceeds without audio.
			p.logger.Warn("narration unavailable",
				slog.String("turn_id", turnID),
				slog.String("error", err.Error()),
			)
			output.AudioUnavailable = true
		} else {
			output.Audio = narration.Audio
			output.Alignment = narration.Alignment
			output.NarrationKey = narration.Key
		}
	}

	p.record(ctx, turnID, input, output)
	return output, nil
}

// record persists the turn best-effort; failures are logged, never
// propagated.
func (p *Pipeline) record(ctx context.Context, turnID string, input *TurnInput, output *TurnOutput) {
	if p.store == nil {
		return
	}

	// Decouple persistence from the request lifecycle so a client
	// disconnect cannot drop the audit record.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	rec := &storage.TurnRecord{
		ID:                turnID,
		AgentID:           p.agentID,
		ActionType:        input.ActionType,
		TargetSystem:      input.TargetSystem,
		Decision:          string(output.Outcome.Decision),
		DenyCode:          output.Outcome.DenyCode,
		ReceiptID:         output.Outcome.ReceiptID,
		Explanation:       output.Explanation.Text,
		ExplanationSource: string(output.Explanation.Source),
		Rejected:          output.Explanation.Rejected,
		NarrationKey:      output.NarrationKey,
		CreatedAt:         time.Now(),
	}

	if err := p.store.RecordTurn(persistCtx, rec); err != nil {
		p.logger.Error("failed to record turn",
			slog.String("turn_id", turnID),
			slog.String("error", err.Error()),
		)
	}
}

// GetTurn returns a recorded turn for audit display.
func (p *Pipeline) GetTurn(ctx context.Context, id string) (*storage.TurnRecord, error) {
	if p.store == nil {
		return nil, domain.ErrNotFound("no decision store configured").WithCode(domain.ErrorCodeTurnNotFound)
	}
	rec, err := p.store.GetTurn(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound(fmt.Sprintf("turn %s not found", id)).WithCode(domain.ErrorCodeTurnNotFound)
	}
	return rec, nil
}

// ListTurns lists recorded turns for audit display.
func (p *Pipeline) ListTurns(ctx context.Context, opts storage.ListOptions) ([]*storage.TurnRecord, error) {
	if p.store == nil {
		return []*storage.TurnRecord{}, nil
	}
	return p.store.ListTurns(ctx, opts)
}

// NarrationAudio returns cached narration bytes by key.
func (p *Pipeline) NarrationAudio(key string) ([]byte, bool) {
	if p.narrator == nil {
		return nil, false
	}
	return p.narrator.CachedAudio(key)
}

// Close releases pipeline resources.
func (p *Pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}
