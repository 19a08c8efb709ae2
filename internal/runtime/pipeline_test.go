package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voxpay/gateway/internal/authz"
	"github.com/voxpay/gateway/internal/domain"
	"github.com/voxpay/gateway/internal/explain"
	"github.com/voxpay/gateway/internal/narrate"
	"github.com/voxpay/gateway/internal/storage/memory"
)

// scriptedGenerator returns a fixed candidate.
type scriptedGenerator struct {
	text string
	err  error
}

func (s *scriptedGenerator) Generate(ctx context.Context, req *domain.ExplanationRequest) (string, error) {
	return s.text, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// authzServer fakes the authorization service: a decision response plus a
// receipt endpoint.
func authzServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/receipts/") {
			json.NewEncoder(w).Encode(map[string]any{
				"state":           "EXECUTED",
				"signature_valid": true,
				"executed_at":     time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func transferInput() *TurnInput {
	return &TurnInput{
		UserText:      "send twenty-five dollars to alex",
		Scenario:      "transfer",
		ActionType:    "funds_transfer",
		TargetSystem:  "ledger",
		ActionSummary: "transfer $25 to alex",
		Payload:       json.RawMessage(`{"amount":25,"currency":"USD"}`),
	}
}

func TestPipeline_AllowHappyPath(t *testing.T) {
	ts := authzServer(t, 200, `{"decision":"ALLOW","receipt_id":"rcpt-1"}`)
	defer ts.Close()

	store := memory.New()
	p, err := New(
		WithAuthorizer(authz.NewClient(ts.URL), "agent-1"),
		WithGenerator(&scriptedGenerator{text: "Your transfer of twenty-five dollars is complete."}),
		WithExplanationCache(time.Hour, true),
		WithStore(store),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	output, err := p.RunTurn(context.Background(), transferInput())
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	if output.Outcome.Decision != domain.DecisionAllow {
		t.Errorf("Decision = %v, want ALLOW", output.Outcome.Decision)
	}
	if output.Explanation.Source != domain.SourceGenerated || output.Explanation.Rejected {
		t.Errorf("Explanation = %+v, want accepted generated text", output.Explanation)
	}
	if output.Audit == nil || output.Audit.State != "EXECUTED" {
		t.Errorf("Audit = %+v, want executed snapshot", output.Audit)
	}

	rec, err := store.GetTurn(context.Background(), output.TurnID)
	if err != nil {
		t.Fatalf("turn not recorded: %v", err)
	}
	if rec.Decision != "ALLOW" || rec.ReceiptID != "rcpt-1" {
		t.Errorf("recorded turn = %+v, decision fields wrong", rec)
	}
}

func TestPipeline_DenyReplacesContradictoryCandidate(t *testing.T) {
	ts := authzServer(t, 200, `{"decision":"DENY","deny_code":"AMOUNT_EXCEEDS_LIMIT","deny_reason":"Over limit"}`)
	defer ts.Close()

	p, err := New(
		WithAuthorizer(authz.NewClient(ts.URL), "agent-1"),
		WithGenerator(&scriptedGenerator{text: "Your payment completed successfully."}),
		WithExplanationCache(time.Hour, true),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	output, err := p.RunTurn(context.Background(), transferInput())
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	if !output.Explanation.Rejected {
		t.Error("Rejected = false, want true for a contradictory candidate")
	}
	if explain.Contradicts(domain.DecisionDeny, output.Explanation.Text) {
		t.Errorf("final text contradicts the denial: %q", output.Explanation.Text)
	}
	lower := strings.ToLower(output.Explanation.Text)
	if !strings.Contains(lower, "denied") && !strings.Contains(lower, "nothing was sent") {
		t.Errorf("denial text lacks an affirmative denial phrase: %q", output.Explanation.Text)
	}
}

func TestPipeline_AllowWithoutReceiptIsContractViolation(t *testing.T) {
	ts := authzServer(t, 200, `{"decision":"ALLOW"}`)
	defer ts.Close()

	p, err := New(
		WithAuthorizer(authz.NewClient(ts.URL), "agent-1"),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.RunTurn(context.Background(), transferInput())
	if err == nil {
		t.Fatal("RunTurn() error = nil, want contract violation")
	}
	var perr *domain.PipelineError
	if !errors.As(err, &perr) || perr.Code != domain.ErrorCodeMissingReceipt {
		t.Errorf("error = %v, want missing receipt pipeline error", err)
	}
}

func TestPipeline_AuthzUnreachableIsError(t *testing.T) {
	ts := authzServer(t, 200, `{}`)
	ts.Close()

	p, err := New(
		WithAuthorizer(authz.NewClient(ts.URL), "agent-1"),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.RunTurn(context.Background(), transferInput())
	if err == nil {
		t.Fatal("RunTurn() error = nil, want upstream error")
	}
	var perr *domain.PipelineError
	if !errors.As(err, &perr) || perr.Type != domain.ErrorTypeUpstream {
		t.Errorf("error = %v, want upstream pipeline error", err)
	}
}

// Synthesis failure degrades to text-only output, not a turn failure.
type failingSynth struct{}

func (failingSynth) Synthesize(ctx context.Context, text string) (*narrate.SynthesisResult, error) {
	return nil, errors.New("synthesis down")
}

func TestPipeline_SynthesisFailureDegradesToText(t *testing.T) {
	ts := authzServer(t, 200, `{"decision":"ALLOW","receipt_id":"rcpt-1"}`)
	defer ts.Close()

	narrator := narrate.NewNarrator(failingSynth{}, narrate.NewCache(t.TempDir(), true, quietLogger()), "tts-1", "ivy", quietLogger())
	p, err := New(
		WithAuthorizer(authz.NewClient(ts.URL), "agent-1"),
		WithNarrator(narrator),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	input := transferInput()
	input.Speak = true
	output, err := p.RunTurn(context.Background(), input)
	if err != nil {
		t.Fatalf("RunTurn() error = %v, want degraded success", err)
	}

	if !output.AudioUnavailable {
		t.Error("AudioUnavailable = false, want true")
	}
	if output.Explanation.Text == "" {
		t.Error("Explanation.Text empty, want text narration to proceed")
	}
}

// driftAwareGenerator records the drift flag it was generated under.
type driftAwareGenerator struct {
	text  string
	drift []bool
}

func (g *driftAwareGenerator) Generate(ctx context.Context, req *domain.ExplanationRequest) (string, error) {
	g.drift = append(g.drift, req.DriftDetected)
	return g.text, nil
}

func TestPipeline_DriftFlagReachesGeneratorAndSplitsCache(t *testing.T) {
	ts := authzServer(t, 200, `{"decision":"ALLOW","receipt_id":"rcpt-1"}`)
	defer ts.Close()

	gen := &driftAwareGenerator{text: "Your transfer is complete and the payment was sent."}
	p, err := New(
		WithAuthorizer(authz.NewClient(ts.URL), "agent-1"),
		WithGenerator(gen),
		WithExplanationCache(time.Hour, true),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := p.RunTurn(context.Background(), transferInput()); err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	// Same scenario with the drift flag set must miss the earlier cache
	// entry and regenerate under the flag.
	input := transferInput()
	input.DriftDetected = true
	if _, err := p.RunTurn(context.Background(), input); err != nil {
		t.Fatalf("RunTurn() with drift error = %v", err)
	}

	if len(gen.drift) != 2 {
		t.Fatalf("generator calls = %d, want 2 (drift flag must split the cache key)", len(gen.drift))
	}
	if gen.drift[0] || !gen.drift[1] {
		t.Errorf("drift flags seen by generator = %v, want [false true]", gen.drift)
	}
}

func TestPipeline_RequiresActionType(t *testing.T) {
	ts := authzServer(t, 200, `{}`)
	defer ts.Close()

	p, err := New(WithAuthorizer(authz.NewClient(ts.URL), "agent-1"), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := p.RunTurn(context.Background(), &TurnInput{UserText: "hi"}); err == nil {
		t.Fatal("RunTurn() error = nil, want invalid request")
	}
}

func TestPipeline_RequiresAuthorizer(t *testing.T) {
	if _, err := New(WithLogger(quietLogger())); err == nil {
		t.Fatal("New() error = nil, want missing authorizer error")
	}
}
