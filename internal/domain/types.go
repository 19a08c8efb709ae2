// Package domain provides the canonical types shared across the gateway:
// the normalized authorization outcome, the explanation request/result pair,
// and word-level alignment data for spoken narration.
package domain

import "time"

// Decision is the normalized verdict of an authorization attempt.
// The normalizer only ever produces Allow or Deny; any ambiguous or
// malformed upstream response is classified as Deny.
type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionDeny  Decision = "DENY"
)

// DenyCodeReplay marks a denial caused by reuse of an already-executed
// authorization. It selects the replay-specific fallback sentence.
const DenyCodeReplay = "REPLAY_DENIED"

// DecisionKind is the closed set of outcome shapes the narration layer
// distinguishes between. It extends Decision with the replay case so that
// fallback selection is an exhaustive switch; adding a kind is a
// compile-visible change everywhere fallback text is produced.
type DecisionKind int

const (
	KindAllow DecisionKind = iota
	KindDeny
	KindReplayDenied
)

// String returns the string representation of the kind.
func (k DecisionKind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindDeny:
		return "deny"
	case KindReplayDenied:
		return "replay_denied"
	default:
		return "unknown"
	}
}

// AuthorizationOutcome is the normalized result of one authorization
// request. Exactly one of ReceiptID (Allow) or DenyCode (Deny) is
// populated; the normalizer in the authz package maintains that.
type AuthorizationOutcome struct {
	Decision Decision `json:"decision"`

	// ReceiptID is set iff Decision is Allow.
	ReceiptID string `json:"receipt_id,omitempty"`

	// DenyCode and DenyReason are set iff Decision is Deny.
	DenyCode   string `json:"deny_code,omitempty"`
	DenyReason string `json:"deny_reason,omitempty"`

	// PolicyFingerprint and PayloadFingerprint are opaque hashes supplied
	// by the authorization service when available.
	PolicyFingerprint  string `json:"policy_fingerprint,omitempty"`
	PayloadFingerprint string `json:"payload_fingerprint,omitempty"`
}

// Kind maps the outcome onto the closed DecisionKind enumeration.
func (o *AuthorizationOutcome) Kind() DecisionKind {
	if o.Decision == DecisionAllow {
		return KindAllow
	}
	if o.DenyCode == DenyCodeReplay {
		return KindReplayDenied
	}
	return KindDeny
}

// AuditSnapshot is the receipt state fetched after execution. It is
// consulted only for audit display, never for the allow/deny decision.
type AuditSnapshot struct {
	State          string    `json:"state"`
	SignatureValid bool      `json:"signature_valid"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// ExplanationRequest is the fact set an explanation may draw from.
// It is constructed fresh per turn and never mutated.
type ExplanationRequest struct {
	// Scenario identifies the flow being narrated (e.g. "transfer").
	// It participates in the cache fingerprint, never in generated text.
	Scenario string

	UserText      string
	ActionSummary string
	ActionType    string
	TargetSystem  string

	Outcome AuthorizationOutcome

	// Audit is present only when the action already executed.
	Audit *AuditSnapshot

	// DriftDetected records that a previous candidate for this scenario
	// was rejected as off-domain.
	DriftDetected bool
}

// ExplanationSource tags where an explanation's text came from.
type ExplanationSource string

const (
	SourceGenerated ExplanationSource = "GENERATED"
	SourceFallback  ExplanationSource = "FALLBACK"
)

// ExplanationResult is the narration text handed to the presentation
// layer. Rejected is true iff the validator or contradiction guard
// discarded a generated candidate on the way here.
type ExplanationResult struct {
	Text     string            `json:"text"`
	Source   ExplanationSource `json:"source"`
	Rejected bool              `json:"rejected"`
}

// AlignmentData carries word-level start offsets for spoken narration.
// Words and StartOffsetsMs have equal length and StartOffsetsMs is
// monotonically non-decreasing. Offsets are a best-effort estimate unless
// the synthesis provider supplied true timestamps.
type AlignmentData struct {
	Words          []string `json:"words"`
	StartOffsetsMs []int    `json:"start_offsets_ms"`
}
