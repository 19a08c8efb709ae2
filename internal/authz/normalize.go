// Package authz talks to the external authorization service and normalizes
// its responses into a trusted AuthorizationOutcome. Normalization is
// fail-closed: no action executes without an explicit, syntactically exact
// ALLOW, and every ambiguous or malformed response classifies as DENY.
package authz

import (
	"encoding/json"
	"strings"

	"github.com/voxpay/gateway/internal/domain"
)

const (
	defaultDenyCode   = "POLICY_DENY"
	defaultDenyReason = "Request denied by policy"
)

// wireReceipt is the receipt-shaped sub-object some responses nest their
// decision fields under.
type wireReceipt struct {
	Decision    string `json:"decision"`
	Status      string `json:"status"`
	ReceiptID   string `json:"receipt_id"`
	DenyCode    string `json:"deny_code"`
	Code        string `json:"code"`
	DenyReason  string `json:"deny_reason"`
	Reason      string `json:"reason"`
	Message     string `json:"message"`
	PolicyHash  string `json:"policy_hash"`
	PayloadHash string `json:"payload_hash"`
}

// wireResponse models every field the normalizer consults, at the top level
// or nested under "receipt". Field resolution order is fixed: top level
// first, then the nested receipt object.
type wireResponse struct {
	Decision    string       `json:"decision"`
	Status      string       `json:"status"`
	ReceiptID   string       `json:"receipt_id"`
	DenyCode    string       `json:"deny_code"`
	Code        string       `json:"code"`
	DenyReason  string       `json:"deny_reason"`
	Reason      string       `json:"reason"`
	Message     string       `json:"message"`
	PolicyHash  string       `json:"policy_hash"`
	PayloadHash string       `json:"payload_hash"`
	Receipt     *wireReceipt `json:"receipt"`
}

// firstNonEmpty returns the first non-empty string in order.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (w *wireResponse) decisionField() string {
	var nestedDecision, nestedStatus string
	if w.Receipt != nil {
		nestedDecision = w.Receipt.Decision
		nestedStatus = w.Receipt.Status
	}
	raw := firstNonEmpty(w.Decision, w.Status, nestedDecision, nestedStatus)
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (w *wireResponse) denyFields() (code, reason string) {
	var r wireReceipt
	if w.Receipt != nil {
		r = *w.Receipt
	}
	code = firstNonEmpty(w.DenyCode, w.Code, r.DenyCode, r.Code)
	reason = firstNonEmpty(w.DenyReason, w.Reason, w.Message, r.DenyReason, r.Reason, r.Message)
	if code == "" {
		code = defaultDenyCode
	}
	if reason == "" {
		reason = defaultDenyReason
	}
	return code, reason
}

func (w *wireResponse) allowFields() (receiptID, policyHash, payloadHash string) {
	var r wireReceipt
	if w.Receipt != nil {
		r = *w.Receipt
	}
	receiptID = firstNonEmpty(w.ReceiptID, r.ReceiptID)
	policyHash = firstNonEmpty(w.PolicyHash, r.PolicyHash)
	payloadHash = firstNonEmpty(w.PayloadHash, r.PayloadHash)
	return receiptID, policyHash, payloadHash
}

func denyOutcome(code, reason string) domain.AuthorizationOutcome {
	return domain.AuthorizationOutcome{
		Decision:   domain.DecisionDeny,
		DenyCode:   code,
		DenyReason: reason,
	}
}

// Normalize classifies a raw authorization response into exactly ALLOW or
// DENY. It is pure: it never errors and performs no I/O. The caller is
// responsible for transport failures; Normalize only classifies a body it
// was actually handed.
//
// Rules, in order:
//  1. any non-2xx status is DENY, with codes extracted when present;
//  2. a 2xx body with a normalized decision field of "DENY" is DENY;
//  3. a 2xx body with a normalized decision field of "ALLOW" is ALLOW;
//  4. everything else (missing field, unrecognized value, unparsed body)
//     is DENY.
func Normalize(statusCode int, body []byte) domain.AuthorizationOutcome {
	var wire wireResponse
	parsed := json.Unmarshal(body, &wire) == nil

	if statusCode < 200 || statusCode > 299 {
		if !parsed {
			return denyOutcome(defaultDenyCode, defaultDenyReason)
		}
		code, reason := wire.denyFields()
		return denyOutcome(code, reason)
	}

	if !parsed {
		return denyOutcome(defaultDenyCode, defaultDenyReason)
	}

	switch wire.decisionField() {
	case "DENY":
		code, reason := wire.denyFields()
		return denyOutcome(code, reason)
	case "ALLOW":
		receiptID, policyHash, payloadHash := wire.allowFields()
		// An empty receiptID is passed through here and escalated as a
		// contract violation by the pipeline, not silently accepted.
		return domain.AuthorizationOutcome{
			Decision:           domain.DecisionAllow,
			ReceiptID:          receiptID,
			PolicyFingerprint:  policyHash,
			PayloadFingerprint: payloadHash,
		}
	default:
		return denyOutcome(defaultDenyCode, defaultDenyReason)
	}
}
