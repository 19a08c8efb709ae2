package explain

import "github.com/voxpay/gateway/internal/domain"

// Fixed, pre-approved sentences. These bypass validation: they are the
// trusted floor the pipeline can always stand on.
const (
	allowFallback = "Your transfer is complete. The payment was approved and sent."

	denyFallback = "That payment was denied because it went over your transfer limit, so nothing was sent."

	replayFallback = "That transfer was already completed earlier, so it wasn't sent a second time. A payment approval can only be used once."

	// DriftFallback replaces candidates the validator rejected as
	// off-domain. It is independent of decision kind; contradiction
	// rejections use the decision-specific sentence instead.
	DriftFallback = "I can only help with payments and transfers on this account, so let's stick to those."
)

// Fallback returns the deterministic replacement sentence for a decision
// kind. It is total over the closed enumeration and never performs I/O.
func Fallback(kind domain.DecisionKind) string {
	switch kind {
	case domain.KindAllow:
		return allowFallback
	case domain.KindDeny:
		return denyFallback
	case domain.KindReplayDenied:
		return replayFallback
	default:
		// Unreachable with the closed enum; denial is the safe floor.
		return denyFallback
	}
}
