package explain

import (
	"strings"

	"github.com/voxpay/gateway/internal/domain"
)

// completionPhrases claim the action went through. Any one of these in a
// denial explanation is a contradiction.
var completionPhrases = []string{
	"completed",
	"processed",
	"finished",
	"approved",
	"executed",
	"succeeded",
	"went through",
}

// denialPhrases affirmatively state the action did not happen. A denial
// explanation must contain at least one.
var denialPhrases = []string{
	"didn't complete",
	"did not complete",
	"refused",
	"blocked",
	"denied",
	"stopped",
	"prevented",
	"wasn't sent",
	"was not sent",
	"nothing was sent",
}

// Contradicts reports whether a candidate text misrepresents a DENY
// outcome. It rejects when any completion phrase is present, or when no
// denial phrase is present at all; partial compliance is not acceptable.
// For non-DENY decisions it always returns false.
func Contradicts(decision domain.Decision, text string) bool {
	if decision != domain.DecisionDeny {
		return false
	}

	lower := strings.ToLower(text)

	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	for _, phrase := range denialPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
