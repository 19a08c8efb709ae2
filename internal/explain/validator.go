// Package explain turns a normalized authorization outcome into a sentence
// that is safe to show or speak to the user. Generated text is untrusted
// until it passes the validator and, for denials, the contradiction guard;
// anything rejected is replaced by a fixed, pre-approved fallback.
package explain

import (
	"regexp"
	"strings"
)

// forbiddenTerms covers internal jargon and known off-domain topics. Any
// case-insensitive match rejects the candidate outright.
var forbiddenTerms = []string{
	"api",
	"json",
	"endpoint",
	"webhook",
	"database",
	"sdk",
	"llm",
	"prompt",
	"token",
	"gemini",
	"elevenlabs",
	"fingerprint",
	"payload",
	"receipt_id",
	"weather",
	"stock price",
	"horoscope",
	"recipe",
	"lottery",
	"joke",
}

// domainAnchors is the fixed set of terms at least one of which must be
// present for the text to count as on-domain.
var domainAnchors = []string{
	"transfer",
	"payment",
	"sent",
	"complete",
	"denied",
	"denial",
	"replay",
	"limit",
	"approved",
	"finished",
}

// identifierPattern matches raw internal identifier style: two or more
// lowercase tokens joined by underscores. Such a token in prose means a
// field name leaked out of the fact block.
var identifierPattern = regexp.MustCompile(`\b[a-z0-9]+(?:_[a-z0-9]+)+\b`)

// Validate reports whether a generated candidate is admissible. It is a
// pure function with no I/O; length and character-set limits are enforced
// by the orchestrator before validation.
func Validate(text string) bool {
	lower := strings.ToLower(text)

	for _, term := range forbiddenTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}

	if identifierPattern.MatchString(text) {
		return false
	}

	for _, anchor := range domainAnchors {
		if strings.Contains(lower, anchor) {
			return true
		}
	}
	return false
}
