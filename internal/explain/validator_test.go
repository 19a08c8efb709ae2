package explain

import "testing"

func TestValidate_Accepts(t *testing.T) {
	texts := []string{
		"Your transfer of twenty-five dollars is complete.",
		"The payment was denied because it goes over your limit, so nothing was sent.",
		"That payment already went out earlier, so it wasn't sent again after the replay check.",
	}

	for _, text := range texts {
		if !Validate(text) {
			t.Errorf("Validate(%q) = false, want true", text)
		}
	}
}

func TestValidate_RejectsForbiddenTerms(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"implementation noun", "Your transfer hit the database limit."},
		{"capability name", "The payment endpoint denied the transfer."},
		{"off-domain topic", "The weather is sunny, but your transfer is complete."},
		{"case-insensitive", "Your PAYMENT was stopped by the Webhook."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Validate(tt.text) {
				t.Errorf("Validate(%q) = true, want false", tt.text)
			}
		})
	}
}

// Monotonicity: a forbidden term or leaked identifier rejects regardless
// of how many domain anchors are present.
func TestValidate_RejectionBeatsAnchors(t *testing.T) {
	texts := []string{
		"Your transfer payment was sent, complete, approved and finished via the api.",
		"The transfer was denied: deny_code limit reached, nothing was sent.",
	}

	for _, text := range texts {
		if Validate(text) {
			t.Errorf("Validate(%q) = true, want false despite anchors", text)
		}
	}
}

func TestValidate_RejectsLeakedIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"snake_case leak", "The transfer failed with amount_exceeds_limit set.", false},
		{"multi-join leak", "Denied by target_system_policy during your payment.", false},
		{"uppercase code is not identifier style", "Your transfer was denied under rule LIMIT.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.text); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidate_RequiresDomainAnchor(t *testing.T) {
	texts := []string{
		"Everything went fine and you're all set.",
		"Done.",
		"",
	}

	for _, text := range texts {
		if Validate(text) {
			t.Errorf("Validate(%q) = true, want false without a domain anchor", text)
		}
	}
}

// The fixed fallback sentences must themselves be admissible; they are the
// floor the pipeline falls back to.
func TestValidate_FallbacksAreAdmissible(t *testing.T) {
	for _, text := range []string{allowFallback, denyFallback, replayFallback, DriftFallback} {
		if !Validate(text) {
			t.Errorf("fallback sentence fails validation: %q", text)
		}
	}
}
