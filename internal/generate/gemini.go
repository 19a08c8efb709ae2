// Package generate implements the explanation generator boundary on top of
// Google's Gemini API. Its output is untrusted free text; the explain
// package validates everything before it reaches a user.
package generate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/voxpay/gateway/internal/domain"
)

const defaultModel = "gemini-2.0-flash"

// systemInstruction domain-locks the generator. The lock is advisory only;
// enforcement happens in the explain package after generation.
const systemInstruction = `You narrate the outcome of a payment agent's actions for the account holder.
Speak in one or two short, warm sentences of plain language.
Only discuss the transfer or payment at hand: whether it completed, was denied, or was already done.
Never mention systems, services, models, codes, or anything technical.
If the action was denied, say clearly that it did not happen and nothing was sent.`

// Gemini generates explanation candidates with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Generate produces one explanation candidate from the fact block.
func (g *Gemini) Generate(ctx context.Context, req *domain.ExplanationRequest) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(factBlock(req)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.4),
		},
	)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	return strings.TrimSpace(result.Text()), nil
}

// factBlock renders the facts the explanation may draw from. It uses only
// ExplanationRequest fields and keeps raw internal codes out: the decision
// is described in words, not by its deny code.
func factBlock(req *domain.ExplanationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The user asked: %q\n", req.UserText)
	fmt.Fprintf(&b, "The proposed action: %s\n", req.ActionSummary)

	switch req.Outcome.Kind() {
	case domain.KindAllow:
		b.WriteString("Outcome: the action was authorized and carried out.\n")
	case domain.KindReplayDenied:
		b.WriteString("Outcome: the action had already been completed before, so it was not repeated.\n")
	case domain.KindDeny:
		fmt.Fprintf(&b, "Outcome: the action was denied and did not happen. Reason: %s\n", req.Outcome.DenyReason)
	}

	if req.Audit != nil {
		fmt.Fprintf(&b, "The action settled at %s.\n", req.Audit.ExecutedAt.Format("3:04 PM on January 2"))
	}

	b.WriteString("Tell the user what happened.")
	return b.String()
}
