// Package storage defines the decision audit store: a record of every
// completed decision cycle, kept for audit display. Recording is
// best-effort and never fails a turn.
package storage

import (
	"context"
	"time"
)

// TurnRecord is one completed decision cycle.
type TurnRecord struct {
	ID           string `json:"id"`
	AgentID      string `json:"agent_id"`
	ActionType   string `json:"action_type"`
	TargetSystem string `json:"target_system,omitempty"`

	Decision  string `json:"decision"`
	DenyCode  string `json:"deny_code,omitempty"`
	ReceiptID string `json:"receipt_id,omitempty"`

	Explanation       string `json:"explanation"`
	ExplanationSource string `json:"explanation_source"`
	Rejected          bool   `json:"rejected"`

	NarrationKey string `json:"narration_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ListOptions filters and pages turn listings.
type ListOptions struct {
	AgentID string
	Limit   int
	Offset  int
}

// DecisionStore persists turn records.
type DecisionStore interface {
	RecordTurn(ctx context.Context, rec *TurnRecord) error
	GetTurn(ctx context.Context, id string) (*TurnRecord, error)
	ListTurns(ctx context.Context, opts ListOptions) ([]*TurnRecord, error)
	Close() error
}
