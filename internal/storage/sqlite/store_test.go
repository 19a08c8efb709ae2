package sqlite

import (
	"context"
	"testing"

	"github.com/voxpay/gateway/internal/storage"
)

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	// Use in-memory SQLite with shared cache for testing
	store, err := New("file:decisions1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	rec := &storage.TurnRecord{
		ID:                "turn-1",
		AgentID:           "agent-1",
		ActionType:        "funds_transfer",
		TargetSystem:      "ledger",
		Decision:          "DENY",
		DenyCode:          "AMOUNT_EXCEEDS_LIMIT",
		Explanation:       "That payment was denied, nothing was sent.",
		ExplanationSource: "FALLBACK",
		Rejected:          true,
		NarrationKey:      "abc123",
	}

	if err := store.RecordTurn(context.Background(), rec); err != nil {
		t.Fatalf("RecordTurn() error = %v", err)
	}

	got, err := store.GetTurn(context.Background(), "turn-1")
	if err != nil {
		t.Fatalf("GetTurn() error = %v", err)
	}

	if got.Decision != "DENY" || got.DenyCode != "AMOUNT_EXCEEDS_LIMIT" {
		t.Errorf("decision fields = %q/%q, want DENY/AMOUNT_EXCEEDS_LIMIT", got.Decision, got.DenyCode)
	}
	if !got.Rejected {
		t.Error("Rejected = false, want true")
	}
	if got.NarrationKey != "abc123" {
		t.Errorf("NarrationKey = %q, want abc123", got.NarrationKey)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not persisted")
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store, err := New("file:decisions2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	if _, err := store.GetTurn(context.Background(), "missing"); err == nil {
		t.Fatal("GetTurn() error = nil, want not found")
	}
}

func TestSQLiteStore_ListTurns(t *testing.T) {
	store, err := New("file:decisions3?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	for _, rec := range []*storage.TurnRecord{
		{ID: "t1", AgentID: "agent-1", ActionType: "funds_transfer", Decision: "ALLOW", ReceiptID: "r1", Explanation: "ok", ExplanationSource: "GENERATED"},
		{ID: "t2", AgentID: "agent-1", ActionType: "funds_transfer", Decision: "DENY", DenyCode: "POLICY_DENY", Explanation: "no", ExplanationSource: "FALLBACK"},
		{ID: "t3", AgentID: "agent-2", ActionType: "funds_transfer", Decision: "ALLOW", ReceiptID: "r3", Explanation: "ok", ExplanationSource: "GENERATED"},
	} {
		if err := store.RecordTurn(context.Background(), rec); err != nil {
			t.Fatalf("RecordTurn(%s) error = %v", rec.ID, err)
		}
	}

	got, err := store.ListTurns(context.Background(), storage.ListOptions{AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, rec := range got {
		if rec.AgentID != "agent-1" {
			t.Errorf("AgentID = %q, want agent-1", rec.AgentID)
		}
	}

	limited, err := store.ListTurns(context.Background(), storage.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("ListTurns(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len = %d, want 1 with limit", len(limited))
	}
}

func TestSQLiteStore_Upsert(t *testing.T) {
	store, err := New("file:decisions4?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	rec := &storage.TurnRecord{ID: "t1", AgentID: "a", ActionType: "funds_transfer", Decision: "ALLOW", ReceiptID: "r1", Explanation: "first", ExplanationSource: "GENERATED"}
	if err := store.RecordTurn(context.Background(), rec); err != nil {
		t.Fatalf("RecordTurn() error = %v", err)
	}

	rec.Explanation = "second"
	if err := store.RecordTurn(context.Background(), rec); err != nil {
		t.Fatalf("second RecordTurn() error = %v", err)
	}

	got, err := store.GetTurn(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetTurn() error = %v", err)
	}
	if got.Explanation != "second" {
		t.Errorf("Explanation = %q, want last write to win", got.Explanation)
	}
}
