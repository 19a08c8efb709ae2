package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voxpay/gateway/internal/storage"
)

// Store is an in-memory implementation of DecisionStore
type Store struct {
	mu    sync.RWMutex
	turns map[string]*storage.TurnRecord
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		turns: make(map[string]*storage.TurnRecord),
	}
}

func (s *Store) RecordTurn(ctx context.Context, rec *storage.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		return fmt.Errorf("turn record has no ID")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	copied := *rec
	s.turns[rec.ID] = &copied
	return nil
}

func (s *Store) GetTurn(ctx context.Context, id string) (*storage.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.turns[id]
	if !exists {
		return nil, fmt.Errorf("turn %s not found", id)
	}

	copied := *rec
	return &copied, nil
}

func (s *Store) ListTurns(ctx context.Context, opts storage.ListOptions) ([]*storage.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.TurnRecord
	for _, rec := range s.turns {
		if opts.AgentID != "" && rec.AgentID != opts.AgentID {
			continue
		}
		copied := *rec
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	// Simple pagination
	start := opts.Offset
	if start >= len(result) {
		return []*storage.TurnRecord{}, nil
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) Close() error {
	return nil
}
