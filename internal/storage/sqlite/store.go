package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voxpay/gateway/internal/storage"
)

// Store is a SQLite implementation of DecisionStore
type Store struct {
	db *sql.DB
}

var _ storage.DecisionStore = (*Store)(nil)

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		target_system TEXT,
		decision TEXT NOT NULL,
		deny_code TEXT,
		receipt_id TEXT,
		explanation TEXT NOT NULL,
		explanation_source TEXT NOT NULL,
		rejected INTEGER NOT NULL DEFAULT 0,
		narration_key TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_turns_agent_created
		ON turns(agent_id, created_at DESC)`)
	return err
}

func (s *Store) RecordTurn(ctx context.Context, rec *storage.TurnRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("turn record has no ID")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO turns
		(id, agent_id, action_type, target_system, decision, deny_code, receipt_id,
		 explanation, explanation_source, rejected, narration_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, rec.ActionType, rec.TargetSystem,
		rec.Decision, rec.DenyCode, rec.ReceiptID,
		rec.Explanation, rec.ExplanationSource, boolToInt(rec.Rejected),
		rec.NarrationKey, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}

func (s *Store) GetTurn(ctx context.Context, id string) (*storage.TurnRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, agent_id, action_type, target_system,
		decision, deny_code, receipt_id, explanation, explanation_source, rejected,
		narration_key, created_at
		FROM turns WHERE id = ?`, id)

	rec, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("turn %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}
	return rec, nil
}

func (s *Store) ListTurns(ctx context.Context, opts storage.ListOptions) ([]*storage.TurnRecord, error) {
	query := `SELECT id, agent_id, action_type, target_system,
		decision, deny_code, receipt_id, explanation, explanation_source, rejected,
		narration_key, created_at
		FROM turns`
	args := []any{}

	if opts.AgentID != "" {
		query += " WHERE agent_id = ?"
		args = append(args, opts.AgentID)
	}
	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var result []*storage.TurnRecord
	for rows.Next() {
		rec, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (*storage.TurnRecord, error) {
	var rec storage.TurnRecord
	var rejected int
	err := row.Scan(
		&rec.ID, &rec.AgentID, &rec.ActionType, &rec.TargetSystem,
		&rec.Decision, &rec.DenyCode, &rec.ReceiptID,
		&rec.Explanation, &rec.ExplanationSource, &rejected,
		&rec.NarrationKey, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Rejected = rejected != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
