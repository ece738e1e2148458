// Package riskoff implements ports.RiskOffStore on top of a pure-Go
// SQLite file: one row per condition_id, atomically upserted so a crash
// mid-write never leaves a half-updated sleep window.
package riskoff

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS risk_off (
	condition_id TEXT PRIMARY KEY,
	sleep_until  DATETIME NOT NULL,
	reason       TEXT     NOT NULL
);
`

// SQLiteStore is a ports.RiskOffStore backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the risk-off database at path and applies its
// schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("riskoff.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("riskoff.Open: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, conditionID string) (domain.RiskOffRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sleep_until, reason FROM risk_off WHERE condition_id = ?`, conditionID)

	var sleepUntil time.Time
	var reason string
	if err := row.Scan(&sleepUntil, &reason); err != nil {
		if err == sql.ErrNoRows {
			return domain.RiskOffRecord{}, false, nil
		}
		return domain.RiskOffRecord{}, false, fmt.Errorf("riskoff.Get %s: %w", conditionID, err)
	}

	return domain.RiskOffRecord{
		ConditionID: conditionID,
		SleepUntil:  sleepUntil,
		Reason:      domain.RiskOffReason(reason),
	}, true, nil
}

// Put atomically upserts a market's risk-off record: a market tripped a
// second time before its first record clears replaces it in place rather
// than accumulating stale rows.
func (s *SQLiteStore) Put(ctx context.Context, record domain.RiskOffRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_off (condition_id, sleep_until, reason)
		VALUES (?, ?, ?)
		ON CONFLICT(condition_id) DO UPDATE SET
			sleep_until = excluded.sleep_until,
			reason      = excluded.reason
	`, record.ConditionID, record.SleepUntil.UTC(), string(record.Reason))
	if err != nil {
		return fmt.Errorf("riskoff.Put %s: %w", record.ConditionID, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, conditionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM risk_off WHERE condition_id = ?`, conditionID); err != nil {
		return fmt.Errorf("riskoff.Clear %s: %w", conditionID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
