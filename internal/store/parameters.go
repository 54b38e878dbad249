package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// nextCounter reserves the next number of fiscal year fy. It must run in the
// transaction that inserts the entry so a rollback gives the number back.
func nextCounter(ctx context.Context, tx *sql.Tx, fy int) (int64, error) {
	var counter int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO accounting_parameters (fiscal_year, next_counter) VALUES (?, 2)
		 ON CONFLICT(fiscal_year) DO UPDATE SET next_counter = next_counter + 1
		 RETURNING next_counter - 1`, fy,
	).Scan(&counter)
	if err != nil {
		return 0, fmt.Errorf("next counter for %d: %w", fy, err)
	}
	return counter, nil
}

// AccountingParameters is the numbering state of one fiscal year.
type AccountingParameters struct {
	FiscalYear  int   `json:"fiscal_year"`
	NextCounter int64 `json:"next_counter"`
}

func (s *Store) ListParameters(ctx context.Context) ([]AccountingParameters, error) {
	rows, err := s.reader.QueryContext(ctx,
		`SELECT fiscal_year, next_counter FROM accounting_parameters ORDER BY fiscal_year`)
	if err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	defer rows.Close()

	var out []AccountingParameters
	for rows.Next() {
		var p AccountingParameters
		if err := rows.Scan(&p.FiscalYear, &p.NextCounter); err != nil {
			return nil, fmt.Errorf("scan parameters: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LastCounters returns the last number handed out per fiscal year.
func (s *Store) LastCounters(ctx context.Context) (map[int]int64, error) {
	params, err := s.ListParameters(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(params))
	for _, p := range params {
		out[p.FiscalYear] = p.NextCounter - 1
	}
	return out, nil
}

// CheckSequences verifies that every fiscal year's stored counters run from 1
// to the last number handed out without holes.
func (s *Store) CheckSequences(ctx context.Context) error {
	last, err := s.LastCounters(ctx)
	if err != nil {
		return err
	}
	rows, err := s.reader.QueryContext(ctx,
		`SELECT fiscal_year, COUNT(*), MIN(counter), MAX(counter) FROM journal_entries GROUP BY fiscal_year`)
	if err != nil {
		return fmt.Errorf("check sequences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fy int
		var n, lo, hi int64
		if err := rows.Scan(&fy, &n, &lo, &hi); err != nil {
			return fmt.Errorf("scan sequences: %w", err)
		}
		if lo != 1 || hi != n || hi != last[fy] {
			return fmt.Errorf("%w: fiscal year %d has %d entries numbered %d..%d, last issued %d",
				ledger.ErrSequenceGap, fy, n, lo, hi, last[fy])
		}
	}
	return rows.Err()
}
