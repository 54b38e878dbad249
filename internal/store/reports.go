package store

import (
	"context"
	"fmt"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// ReportEntries returns the validated entries dated up to to (all of them when
// to is nil) from one read transaction. Reports are built from this set.
func (s *Store) ReportEntries(ctx context.Context, to *time.Time) ([]ledger.JournalEntry, error) {
	tx, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	validated := true
	where, args := EntryFilter{To: to, Validated: &validated}.where()
	return loadEntries(ctx, tx, where, args, "")
}

// ExportSnapshot reads the entries dated in [from, to], drafts included, and
// the numbering of the given fiscal years from one read transaction, so a
// concurrent booking shows up in both or in neither.
func (s *Store) ExportSnapshot(ctx context.Context, from, to time.Time, years []int) ([]ledger.JournalEntry, map[int]ledger.Numbering, error) {
	tx, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	where, args := EntryFilter{From: &from, To: &to}.where()
	entries, err := loadEntries(ctx, tx, where, args, "")
	if err != nil {
		return nil, nil, err
	}

	numbering := make(map[int]ledger.Numbering, len(years))
	for _, fy := range years {
		n, err := yearNumbering(ctx, tx, fy)
		if err != nil {
			return nil, nil, err
		}
		numbering[fy] = n
	}
	return entries, numbering, nil
}

func yearNumbering(ctx context.Context, q querier, fy int) (ledger.Numbering, error) {
	var n ledger.Numbering
	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT next_counter - 1 FROM accounting_parameters WHERE fiscal_year = ?), 0)`, fy,
	).Scan(&n.Last); err != nil {
		return n, fmt.Errorf("last counter for %d: %w", fy, err)
	}

	rows, err := q.QueryContext(ctx, `SELECT counter FROM journal_entries WHERE fiscal_year = ? ORDER BY counter`, fy)
	if err != nil {
		return n, fmt.Errorf("counters for %d: %w", fy, err)
	}
	defer rows.Close()
	for rows.Next() {
		var c int64
		if err := rows.Scan(&c); err != nil {
			return n, fmt.Errorf("scan counter: %w", err)
		}
		n.Counters = append(n.Counters, c)
	}
	return n, rows.Err()
}
