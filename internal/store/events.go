package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// PostEvent books a payment event as a validated entry. Posting the same
// event id again returns the entry booked the first time with created false.
func (s *Store) PostEvent(ctx context.Context, ev *ledger.PaymentEvent, policy ledger.PostingPolicy) (*ledger.JournalEntry, bool, error) {
	e, err := ev.ToEntry(policy)
	if err != nil {
		return nil, false, err
	}
	e.Validated = true

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if existing, err := entryBySource(ctx, tx, ev.ID); err != nil || existing != nil {
		return existing, false, err
	}

	if err := s.insertEntry(ctx, tx, e); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return e, true, nil
}

func entryBySource(ctx context.Context, q querier, sourceRef string) (*ledger.JournalEntry, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM journal_entries WHERE source_ref = ?`, sourceRef).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup event %s: %w", sourceRef, err)
	}
	return getEntry(ctx, q, id)
}
