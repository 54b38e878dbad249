package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/simonvc/grandlivre/internal/ledger"
)

// CreateEntry validates e, numbers it and stores it with its lines in one
// transaction. A rejected entry consumes no sequence number. Entries created
// with Validated set are frozen on creation.
func (s *Store) CreateEntry(ctx context.Context, e *ledger.JournalEntry) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertEntry(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertEntry does the numbering and inserts inside a caller's transaction.
func (s *Store) insertEntry(ctx context.Context, tx *sql.Tx, e *ledger.JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.EntryDate.IsZero() {
		e.EntryDate = e.AccountingDate
	}
	e.EntryDate = ledger.Day(e.EntryDate)
	e.AccountingDate = ledger.Day(e.AccountingDate)
	if err := e.Validate(); err != nil {
		return err
	}

	fy := s.calendar.FiscalYear(e.AccountingDate)
	counter, err := nextCounter(ctx, tx, fy)
	if err != nil {
		return err
	}
	e.FiscalYear, e.Counter = fy, counter
	e.Sequence = e.SequenceNumber().String()
	e.CreatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO journal_entries (id, fiscal_year, counter, sequence, journal, entry_date, accounting_date,
			label, reference, reference_date, reversal_of, source_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FiscalYear, e.Counter, e.Sequence, string(e.Journal), formatDate(e.EntryDate), formatDate(e.AccountingDate),
		e.Label, e.Reference, nullDate(e.ReferenceDate), nullString(e.ReversalOf), nullString(e.SourceRef),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", mapConstraint(err))
	}

	if err := insertLines(ctx, tx, e); err != nil {
		return err
	}

	// Finalize: the balance trigger re-checks the stored lines.
	if e.Validated {
		now := s.now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE journal_entries SET validated = 1, validated_at = ? WHERE id = ?`,
			now.Format(time.RFC3339Nano), e.ID,
		); err != nil {
			return fmt.Errorf("validate entry: %w", mapConstraint(err))
		}
		e.ValidatedAt = &now
	}
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, e *ledger.JournalEntry) error {
	for i := range e.Lines {
		l := &e.Lines[i]
		l.EntryID = e.ID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO entry_lines (entry_id, position, account_code, label, debit, credit,
				aux_account, aux_label, foreign_amount, foreign_currency)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, i, l.AccountCode, l.Label, l.Debit, l.Credit, l.AuxAccount, l.AuxLabel, l.ForeignAmount, l.ForeignCurrency,
		)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", i, mapConstraint(err))
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("line id: %w", err)
		}
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	return getEntry(ctx, s.reader, id)
}

func getEntry(ctx context.Context, q querier, id string) (*ledger.JournalEntry, error) {
	entries, err := loadEntries(ctx, q, `e.id = ?`, []any{id}, "")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ledger.ErrEntryNotFound, id)
	}
	return &entries[0], nil
}

// GetEntryBySequence looks an entry up by its "2025-000001" number.
func (s *Store) GetEntryBySequence(ctx context.Context, seq string) (*ledger.JournalEntry, error) {
	entries, err := loadEntries(ctx, s.reader, `e.sequence = ?`, []any{seq}, "")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ledger.ErrEntryNotFound, seq)
	}
	return &entries[0], nil
}

func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]ledger.JournalEntry, error) {
	where, args := filter.where()
	var limit string
	if filter.Limit > 0 {
		limit = fmt.Sprintf(` LIMIT %d`, filter.Limit)
		if filter.Offset > 0 {
			limit += fmt.Sprintf(` OFFSET %d`, filter.Offset)
		}
	}
	return loadEntries(ctx, s.reader, where, args, limit)
}

func (f EntryFilter) where() (string, []any) {
	conds := []string{"1=1"}
	var args []any
	if f.From != nil {
		conds = append(conds, `e.accounting_date >= ?`)
		args = append(args, formatDate(*f.From))
	}
	if f.To != nil {
		conds = append(conds, `e.accounting_date <= ?`)
		args = append(args, formatDate(*f.To))
	}
	if f.Journal != "" {
		conds = append(conds, `e.journal = ?`)
		args = append(args, string(f.Journal))
	}
	if f.Validated != nil {
		conds = append(conds, `e.validated = ?`)
		args = append(args, boolToInt(*f.Validated))
	}
	if f.Account != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM entry_lines x WHERE x.entry_id = e.id AND x.account_code LIKE ? || '%')`)
		args = append(args, f.Account)
	}
	return strings.Join(conds, " AND "), args
}

const entryColumns = `e.id, e.fiscal_year, e.counter, e.sequence, e.journal, e.entry_date, e.accounting_date,
	e.label, e.reference, e.reference_date, e.validated, e.validated_at, e.reversal_of, e.source_ref, e.created_at`

const entryOrder = ` ORDER BY e.accounting_date, e.fiscal_year, e.counter`

// loadEntries reads the entries matching where, then all their lines in a
// second query.
func loadEntries(ctx context.Context, q querier, where string, args []any, limit string) ([]ledger.JournalEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries e WHERE `+where+entryOrder+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.JournalEntry
	index := map[string]int{}
	for rows.Next() {
		var e ledger.JournalEntry
		var entryDate, accountingDate, createdAt string
		var refDate, validatedAt, reversalOf, sourceRef sql.NullString
		var validated int
		if err := rows.Scan(&e.ID, &e.FiscalYear, &e.Counter, &e.Sequence, &e.Journal, &entryDate, &accountingDate,
			&e.Label, &e.Reference, &refDate, &validated, &validatedAt, &reversalOf, &sourceRef, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.EntryDate = parseDate(entryDate)
		e.AccountingDate = parseDate(accountingDate)
		e.ReferenceDate = parseNullDate(refDate)
		e.Validated = validated == 1
		e.ValidatedAt = parseNullTime(validatedAt)
		e.ReversalOf = reversalOf.String
		e.SourceRef = sourceRef.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(entries) == 0 {
		return nil, nil
	}

	lines, err := q.QueryContext(ctx,
		`SELECT l.id, l.entry_id, l.account_code, l.label, l.debit, l.credit, l.aux_account, l.aux_label,
			l.foreign_amount, l.foreign_currency, l.lettrage_code, l.lettrage_date
		 FROM entry_lines l
		 WHERE l.entry_id IN (SELECT e.id FROM journal_entries e WHERE `+where+entryOrder+limit+`)
		 ORDER BY l.entry_id, l.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer lines.Close()

	for lines.Next() {
		var l ledger.EntryLine
		var code, date sql.NullString
		if err := lines.Scan(&l.ID, &l.EntryID, &l.AccountCode, &l.Label, &l.Debit, &l.Credit, &l.AuxAccount, &l.AuxLabel,
			&l.ForeignAmount, &l.ForeignCurrency, &code, &date); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		l.LettrageCode = code.String
		l.LettrageDate = parseNullDate(date)
		if i, ok := index[l.EntryID]; ok {
			entries[i].Lines = append(entries[i].Lines, l)
		}
	}
	return entries, lines.Err()
}

// ValidateEntry freezes a draft. Validating an already validated entry is a
// no-op.
func (s *Store) ValidateEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	e, err := getEntry(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if e.Validated {
		return e, nil
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE journal_entries SET validated = 1, validated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano), id,
	); err != nil {
		return nil, fmt.Errorf("validate entry: %w", mapConstraint(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	e.Validated, e.ValidatedAt = true, &now
	return e, nil
}

// UpdateDraft replaces the label and lines of an unvalidated entry. Its
// number and dates are kept.
func (s *Store) UpdateDraft(ctx context.Context, id, label string, lines []ledger.EntryLine) (*ledger.JournalEntry, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	e, err := getEntry(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if e.Validated {
		return nil, fmt.Errorf("%w: %s", ledger.ErrEntryImmutable, e.Sequence)
	}
	if label != "" {
		e.Label = label
	}
	e.Lines = lines
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_lines WHERE entry_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete lines: %w", mapConstraint(err))
	}
	if _, err := tx.ExecContext(ctx, `UPDATE journal_entries SET label = ? WHERE id = ?`, e.Label, id); err != nil {
		return nil, fmt.Errorf("update entry: %w", mapConstraint(err))
	}
	if err := insertLines(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

// ReverseEntry books the contrepassation of a validated entry on date. An
// entry can be reversed once.
func (s *Store) ReverseEntry(ctx context.Context, id string, date time.Time) (*ledger.JournalEntry, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	orig, err := getEntry(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !orig.Validated {
		return nil, fmt.Errorf("%w: draft %s can be corrected in place", ledger.ErrValidation, orig.Sequence)
	}
	if orig.ReversalOf != "" {
		return nil, fmt.Errorf("%w: %s is itself a reversal", ledger.ErrValidation, orig.Sequence)
	}
	var existing string
	err = tx.QueryRowContext(ctx, `SELECT sequence FROM journal_entries WHERE reversal_of = ?`, id).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: %s by %s", ledger.ErrAlreadyReversed, orig.Sequence, existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check reversal: %w", err)
	}

	rev := orig.Reversal(date)
	rev.Validated = true
	if err := s.insertEntry(ctx, tx, rev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rev, nil
}
