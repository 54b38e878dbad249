package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
	_ "modernc.org/sqlite"
)

type EntryFilter struct {
	From      *time.Time
	To        *time.Time
	Account   string // code prefix
	Journal   ledger.JournalCode
	Validated *bool
	Limit     int
	Offset    int
}

type AccountFilter struct {
	Type  ledger.AccountType
	Class int
}

type AssetFilter struct {
	Status ledger.AssetStatus
}

type GroupFilter struct {
	Account      string
	Counterparty string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	writer   *sql.DB
	reader   *sql.DB
	calendar ledger.FiscalCalendar
	now      func() time.Time
}

type Option func(*Store)

// WithFiscalCalendar sets how accounting dates map to fiscal years.
func WithFiscalCalendar(c ledger.FiscalCalendar) Option {
	return func(s *Store) { s.calendar = c }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func Open(dbPath string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	s := &Store{writer: writer, reader: reader, calendar: ledger.CalendarYear, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	err1 := s.writer.Close()
	err2 := s.reader.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Calendar returns the fiscal calendar the store numbers entries with.
func (s *Store) Calendar() ledger.FiscalCalendar {
	return s.calendar
}

// snapshot opens a transaction on the reader pool. Under WAL it sees one
// consistent state of the database from its first read on. Callers only read
// and roll back.
func (s *Store) snapshot(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	return tx, nil
}

func formatDate(t time.Time) string {
	return ledger.Day(t).Format(ledger.DateLayout)
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(ledger.DateLayout, s)
	return t
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseDate(s.String)
	return &t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// mapConstraint turns the trigger and constraint failures the schema raises
// into ledger errors.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "journal_entries.fiscal_year, journal_entries.counter"),
		strings.Contains(msg, "journal_entries.sequence"):
		return fmt.Errorf("%w: %v", ledger.ErrDuplicateSequence, err)
	case strings.Contains(msg, "validated entry"):
		return fmt.Errorf("%w: %v", ledger.ErrEntryImmutable, err)
	case strings.Contains(msg, "entries cannot be deleted"):
		return fmt.Errorf("%w: %v", ledger.ErrEntryImmutable, err)
	case strings.Contains(msg, "do not balance"):
		return fmt.Errorf("%w: %v", ledger.ErrUnbalancedEntry, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ledger.ErrInvalidAccount, err)
	case strings.Contains(msg, "net_book_value"):
		return fmt.Errorf("%w: %v", ledger.ErrNegativeBookValue, err)
	}
	return err
}
