package ledger

import (
	"fmt"
	"time"
)

type JournalCode string

const (
	JournalSales     JournalCode = "SALES"
	JournalPurchases JournalCode = "PURCHASES"
	JournalBank      JournalCode = "BANK"
	JournalMisc      JournalCode = "MISC"
	JournalOpening   JournalCode = "OPENING"
)

type journalDef struct {
	short string
	label string
}

var journals = map[JournalCode]journalDef{
	JournalSales:     {short: "VE", label: "Journal des ventes"},
	JournalPurchases: {short: "AC", label: "Journal des achats"},
	JournalBank:      {short: "BQ", label: "Journal de banque"},
	JournalMisc:      {short: "OD", label: "Opérations diverses"},
	JournalOpening:   {short: "AN", label: "À-nouveaux"},
}

func ValidJournal(j JournalCode) bool {
	_, ok := journals[j]
	return ok
}

// ShortCode is the two-letter code used in regulatory files.
func (j JournalCode) ShortCode() string { return journals[j].short }

func (j JournalCode) Label() string { return journals[j].label }

// JournalFromShort resolves a two-letter code ("VE") back to a journal.
func JournalFromShort(short string) (JournalCode, bool) {
	for code, def := range journals {
		if def.short == short {
			return code, true
		}
	}
	return "", false
}

type EntryLine struct {
	ID              int64      `json:"id,omitempty"`
	EntryID         string     `json:"entry_id,omitempty"`
	AccountCode     string     `json:"account_code"`
	Label           string     `json:"label,omitempty"`
	Debit           int64      `json:"debit"`
	Credit          int64      `json:"credit"`
	AuxAccount      string     `json:"aux_account,omitempty"`
	AuxLabel        string     `json:"aux_label,omitempty"`
	ForeignAmount   int64      `json:"foreign_amount,omitempty"`
	ForeignCurrency string     `json:"foreign_currency,omitempty"`
	LettrageCode    string     `json:"lettrage_code,omitempty"`
	LettrageDate    *time.Time `json:"lettrage_date,omitempty"`
}

// Signed returns debit minus credit.
func (l *EntryLine) Signed() int64 { return l.Debit - l.Credit }

func (l *EntryLine) Validate() error {
	if l.Debit < 0 || l.Credit < 0 || (l.Debit == 0) == (l.Credit == 0) {
		return fmt.Errorf("%w: account %s debit %d credit %d", ErrInvalidLine, l.AccountCode, l.Debit, l.Credit)
	}
	if _, ok := LookupAccount(l.AccountCode); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, l.AccountCode)
	}
	if l.ForeignCurrency != "" && !ValidCurrency(l.ForeignCurrency) {
		return fmt.Errorf("%w: %s", ErrInvalidCurrency, l.ForeignCurrency)
	}
	return nil
}

type JournalEntry struct {
	ID             string      `json:"id"`
	Sequence       string      `json:"sequence,omitempty"`
	FiscalYear     int         `json:"fiscal_year,omitempty"`
	Counter        int64       `json:"counter,omitempty"`
	Journal        JournalCode `json:"journal"`
	EntryDate      time.Time   `json:"entry_date"`
	AccountingDate time.Time   `json:"accounting_date"`
	Label          string      `json:"label"`
	Reference      string      `json:"reference,omitempty"`
	ReferenceDate  *time.Time  `json:"reference_date,omitempty"`
	Validated      bool        `json:"validated"`
	ValidatedAt    *time.Time  `json:"validated_at,omitempty"`
	ReversalOf     string      `json:"reversal_of,omitempty"`
	SourceRef      string      `json:"source_ref,omitempty"`
	Lines          []EntryLine `json:"lines"`
	CreatedAt      time.Time   `json:"created_at,omitempty"`
}

// Totals returns the debit and credit sums of the entry.
func (e *JournalEntry) Totals() (debit, credit int64) {
	for _, l := range e.Lines {
		debit += l.Debit
		credit += l.Credit
	}
	return debit, credit
}

// Validate checks entry invariants: known journal, dated, at least two
// well-formed lines on chart accounts, debits equal credits.
func (e *JournalEntry) Validate() error {
	if !ValidJournal(e.Journal) {
		return fmt.Errorf("%w: %q", ErrInvalidJournal, e.Journal)
	}
	if e.Label == "" {
		return ErrEmptyLabel
	}
	if e.AccountingDate.IsZero() {
		return fmt.Errorf("%w: accounting date is required", ErrInvalidDate)
	}
	if len(e.Lines) < 2 {
		return ErrTooFewLines
	}
	for i := range e.Lines {
		if err := e.Lines[i].Validate(); err != nil {
			return err
		}
	}
	debit, credit := e.Totals()
	if debit != credit {
		return fmt.Errorf("%w: debit %d, credit %d", ErrUnbalancedEntry, debit, credit)
	}
	return nil
}

// SequenceNumber returns the parsed sequence of a numbered entry.
func (e *JournalEntry) SequenceNumber() Sequence {
	return Sequence{FiscalYear: e.FiscalYear, Counter: e.Counter}
}

// Reversal builds the correcting entry for e: same accounts with debit and
// credit swapped, dated on date.
func (e *JournalEntry) Reversal(date time.Time) *JournalEntry {
	rev := &JournalEntry{
		Journal:        e.Journal,
		EntryDate:      date,
		AccountingDate: date,
		Label:          "Contrepassation " + e.Sequence + " " + e.Label,
		Reference:      e.Sequence,
		ReversalOf:     e.ID,
	}
	for _, l := range e.Lines {
		rev.Lines = append(rev.Lines, EntryLine{
			AccountCode:     l.AccountCode,
			Label:           l.Label,
			Debit:           l.Credit,
			Credit:          l.Debit,
			AuxAccount:      l.AuxAccount,
			AuxLabel:        l.AuxLabel,
			ForeignAmount:   l.ForeignAmount,
			ForeignCurrency: l.ForeignCurrency,
		})
	}
	return rev
}
