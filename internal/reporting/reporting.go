// Package reporting projects journal entries into the general ledger, the
// trial balance, the balance sheet and the VAT summary.
//
// Every projection is a pure function of the entries it is given. Entries that
// fail validation (unbalanced, unknown account) are left out and reported as
// warnings, so one bad entry never hides a whole report.
package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// usable returns the valid entries ordered by accounting date then sequence,
// and a warning for each entry left out.
func usable(entries []ledger.JournalEntry) ([]ledger.JournalEntry, []string) {
	var out []ledger.JournalEntry
	var warnings []string
	for i := range entries {
		e := &entries[i]
		if err := e.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("entry %s excluded: %v", entryRef(e), err))
			continue
		}
		out = append(out, *e)
	}
	sortEntries(out)
	return out, warnings
}

func entryRef(e *ledger.JournalEntry) string {
	if e.Sequence != "" {
		return e.Sequence
	}
	return e.ID
}

func sortEntries(entries []ledger.JournalEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if !a.AccountingDate.Equal(b.AccountingDate) {
			return a.AccountingDate.Before(b.AccountingDate)
		}
		return a.SequenceNumber().Less(b.SequenceNumber())
	})
}

func onOrBefore(t time.Time, limit *time.Time) bool {
	return limit == nil || !ledger.Day(t).After(ledger.Day(*limit))
}

func before(t time.Time, limit *time.Time) bool {
	return limit != nil && ledger.Day(t).Before(ledger.Day(*limit))
}

// totals accumulates debit and credit per account code.
type totals map[string]*[2]int64

func (t totals) add(code string, debit, credit int64) {
	v, ok := t[code]
	if !ok {
		v = &[2]int64{}
		t[code] = v
	}
	v[0] += debit
	v[1] += credit
}

func (t totals) codes() []string {
	codes := make([]string, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func accumulate(entries []ledger.JournalEntry, asOf *time.Time) totals {
	t := totals{}
	for i := range entries {
		if !onOrBefore(entries[i].AccountingDate, asOf) {
			continue
		}
		for _, l := range entries[i].Lines {
			t.add(l.AccountCode, l.Debit, l.Credit)
		}
	}
	return t
}
