package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

type LedgerFilter struct {
	// Account restricts the ledger to codes starting with it.
	Account string
	From    *time.Time
	To      *time.Time
}

// GrandLivre lists every account's movements in [From, To] with a running
// balance on the account's normal side, starting from the balance carried
// from before From.
func GrandLivre(entries []ledger.JournalEntry, f LedgerFilter) *ledger.GrandLivre {
	valid, warnings := usable(entries)
	gl := &ledger.GrandLivre{From: f.From, To: f.To, Warnings: warnings, GeneratedAt: time.Now().UTC()}

	accounts := map[string]*ledger.LedgerAccount{}
	get := func(code string) *ledger.LedgerAccount {
		la, ok := accounts[code]
		if !ok {
			acct, _ := ledger.LookupAccount(code)
			la = &ledger.LedgerAccount{Code: code, Label: acct.Label, NormalSide: acct.NormalSide}
			accounts[code] = la
		}
		return la
	}

	for i := range valid {
		e := &valid[i]
		if !onOrBefore(e.AccountingDate, f.To) {
			continue
		}
		opening := before(e.AccountingDate, f.From)
		for _, l := range e.Lines {
			if f.Account != "" && !ledger.HasPrefix(l.AccountCode, f.Account) {
				continue
			}
			la := get(l.AccountCode)
			acct, _ := ledger.LookupAccount(l.AccountCode)
			delta := acct.SignedBalance(l.Debit, l.Credit)
			if opening {
				la.OpeningBalance += delta
				la.ClosingBalance += delta
				continue
			}
			la.ClosingBalance += delta
			la.TotalDebit += l.Debit
			la.TotalCredit += l.Credit
			la.Movements = append(la.Movements, ledger.Movement{
				EntryID:        e.ID,
				Sequence:       e.Sequence,
				Journal:        e.Journal,
				AccountingDate: e.AccountingDate,
				Label:          lineLabel(e, &l),
				AuxAccount:     l.AuxAccount,
				Debit:          l.Debit,
				Credit:         l.Credit,
				Balance:        la.ClosingBalance,
				LettrageCode:   l.LettrageCode,
			})
		}
	}

	codes := make([]string, 0, len(accounts))
	for code := range accounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		gl.Accounts = append(gl.Accounts, *accounts[code])
	}
	return gl
}

func lineLabel(e *ledger.JournalEntry, l *ledger.EntryLine) string {
	if l.Label != "" {
		return l.Label
	}
	return e.Label
}

// TrialBalance sums every account up to asOf (all entries when nil). It
// returns the balance along with ErrTrialUnbalanced if debits and credits
// disagree.
func TrialBalance(entries []ledger.JournalEntry, asOf *time.Time) (*ledger.TrialBalance, error) {
	valid, warnings := usable(entries)
	tb := &ledger.TrialBalance{Warnings: warnings, GeneratedAt: time.Now().UTC()}
	if asOf != nil {
		tb.AsOf = ledger.Day(*asOf)
	}

	t := accumulate(valid, asOf)
	for _, code := range t.codes() {
		v := t[code]
		line := ledger.TrialBalanceLine{
			Code:        code,
			Label:       ledger.AccountLabel(code),
			TotalDebit:  v[0],
			TotalCredit: v[1],
		}
		if net := v[0] - v[1]; net > 0 {
			line.DebitBalance = net
		} else {
			line.CreditBalance = -net
		}
		tb.Lines = append(tb.Lines, line)
		tb.TotalDebit += line.TotalDebit
		tb.TotalCredit += line.TotalCredit
		tb.TotalDebitBalance += line.DebitBalance
		tb.TotalCreditBalance += line.CreditBalance
	}

	tb.Balanced = tb.TotalDebit == tb.TotalCredit && tb.TotalDebitBalance == tb.TotalCreditBalance
	if !tb.Balanced {
		return tb, fmt.Errorf("%w: debit %d credit %d", ledger.ErrTrialUnbalanced, tb.TotalDebit, tb.TotalCredit)
	}
	return tb, nil
}
