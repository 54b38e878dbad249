package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simonvc/grandlivre/internal/ledger"
)

var (
	collectedPrefixes       = []string{"44571"}
	deductibleFixedPrefixes = []string{"44562"}
	deductibleOtherPrefixes = []string{"44566"}
)

// VAT sums the VAT movements of [from, to]. Collected VAT comes from sales
// entries, and from miscellaneous entries where refunds land; deductible VAT
// comes from purchase entries.
func VAT(entries []ledger.JournalEntry, from, to time.Time) *ledger.VATSummary {
	valid, warnings := usable(entries)
	s := &ledger.VATSummary{From: ledger.Day(from), To: ledger.Day(to), Warnings: warnings}

	collected := map[string]int64{}
	for i := range valid {
		e := &valid[i]
		d := ledger.Day(e.AccountingDate)
		if d.Before(s.From) || d.After(s.To) {
			continue
		}
		for _, l := range e.Lines {
			switch {
			case ledger.HasPrefix(l.AccountCode, collectedPrefixes...):
				if e.Journal == ledger.JournalSales || e.Journal == ledger.JournalMisc {
					collected[l.AccountCode] += l.Credit - l.Debit
				}
			case ledger.HasPrefix(l.AccountCode, deductibleFixedPrefixes...):
				if e.Journal == ledger.JournalPurchases {
					s.DeductibleFixed += l.Debit - l.Credit
				}
			case ledger.HasPrefix(l.AccountCode, deductibleOtherPrefixes...):
				if e.Journal == ledger.JournalPurchases {
					s.DeductibleOther += l.Debit - l.Credit
				}
			}
		}
	}

	codes := make([]string, 0, len(collected))
	for code := range collected {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		amount := collected[code]
		s.Collected += amount
		acct, _ := ledger.LookupAccount(code)
		line := ledger.VATRateLine{Account: code, Rate: acct.VATRate, Collected: amount}
		line.Base = TaxBase(amount, acct.VATRate)
		s.ByRate = append(s.ByRate, line)
	}
	s.Deductible = s.DeductibleFixed + s.DeductibleOther
	s.Net = s.Collected - s.Deductible
	return s
}

// TaxBase derives the taxable base from a VAT amount and a rate in percent,
// rounded to the minor unit. An unknown rate yields 0.
func TaxBase(vat int64, rate string) int64 {
	r, err := decimal.NewFromString(rate)
	if err != nil || r.IsZero() {
		return 0
	}
	return decimal.NewFromInt(vat).Mul(decimal.NewFromInt(100)).Div(r).Round(0).IntPart()
}
