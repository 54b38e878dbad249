package reporting

import (
	"fmt"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// Bilan classifies account balances at asOf into the balance sheet:
//
//	Actif:  class 2 net of 28x/29x, class 3, debit balances of classes 4 and 5
//	Passif: class 1 equity plus the period result, class 1 borrowings,
//	        credit balances of classes 4 and 5
//
// A sheet whose sides differ is returned with ErrBilanUnbalanced.
func Bilan(entries []ledger.JournalEntry, asOf *time.Time) (*ledger.Bilan, error) {
	valid, warnings := usable(entries)
	b := &ledger.Bilan{
		Sections:    map[ledger.BilanSection]int64{},
		Warnings:    warnings,
		GeneratedAt: time.Now().UTC(),
	}
	if asOf != nil {
		b.AsOf = ledger.Day(*asOf)
	}

	actif := func(s ledger.BilanSection, code string, amount int64) {
		b.Actif = append(b.Actif, ledger.BilanLine{Section: s, Code: code, Label: ledger.AccountLabel(code), Amount: amount})
		b.Sections[s] += amount
		b.TotalActif += amount
	}
	passif := func(s ledger.BilanSection, code string, amount int64) {
		b.Passif = append(b.Passif, ledger.BilanLine{Section: s, Code: code, Label: ledger.AccountLabel(code), Amount: amount})
		b.Sections[s] += amount
		b.TotalPassif += amount
	}

	t := accumulate(valid, asOf)
	for _, code := range t.codes() {
		v := t[code]
		net := v[0] - v[1]
		if net == 0 {
			continue
		}
		acct, _ := ledger.LookupAccount(code)
		switch ledger.Class(code) {
		case 1:
			if acct.Type == ledger.TypeEquity {
				passif(ledger.SectionEquity, code, -net)
			} else {
				passif(ledger.SectionLiabilities, code, -net)
			}
		case 2:
			actif(ledger.SectionFixedAssets, code, net)
		case 3:
			actif(ledger.SectionInventory, code, net)
		case 4:
			if net > 0 {
				actif(ledger.SectionReceivables, code, net)
			} else {
				passif(ledger.SectionLiabilities, code, -net)
			}
		case 5:
			if net > 0 {
				actif(ledger.SectionCash, code, net)
			} else {
				passif(ledger.SectionLiabilities, code, -net)
			}
		case 6, 7:
			b.Result -= net
		}
	}
	if b.Result != 0 {
		passif(ledger.SectionEquity, ledger.AccountResult, b.Result)
	}

	if b.TotalActif != b.TotalPassif {
		return b, fmt.Errorf("%w: actif %d passif %d", ledger.ErrBilanUnbalanced, b.TotalActif, b.TotalPassif)
	}
	return b, nil
}
