package reporting

import (
	"github.com/shopspring/decimal"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// Ratios derives the balance-sheet indicators from b. Class 1 debts count as
// permanent capital, class 4 debts as short-term and class 5 credit balances
// as passive treasury, so that WorkingCapital - WorkingCapitalNeed = NetCash
// on a balanced sheet.
func Ratios(b *ledger.Bilan) *ledger.BilanRatios {
	var longTerm, shortTerm, bank int64
	for _, l := range b.Passif {
		if l.Section != ledger.SectionLiabilities {
			continue
		}
		switch ledger.Class(l.Code) {
		case 1:
			longTerm += l.Amount
		case 5:
			bank += l.Amount
		default:
			shortTerm += l.Amount
		}
	}
	equity := b.Sections[ledger.SectionEquity]
	current := b.Sections[ledger.SectionInventory] + b.Sections[ledger.SectionReceivables]

	return &ledger.BilanRatios{
		AsOf:               b.AsOf,
		Equity:             equity,
		Debts:              longTerm + shortTerm,
		WorkingCapital:     equity + longTerm - b.Sections[ledger.SectionFixedAssets],
		WorkingCapitalNeed: current - shortTerm,
		NetCash:            b.Sections[ledger.SectionCash] - bank,
		Liquidity:          ratio(current, shortTerm+bank),
		Solvency:           ratio(equity, b.TotalPassif),
		Gearing:            ratio(longTerm+shortTerm, equity),
	}
}

func ratio(num, den int64) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), 4)
}
