package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement is one entry line seen from its account, with the running balance
// on the account's normal side after it.
type Movement struct {
	EntryID        string      `json:"entry_id"`
	Sequence       string      `json:"sequence"`
	Journal        JournalCode `json:"journal"`
	AccountingDate time.Time   `json:"accounting_date"`
	Label          string      `json:"label"`
	AuxAccount     string      `json:"aux_account,omitempty"`
	Debit          int64       `json:"debit"`
	Credit         int64       `json:"credit"`
	Balance        int64       `json:"balance"`
	LettrageCode   string      `json:"lettrage_code,omitempty"`
}

type LedgerAccount struct {
	Code           string     `json:"code"`
	Label          string     `json:"label"`
	NormalSide     Side       `json:"normal_side"`
	OpeningBalance int64      `json:"opening_balance"`
	Movements      []Movement `json:"movements"`
	TotalDebit     int64      `json:"total_debit"`
	TotalCredit    int64      `json:"total_credit"`
	ClosingBalance int64      `json:"closing_balance"`
}

// GrandLivre is the general ledger over a date range.
type GrandLivre struct {
	From        *time.Time      `json:"from,omitempty"`
	To          *time.Time      `json:"to,omitempty"`
	Accounts    []LedgerAccount `json:"accounts"`
	Warnings    []string        `json:"warnings,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type TrialBalanceLine struct {
	Code          string `json:"code"`
	Label         string `json:"label"`
	TotalDebit    int64  `json:"total_debit"`
	TotalCredit   int64  `json:"total_credit"`
	DebitBalance  int64  `json:"debit_balance"`
	CreditBalance int64  `json:"credit_balance"`
}

type TrialBalance struct {
	AsOf               time.Time          `json:"as_of"`
	Lines              []TrialBalanceLine `json:"lines"`
	TotalDebit         int64              `json:"total_debit"`
	TotalCredit        int64              `json:"total_credit"`
	TotalDebitBalance  int64              `json:"total_debit_balance"`
	TotalCreditBalance int64              `json:"total_credit_balance"`
	Balanced           bool               `json:"balanced"`
	Warnings           []string           `json:"warnings,omitempty"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

type BilanSection string

const (
	SectionFixedAssets BilanSection = "immobilisations"
	SectionInventory   BilanSection = "stocks"
	SectionReceivables BilanSection = "creances"
	SectionCash        BilanSection = "disponibilites"
	SectionEquity      BilanSection = "capitaux_propres"
	SectionLiabilities BilanSection = "dettes"
)

type BilanLine struct {
	Section BilanSection `json:"section"`
	Code    string       `json:"code"`
	Label   string       `json:"label"`
	Amount  int64        `json:"amount"`
}

// Bilan is the balance sheet snapshot at AsOf.
type Bilan struct {
	AsOf        time.Time              `json:"as_of"`
	Actif       []BilanLine            `json:"actif"`
	Passif      []BilanLine            `json:"passif"`
	Sections    map[BilanSection]int64 `json:"sections"`
	Result      int64                  `json:"result"`
	TotalActif  int64                  `json:"total_actif"`
	TotalPassif int64                  `json:"total_passif"`
	Warnings    []string               `json:"warnings,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// BilanRatios are the balance-sheet indicators of a Bilan. Ratios are zero
// when their denominator is not positive.
type BilanRatios struct {
	AsOf               time.Time       `json:"as_of"`
	Equity             int64           `json:"equity"`
	Debts              int64           `json:"debts"`
	WorkingCapital     int64           `json:"working_capital"`
	WorkingCapitalNeed int64           `json:"working_capital_need"`
	NetCash            int64           `json:"net_cash"`
	Liquidity          decimal.Decimal `json:"liquidity"`
	Solvency           decimal.Decimal `json:"solvency"`
	Gearing            decimal.Decimal `json:"gearing"`
}

type VATRateLine struct {
	Account   string `json:"account"`
	Rate      string `json:"rate"`
	Base      int64  `json:"base"`
	Collected int64  `json:"collected"`
}

// VATSummary covers one period. Net is negative when deductible VAT exceeds
// collected VAT, i.e. a credit carried forward.
type VATSummary struct {
	From            time.Time     `json:"from"`
	To              time.Time     `json:"to"`
	Collected       int64         `json:"collected"`
	Deductible      int64         `json:"deductible"`
	DeductibleFixed int64         `json:"deductible_fixed"`
	DeductibleOther int64         `json:"deductible_other"`
	Net             int64         `json:"net"`
	ByRate          []VATRateLine `json:"by_rate"`
	Warnings        []string      `json:"warnings,omitempty"`
}
