package ledger

import (
	"fmt"
	"regexp"
)

type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeRevenue   AccountType = "revenue"
	TypeExpense   AccountType = "expense"
)

var AllAccountTypes = []AccountType{
	TypeAsset,
	TypeLiability,
	TypeEquity,
	TypeRevenue,
	TypeExpense,
}

type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

type Account struct {
	Code       string      `json:"code"`
	Label      string      `json:"label"`
	Type       AccountType `json:"type"`
	NormalSide Side        `json:"normal_side"`
	// Lettrable accounts carry third-party lines that reconciliation matches.
	Lettrable bool `json:"lettrable,omitempty"`
	// VATRate is set on VAT sub-accounts, in percent ("20", "5.5").
	VATRate string `json:"vat_rate,omitempty"`
}

var codePattern = regexp.MustCompile(`^[1-7][0-9]{5}$`)

// ValidCode reports whether code looks like a 6-digit PCG account number.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Class returns the PCG class (first digit) of an account code.
func Class(code string) int {
	if code == "" {
		return 0
	}
	return int(code[0] - '0')
}

// HasPrefix reports whether the account code starts with any of the prefixes.
func HasPrefix(code string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(code) >= len(p) && code[:len(p)] == p {
			return true
		}
	}
	return false
}

// Validate checks account invariants.
func (a *Account) Validate() error {
	if !ValidCode(a.Code) {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, a.Code)
	}
	if a.Label == "" {
		return fmt.Errorf("%w: account %s", ErrEmptyLabel, a.Code)
	}
	if !ValidAccountType(a.Type) {
		return fmt.Errorf("%w: account %s has type %q", ErrValidation, a.Code, a.Type)
	}
	if a.NormalSide != SideDebit && a.NormalSide != SideCredit {
		return fmt.Errorf("%w: account %s has normal side %q", ErrValidation, a.Code, a.NormalSide)
	}
	return nil
}

// SignedBalance turns debit/credit totals into a balance on the account's
// normal side: positive means the account sits on its normal side.
func (a *Account) SignedBalance(debit, credit int64) int64 {
	if a.NormalSide == SideCredit {
		return credit - debit
	}
	return debit - credit
}

func ValidAccountType(t AccountType) bool {
	for _, v := range AllAccountTypes {
		if v == t {
			return true
		}
	}
	return false
}

// TypeLabel returns a human-readable label for an account type.
func TypeLabel(t AccountType) string {
	switch t {
	case TypeAsset:
		return "Actif"
	case TypeLiability:
		return "Dettes"
	case TypeEquity:
		return "Capitaux propres"
	case TypeRevenue:
		return "Produits"
	case TypeExpense:
		return "Charges"
	default:
		return string(t)
	}
}
