package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BookCurrency is the currency every amount in the books is kept in.
const BookCurrency = "EUR"

type CurrencyDef struct {
	Code     string
	Name     string
	Exponent int32 // 2 for EUR (100 centimes), 0 for JPY
}

var Currencies = map[string]CurrencyDef{
	"EUR": {Code: "EUR", Name: "Euro", Exponent: 2},
	"USD": {Code: "USD", Name: "US Dollar", Exponent: 2},
	"GBP": {Code: "GBP", Name: "Pound Sterling", Exponent: 2},
	"CHF": {Code: "CHF", Name: "Swiss Franc", Exponent: 2},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", Exponent: 2},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Exponent: 0},
}

func ValidCurrency(code string) bool {
	_, ok := Currencies[code]
	return ok
}

// ToMinorUnits converts a decimal string like "10.50" (or "10,50") to 1050 for EUR.
// Extra fractional digits are rejected rather than silently truncated.
func ToMinorUnits(amount string, currency string) (int64, error) {
	cur, ok := Currencies[currency]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCurrency, currency)
	}
	amount = strings.Replace(strings.TrimSpace(amount), ",", ".", 1)
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	scaled := d.Shift(cur.Exponent)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, amount, cur.Exponent)
	}
	return scaled.IntPart(), nil
}

// FormatAmount converts minor units to a display string. E.g. 1050 EUR -> "10.50".
func FormatAmount(amount int64, currency string) string {
	cur, ok := Currencies[currency]
	if !ok {
		return fmt.Sprintf("%d %s", amount, currency)
	}
	return decimal.New(amount, -cur.Exponent).StringFixed(cur.Exponent)
}

// FormatDecimalComma renders minor units with a comma decimal separator and no
// thousands grouping, e.g. 123456 -> "1234,56".
func FormatDecimalComma(amount int64) string {
	return strings.Replace(FormatAmount(amount, BookCurrency), ".", ",", 1)
}

// ParseDecimalComma is the inverse of FormatDecimalComma. An empty string is zero.
func ParseDecimalComma(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return ToMinorUnits(s, BookCurrency)
}
