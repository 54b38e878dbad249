package depreciation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simonvc/grandlivre/internal/ledger"
)

// Method produces a depreciation plan: the charge of every period, in order,
// summing exactly to value. first is the fraction of the first period the
// asset was held (1 when charges are not prorated).
type Method interface {
	Name() ledger.DepreciationMethod
	Plan(value int64, life int, first decimal.Decimal) ([]int64, error)
	// Rate is the annual rate shown on the asset, in percent.
	Rate(life int) decimal.Decimal
}

var one = decimal.NewFromInt(1)

// Linear spreads the value evenly. Without proration the plan has life periods
// and cumulative depreciation after k periods is floor(k*value/life); a
// prorated plan gets one extra period for the remainder.
type Linear struct{}

func (Linear) Name() ledger.DepreciationMethod { return ledger.MethodLinear }

func (Linear) Rate(life int) decimal.Decimal {
	return decimal.NewFromInt(100).Div(decimal.NewFromInt(int64(life))).Round(2)
}

func (Linear) Plan(value int64, life int, first decimal.Decimal) ([]int64, error) {
	if life <= 0 || value <= 0 {
		return nil, fmt.Errorf("%w: value %d life %d", ledger.ErrInvalidAsset, value, life)
	}
	n := int64(life)
	if first.GreaterThanOrEqual(one) {
		plan := make([]int64, life)
		var prev int64
		for k := int64(1); k <= n; k++ {
			cum := k * value / n
			plan[k-1] = cum - prev
			prev = cum
		}
		return plan, nil
	}

	v := decimal.NewFromInt(value)
	var plan []int64
	var prev int64
	for k := 1; prev < value; k++ {
		// Round off the division's representation error before flooring.
		cum := v.Mul(first.Add(decimal.NewFromInt(int64(k - 1)))).Div(decimal.NewFromInt(n)).Round(8).Floor().IntPart()
		if cum > value || k > life {
			cum = value
		}
		plan = append(plan, cum-prev)
		prev = cum
	}
	return plan, nil
}

// Declining is the French dégressif method: the linear rate times a statutory
// coefficient, applied to the net book value, switching to linear over the
// remaining periods once that gives the larger charge.
type Declining struct{}

func (Declining) Name() ledger.DepreciationMethod { return ledger.MethodDeclining }

// Coefficient returns the dégressif coefficient for a useful life in years.
func Coefficient(life int) (decimal.Decimal, error) {
	switch {
	case life < 3:
		return decimal.Zero, fmt.Errorf("%w: declining method needs a life of at least 3 periods", ledger.ErrInvalidAsset)
	case life <= 4:
		return decimal.RequireFromString("1.25"), nil
	case life <= 6:
		return decimal.RequireFromString("1.75"), nil
	default:
		return decimal.RequireFromString("2.25"), nil
	}
}

func (Declining) Rate(life int) decimal.Decimal {
	coef, err := Coefficient(life)
	if err != nil {
		return Linear{}.Rate(life)
	}
	return decimal.NewFromInt(100).Mul(coef).Div(decimal.NewFromInt(int64(life))).Round(2)
}

func (Declining) Plan(value int64, life int, first decimal.Decimal) ([]int64, error) {
	if life <= 0 || value <= 0 {
		return nil, fmt.Errorf("%w: value %d life %d", ledger.ErrInvalidAsset, value, life)
	}
	coef, err := Coefficient(life)
	if err != nil {
		return nil, err
	}
	if first.GreaterThan(one) {
		first = one
	}
	rate := coef.Div(decimal.NewFromInt(int64(life)))

	plan := make([]int64, life)
	nbv := value
	for k := 1; k <= life; k++ {
		remaining := int64(life - k + 1)
		var charge int64
		if k == life {
			charge = nbv
		} else {
			declining := decimal.NewFromInt(nbv).Mul(rate)
			if k == 1 {
				declining = declining.Mul(first)
			}
			linear := decimal.NewFromInt(nbv).Div(decimal.NewFromInt(remaining))
			if k == 1 {
				linear = linear.Mul(first)
			}
			charge = decimal.Max(declining, linear).Round(0).IntPart()
			if charge > nbv {
				charge = nbv
			}
		}
		plan[k-1] = charge
		nbv -= charge
	}
	return plan, nil
}
