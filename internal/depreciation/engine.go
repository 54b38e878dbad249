package depreciation

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simonvc/grandlivre/internal/ledger"
)

type Proration string

const (
	// ProrationNone charges a full first period whatever the acquisition date.
	ProrationNone Proration = "none"
	// ProrationDaily charges the first period by the fraction of days held.
	ProrationDaily Proration = "daily"
)

type Policy struct {
	Monthly   bool
	Proration Proration
	Calendar  ledger.FiscalCalendar
}

// Store is what a run needs from persistence: a consistent read of the
// depreciable assets and an atomic commit of the computed charges.
type Store interface {
	DepreciationSnapshot(ctx context.Context) ([]ledger.FixedAsset, map[string]map[string]bool, error)
	CommitDepreciation(ctx context.Context, charges []ledger.DepreciationCharge) ([]ledger.DepreciationCharge, error)
}

type Engine struct {
	policy  Policy
	methods map[ledger.DepreciationMethod]Method
}

func New(policy Policy) *Engine {
	if policy.Proration == "" {
		policy.Proration = ProrationNone
	}
	e := &Engine{policy: policy, methods: map[ledger.DepreciationMethod]Method{}}
	e.Register(Linear{})
	e.Register(Declining{})
	return e
}

// Register adds or replaces a depreciation method.
func (e *Engine) Register(m Method) {
	e.methods[m.Name()] = m
}

func (e *Engine) method(a *ledger.FixedAsset) (Method, error) {
	m, ok := e.methods[a.Method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown method %q", ledger.ErrInvalidAsset, a.Method)
	}
	return m, nil
}

// FirstPeriod is the period containing the acquisition date.
func (e *Engine) FirstPeriod(a *ledger.FixedAsset) ledger.Period {
	return ledger.PeriodOf(a.AcquisitionDate, e.policy.Monthly, e.policy.Calendar)
}

// FirstFraction is the share of the first period the asset was held.
func (e *Engine) FirstFraction(a *ledger.FixedAsset) decimal.Decimal {
	if e.policy.Proration != ProrationDaily {
		return one
	}
	start, end := e.FirstPeriod(a).Bounds(e.policy.Calendar)
	acquired := ledger.Day(a.AcquisitionDate)
	if !acquired.After(start) {
		return one
	}
	total := int64(end.Sub(start).Hours()/24) + 1
	held := int64(end.Sub(acquired).Hours()/24) + 1
	return decimal.NewFromInt(held).Div(decimal.NewFromInt(total))
}

// Rate returns the annual rate of the asset's method, in percent.
func (e *Engine) Rate(a *ledger.FixedAsset) (decimal.Decimal, error) {
	m, err := e.method(a)
	if err != nil {
		return decimal.Zero, err
	}
	return m.Rate(a.UsefulLife), nil
}

// Plan returns the charges of every period of the asset's life.
func (e *Engine) Plan(a *ledger.FixedAsset) ([]int64, error) {
	m, err := e.method(a)
	if err != nil {
		return nil, err
	}
	return m.Plan(a.AcquisitionValue, a.UsefulLife, e.FirstFraction(a))
}

type ScheduleLine struct {
	Period      ledger.Period `json:"period"`
	Charge      int64         `json:"charge"`
	Accumulated int64         `json:"accumulated"`
	NetBook     int64         `json:"net_book_value"`
	Booked      bool          `json:"booked"`
}

// Schedule returns the full depreciation table of an asset, marking the
// periods already booked.
func (e *Engine) Schedule(a *ledger.FixedAsset) ([]ScheduleLine, error) {
	plan, err := e.Plan(a)
	if err != nil {
		return nil, err
	}
	lines := make([]ScheduleLine, 0, len(plan))
	p := e.FirstPeriod(a)
	var acc int64
	for i, charge := range plan {
		acc += charge
		lines = append(lines, ScheduleLine{
			Period:      p,
			Charge:      charge,
			Accumulated: acc,
			NetBook:     a.AcquisitionValue - acc,
			Booked:      i < a.PeriodsCharged,
		})
		p = p.Next()
	}
	return lines, nil
}

// Due computes the charges owed by a single asset for every period up to and
// including target that has not been charged yet. charged holds the period
// keys already booked for the asset.
func (e *Engine) Due(a ledger.FixedAsset, target ledger.Period, charged map[string]bool) ([]ledger.DepreciationCharge, error) {
	if a.Status != ledger.AssetInProgress {
		return nil, nil
	}
	if a.AccumulatedDepreciation > a.AcquisitionValue || a.AccumulatedDepreciation < 0 {
		return nil, fmt.Errorf("%w: asset %s accumulated %d of %d", ledger.ErrNegativeBookValue, a.ID, a.AccumulatedDepreciation, a.AcquisitionValue)
	}
	plan, err := e.Plan(&a)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", a.ID, err)
	}

	p := e.FirstPeriod(&a)
	for i := 0; i < a.PeriodsCharged; i++ {
		p = p.Next()
	}

	var out []ledger.DepreciationCharge
	acc := a.AccumulatedDepreciation
	for k := a.PeriodsCharged; k < len(plan) && acc < a.AcquisitionValue; k++ {
		if p.After(target) {
			break
		}
		if charged[p.Key()] {
			p = p.Next()
			continue
		}
		amount := plan[k]
		// The plan is rebuilt from the acquisition value; an asset imported
		// with prior depreciation or a last period clamps to what is left.
		if remaining := a.AcquisitionValue - acc; amount > remaining || k == len(plan)-1 {
			amount = remaining
		}
		acc += amount
		c := ledger.DepreciationCharge{
			AssetID:     a.ID,
			Period:      p,
			Index:       k + 1,
			Amount:      amount,
			Accumulated: acc,
			NetBook:     a.AcquisitionValue - acc,
			Status:      ledger.AssetInProgress,
		}
		if acc == a.AcquisitionValue {
			c.Status = ledger.AssetFullyDepreciated
		}
		if amount > 0 {
			c.Entry = e.chargeEntry(&a, p, k+1, amount)
		}
		out = append(out, c)
		p = p.Next()
	}
	return out, nil
}

func (e *Engine) chargeEntry(a *ledger.FixedAsset, p ledger.Period, index int, amount int64) *ledger.JournalEntry {
	_, end := p.Bounds(e.policy.Calendar)
	label := fmt.Sprintf("Dotation amortissement %s %s (%d/%d)", a.Label, p.Key(), index, a.UsefulLife)
	return &ledger.JournalEntry{
		Journal:        ledger.JournalMisc,
		EntryDate:      end,
		AccountingDate: end,
		Label:          label,
		Reference:      "IMMO-" + a.ID,
		Lines: []ledger.EntryLine{
			{AccountCode: a.ExpenseAccount, Label: label, Debit: amount},
			{AccountCode: a.DepreciationAccount, Label: label, Credit: amount},
		},
	}
}

// RunResult reports what a run booked and what it left alone.
type RunResult struct {
	Target  ledger.Period               `json:"target"`
	Charges []ledger.DepreciationCharge `json:"charges"`
	Skipped []string                    `json:"skipped,omitempty"`
	Total   int64                       `json:"total"`
}

// Run books every charge due up to target. It reads one snapshot, computes
// all charges, and commits them in a single transaction; any error leaves
// the books untouched.
func (e *Engine) Run(ctx context.Context, st Store, target ledger.Period) (*RunResult, error) {
	assets, charged, err := st.DepreciationSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("depreciation snapshot: %w", err)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })

	res := &RunResult{Target: target}
	var due []ledger.DepreciationCharge
	for _, a := range assets {
		c, err := e.Due(a, target, charged[a.ID])
		if err != nil {
			return nil, err
		}
		if len(c) == 0 {
			res.Skipped = append(res.Skipped, a.ID)
			continue
		}
		due = append(due, c...)
	}
	if len(due) == 0 {
		return res, nil
	}

	committed, err := st.CommitDepreciation(ctx, due)
	if err != nil {
		return nil, fmt.Errorf("commit depreciation: %w", err)
	}
	res.Charges = committed
	for _, c := range committed {
		res.Total += c.Amount
	}
	log.Printf("depreciation run %s: %d charges, total %s", target, len(committed), ledger.FormatAmount(res.Total, ledger.BookCurrency))
	return res, nil
}

// DisposalEntry builds the cession entry: the asset leaves at acquisition
// value against its accumulated depreciation, the net book value goes to
// 675000 and proceeds to 775000 against the bank.
func DisposalEntry(a *ledger.FixedAsset, date time.Time, proceeds int64) (*ledger.JournalEntry, error) {
	if a.Status == ledger.AssetDisposed {
		return nil, fmt.Errorf("%w: asset %s already disposed", ledger.ErrAssetNotActive, a.ID)
	}
	if proceeds < 0 {
		return nil, fmt.Errorf("%w: negative proceeds", ledger.ErrInvalidAmount)
	}
	label := "Cession " + a.Label
	e := &ledger.JournalEntry{
		Journal:        ledger.JournalMisc,
		EntryDate:      ledger.Day(date),
		AccountingDate: ledger.Day(date),
		Label:          label,
		Reference:      "IMMO-" + a.ID,
	}
	if a.AccumulatedDepreciation > 0 {
		e.Lines = append(e.Lines, ledger.EntryLine{AccountCode: a.DepreciationAccount, Label: label, Debit: a.AccumulatedDepreciation})
	}
	if nbv := a.Remaining(); nbv > 0 {
		e.Lines = append(e.Lines, ledger.EntryLine{AccountCode: ledger.AccountDisposalLoss, Label: label, Debit: nbv})
	}
	e.Lines = append(e.Lines, ledger.EntryLine{AccountCode: a.AssetAccount, Label: label, Credit: a.AcquisitionValue})
	if proceeds > 0 {
		e.Lines = append(e.Lines,
			ledger.EntryLine{AccountCode: ledger.AccountBank, Label: label, Debit: proceeds},
			ledger.EntryLine{AccountCode: ledger.AccountDisposalGain, Label: label, Credit: proceeds},
		)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
