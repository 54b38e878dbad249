package ledger

import (
	"fmt"
	"time"
)

type AssetStatus string

const (
	AssetInProgress       AssetStatus = "in_progress"
	AssetFullyDepreciated AssetStatus = "fully_depreciated"
	AssetDisposed         AssetStatus = "disposed"
)

type DepreciationMethod string

const (
	MethodLinear    DepreciationMethod = "linear"
	MethodDeclining DepreciationMethod = "declining"
)

type AssetCategory string

const (
	CategorySoftware     AssetCategory = "logiciel"
	CategoryComputer     AssetCategory = "materiel_info"
	CategoryFurniture    AssetCategory = "mobilier"
	CategoryVehicle      AssetCategory = "vehicule"
	CategoryFixtures     AssetCategory = "agencement"
	CategoryConstruction AssetCategory = "construction"
)

// CategoryDef carries the accounts and default useful life (in years) of an
// asset category.
type CategoryDef struct {
	AssetAccount        string `json:"asset_account"`
	DepreciationAccount string `json:"depreciation_account"`
	DefaultLife         int    `json:"default_life"`
}

var AssetCategories = map[AssetCategory]CategoryDef{
	CategorySoftware:     {AssetAccount: "205000", DepreciationAccount: "280500", DefaultLife: 3},
	CategoryComputer:     {AssetAccount: "218300", DepreciationAccount: "281830", DefaultLife: 3},
	CategoryFurniture:    {AssetAccount: "218400", DepreciationAccount: "281840", DefaultLife: 10},
	CategoryVehicle:      {AssetAccount: "218200", DepreciationAccount: "281820", DefaultLife: 5},
	CategoryFixtures:     {AssetAccount: "213500", DepreciationAccount: "281350", DefaultLife: 10},
	CategoryConstruction: {AssetAccount: "213000", DepreciationAccount: "281300", DefaultLife: 20},
}

type FixedAsset struct {
	ID                      string             `json:"id"`
	Category                AssetCategory      `json:"category"`
	Label                   string             `json:"label"`
	AcquisitionDate         time.Time          `json:"acquisition_date"`
	AcquisitionValue        int64              `json:"acquisition_value"`
	AssetAccount            string             `json:"asset_account"`
	DepreciationAccount     string             `json:"depreciation_account"`
	ExpenseAccount          string             `json:"expense_account"`
	UsefulLife              int                `json:"useful_life"`
	Method                  DepreciationMethod `json:"method"`
	Rate                    string             `json:"rate,omitempty"`
	AccumulatedDepreciation int64              `json:"accumulated_depreciation"`
	NetBookValue            int64              `json:"net_book_value"`
	PeriodsCharged          int                `json:"periods_charged"`
	Status                  AssetStatus        `json:"status"`
	DisposalDate            *time.Time         `json:"disposal_date,omitempty"`
	DisposalProceeds        int64              `json:"disposal_proceeds,omitempty"`
	CreatedAt               time.Time          `json:"created_at,omitempty"`
}

// ApplyDefaults fills accounts, life, method and status from the category.
func (a *FixedAsset) ApplyDefaults() {
	def, ok := AssetCategories[a.Category]
	if ok {
		if a.AssetAccount == "" {
			a.AssetAccount = def.AssetAccount
		}
		if a.DepreciationAccount == "" {
			a.DepreciationAccount = def.DepreciationAccount
		}
		if a.UsefulLife == 0 {
			a.UsefulLife = def.DefaultLife
		}
	}
	if a.ExpenseAccount == "" {
		a.ExpenseAccount = AccountDepreciationExpense
	}
	if a.Method == "" {
		a.Method = MethodLinear
	}
	if a.Status == "" {
		a.Status = AssetInProgress
		a.NetBookValue = a.AcquisitionValue - a.AccumulatedDepreciation
	}
}

func (a *FixedAsset) Validate() error {
	if a.Label == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidAsset)
	}
	if a.AcquisitionDate.IsZero() {
		return fmt.Errorf("%w: acquisition date is required", ErrInvalidDate)
	}
	if a.AcquisitionValue <= 0 {
		return fmt.Errorf("%w: acquisition value must be positive", ErrInvalidAsset)
	}
	if a.UsefulLife <= 0 {
		return fmt.Errorf("%w: useful life must be positive", ErrInvalidAsset)
	}
	if a.Method != MethodLinear && a.Method != MethodDeclining {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidAsset, a.Method)
	}
	for _, code := range []string{a.AssetAccount, a.DepreciationAccount, a.ExpenseAccount} {
		if _, ok := LookupAccount(code); !ok {
			return fmt.Errorf("%w: %q", ErrInvalidAccount, code)
		}
	}
	if !HasPrefix(a.AssetAccount, "2") || !HasPrefix(a.DepreciationAccount, "28") {
		return fmt.Errorf("%w: asset account must be class 2 and depreciation account 28x", ErrInvalidAsset)
	}
	if a.AccumulatedDepreciation < 0 || a.AccumulatedDepreciation > a.AcquisitionValue {
		return fmt.Errorf("%w: accumulated depreciation out of range", ErrInvalidAsset)
	}
	return nil
}

// Remaining is the value still to depreciate.
func (a *FixedAsset) Remaining() int64 {
	return a.AcquisitionValue - a.AccumulatedDepreciation
}

// DepreciationCharge is one asset-period depreciation, the unit a run commits.
type DepreciationCharge struct {
	AssetID     string        `json:"asset_id"`
	Period      Period        `json:"period"`
	Index       int           `json:"index"`
	Amount      int64         `json:"amount"`
	Accumulated int64         `json:"accumulated"`
	NetBook     int64         `json:"net_book_value"`
	Status      AssetStatus   `json:"status"`
	Entry       *JournalEntry `json:"entry,omitempty"`
}
