package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func saleEntry(amount int64) *JournalEntry {
	return &JournalEntry{
		Journal:        JournalSales,
		EntryDate:      date(2025, 3, 1),
		AccountingDate: date(2025, 3, 1),
		Label:          "Abonnement",
		Lines: []EntryLine{
			{AccountCode: "512000", Debit: amount},
			{AccountCode: "706000", Credit: amount},
		},
	}
}

func TestEntryValidate_Balanced(t *testing.T) {
	require.NoError(t, saleEntry(4999).Validate())
}

func TestEntryValidate_Unbalanced(t *testing.T) {
	e := saleEntry(100)
	e.Lines[1].Credit = 90
	err := e.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnbalancedEntry)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEntryValidate_UnknownAccount(t *testing.T) {
	e := saleEntry(100)
	e.Lines[0].AccountCode = "999999"
	assert.ErrorIs(t, e.Validate(), ErrInvalidAccount)
}

func TestEntryValidate_LineShape(t *testing.T) {
	tests := []struct {
		name   string
		debit  int64
		credit int64
	}{
		{"both sides", 100, 100},
		{"neither side", 0, 0},
		{"negative debit", -100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := saleEntry(100)
			e.Lines[0].Debit = tt.debit
			e.Lines[0].Credit = tt.credit
			assert.ErrorIs(t, e.Validate(), ErrInvalidLine)
		})
	}
}

func TestEntryValidate_Journal(t *testing.T) {
	e := saleEntry(100)
	e.Journal = "VENTES"
	assert.ErrorIs(t, e.Validate(), ErrInvalidJournal)
}

func TestEntryValidate_TooFewLines(t *testing.T) {
	e := saleEntry(100)
	e.Lines = e.Lines[:1]
	assert.ErrorIs(t, e.Validate(), ErrTooFewLines)
}

func TestReversalSwapsSides(t *testing.T) {
	e := saleEntry(4999)
	e.ID = "abc"
	e.Sequence = "2025-000001"
	rev := e.Reversal(date(2025, 3, 5))

	require.NoError(t, rev.Validate())
	assert.Equal(t, "abc", rev.ReversalOf)
	assert.Equal(t, int64(4999), rev.Lines[0].Credit)
	assert.Equal(t, int64(4999), rev.Lines[1].Debit)
	assert.Contains(t, rev.Label, "2025-000001")
}

func TestJournalShortCodes(t *testing.T) {
	assert.Equal(t, "VE", JournalSales.ShortCode())
	assert.Equal(t, "Journal de banque", JournalBank.Label())
	j, ok := JournalFromShort("AC")
	require.True(t, ok)
	assert.Equal(t, JournalPurchases, j)
}

func TestSignedBalance(t *testing.T) {
	bank, _ := LookupAccount("512000")
	revenue, _ := LookupAccount("706000")
	assert.Equal(t, int64(70), bank.SignedBalance(100, 30))
	assert.Equal(t, int64(-70), revenue.SignedBalance(100, 30))
}

func TestChartIsValid(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range Chart {
		require.NoError(t, a.Validate(), a.Code)
		assert.False(t, seen[a.Code], "duplicate %s", a.Code)
		seen[a.Code] = true
	}
	for _, def := range AssetCategories {
		_, ok := LookupAccount(def.AssetAccount)
		assert.True(t, ok, def.AssetAccount)
		_, ok = LookupAccount(def.DepreciationAccount)
		assert.True(t, ok, def.DepreciationAccount)
	}
	assert.Equal(t, []string{"401000", "411000", "467000"}, LettrableCodes())
}

func TestAmounts(t *testing.T) {
	n, err := ToMinorUnits("49.99", "EUR")
	require.NoError(t, err)
	assert.Equal(t, int64(4999), n)

	n, err = ParseDecimalComma("1234,5")
	require.NoError(t, err)
	assert.Equal(t, int64(123450), n)

	_, err = ToMinorUnits("1.999", "EUR")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, "1234,56", FormatDecimalComma(123456))
	assert.Equal(t, "-0,05", FormatDecimalComma(-5))
	assert.Equal(t, "0.00", FormatAmount(0, "EUR"))
}
