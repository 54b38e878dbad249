package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/grandlivre/internal/ledger"
)

func read(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	r := csv.NewReader(buf)
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestGrandLivre(t *testing.T) {
	gl := &ledger.GrandLivre{Accounts: []ledger.LedgerAccount{{
		Code:           "411000",
		Label:          "Clients",
		OpeningBalance: 1000,
		Movements: []ledger.Movement{{
			Sequence:       "2025-000002",
			AccountingDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Label:          "Abonnement; mars",
			Debit:          4999,
			Balance:        5999,
			LettrageCode:   "A",
		}},
		TotalDebit:     4999,
		ClosingBalance: 5999,
	}}}

	var buf bytes.Buffer
	require.NoError(t, GrandLivre(&buf, gl))
	records := read(t, &buf)

	require.Len(t, records, 4)
	assert.Equal(t, GrandLivreHeader, records[0])
	assert.Equal(t, []string{"411000", "Clients", "Solde initial", "", "", "0,00", "0,00", "10,00", ""}, records[1])
	assert.Equal(t, []string{"411000", "Clients", "2025-03-01", "2025-000002", "Abonnement; mars", "49,99", "0,00", "59,99", "A"}, records[2])
	assert.Equal(t, "Totaux", records[3][2])
	assert.Equal(t, "59,99", records[3][7])
}

func TestBalance(t *testing.T) {
	tb := &ledger.TrialBalance{
		Lines: []ledger.TrialBalanceLine{
			{Code: "512000", Label: "Banque", TotalDebit: 10000, DebitBalance: 10000},
			{Code: "706000", Label: "Prestations de services", TotalCredit: 10000, CreditBalance: 10000},
		},
		TotalDebit: 10000, TotalCredit: 10000, TotalDebitBalance: 10000, TotalCreditBalance: 10000,
	}
	var buf bytes.Buffer
	require.NoError(t, Balance(&buf, tb))
	records := read(t, &buf)

	require.Len(t, records, 4)
	assert.Equal(t, BalanceHeader, records[0])
	assert.Equal(t, []string{"TOTAUX", "", "100,00", "100,00", "100,00", "100,00"}, records[3])
}

func TestLettrageAndImmobilisations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Lettrage(&buf, []ledger.ReconciliationGroup{{
		Code: "MAN-B", Account: "411000", Counterparty: "fan_1", Total: 0, Manual: true,
		Status: ledger.GroupMatched, MatchDate: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), LineIDs: []int64{1, 4},
	}}))
	records := read(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"MAN-B", "411000", "fan_1", "manuel", "lettre", "0,00", "2025-03-02", "2"}, records[1])

	buf.Reset()
	require.NoError(t, Immobilisations(&buf, []ledger.FixedAsset{{
		ID: "a1", Label: "Serveur", Category: ledger.CategoryComputer,
		AcquisitionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), AcquisitionValue: 150000,
		Method: ledger.MethodLinear, UsefulLife: 3, NetBookValue: 100000, AccumulatedDepreciation: 50000,
		Status: ledger.AssetInProgress,
	}}))
	records = read(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, ImmobilisationsHeader, records[0])
	assert.Equal(t, "1500,00", records[1][4])
	assert.Equal(t, "3", records[1][6])
	assert.Equal(t, "1000,00", records[1][7])
}

func TestEmptyExportsKeepHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Lettrage(&buf, nil))
	assert.Equal(t, [][]string{LettrageHeader}, read(t, &buf))
}
