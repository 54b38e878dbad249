package ca3

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/grandlivre/internal/export"
	"github.com/simonvc/grandlivre/internal/ledger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entry(counter int64, j ledger.JournalCode, d time.Time, lines ...ledger.EntryLine) ledger.JournalEntry {
	return ledger.JournalEntry{
		ID:             "e",
		FiscalYear:     2025,
		Counter:        counter,
		Sequence:       ledger.Sequence{FiscalYear: 2025, Counter: counter}.String(),
		Journal:        j,
		EntryDate:      d,
		AccountingDate: d,
		Label:          "x",
		Validated:      true,
		Lines:          lines,
	}
}

func quarter() *export.Dataset {
	return &export.Dataset{
		From:     date(2025, 1, 1),
		To:       date(2025, 3, 31),
		Calendar: ledger.CalendarYear,
		Entries: []ledger.JournalEntry{
			// January: a server bought, deductible VAT exceeds collected.
			entry(1, ledger.JournalPurchases, date(2025, 1, 10),
				ledger.EntryLine{AccountCode: "218300", Debit: 10000},
				ledger.EntryLine{AccountCode: "445620", Debit: 2000},
				ledger.EntryLine{AccountCode: "401000", Credit: 12000}),
			entry(2, ledger.JournalSales, date(2025, 1, 20),
				ledger.EntryLine{AccountCode: "411000", Debit: 1200},
				ledger.EntryLine{AccountCode: "706000", Credit: 1000},
				ledger.EntryLine{AccountCode: "445710", Credit: 200}),
			// February: nothing. March: sales at two rates.
			entry(3, ledger.JournalSales, date(2025, 3, 5),
				ledger.EntryLine{AccountCode: "411000", Debit: 12000},
				ledger.EntryLine{AccountCode: "706000", Credit: 10000},
				ledger.EntryLine{AccountCode: "445710", Credit: 2000}),
			entry(4, ledger.JournalSales, date(2025, 3, 6),
				ledger.EntryLine{AccountCode: "411000", Debit: 1055},
				ledger.EntryLine{AccountCode: "706000", Credit: 1000},
				ledger.EntryLine{AccountCode: "445712", Credit: 55}),
			entry(5, ledger.JournalPurchases, date(2025, 3, 7),
				ledger.EntryLine{AccountCode: "627000", Debit: 500},
				ledger.EntryLine{AccountCode: "445660", Debit: 100},
				ledger.EntryLine{AccountCode: "401000", Credit: 600}),
		},
	}
}

func vat(t *testing.T, d Declaration, code string) int64 {
	t.Helper()
	l, ok := d.Line(code)
	require.True(t, ok, "line %s", code)
	return l.VAT
}

func TestBuildCarriesCredit(t *testing.T) {
	decls := Build(quarter())
	require.Len(t, decls, 3)

	jan, feb, mar := decls[0], decls[1], decls[2]
	assert.Equal(t, int64(200), vat(t, jan, Line20))
	assert.Equal(t, int64(2000), vat(t, jan, LineFixed))
	assert.Equal(t, int64(1800), jan.Credit)
	assert.Equal(t, int64(0), jan.Net)

	assert.Equal(t, int64(1800), vat(t, feb, LineCarried))
	assert.Equal(t, int64(1800), feb.Credit)

	assert.Equal(t, int64(2055), vat(t, mar, LineDue))
	assert.Equal(t, int64(55), vat(t, mar, Line55))
	assert.Equal(t, int64(100), vat(t, mar, LineOther))
	assert.Equal(t, int64(1800), vat(t, mar, LineCarried))
	assert.Equal(t, int64(155), mar.Net)
	assert.Equal(t, int64(0), mar.Credit)

	l, _ := mar.Line(Line20)
	assert.Equal(t, int64(10000), l.Base)
	assert.Equal(t, Line20, mar.Lines[0].Code)
	assert.Equal(t, LineNet, mar.Lines[len(mar.Lines)-1].Code)
}

func TestBuildIgnoresDrafts(t *testing.T) {
	ds := quarter()
	ds.Entries[1].Validated = false
	jan := Build(ds)[0]
	_, ok := jan.Line(Line20)
	assert.False(t, ok)
	assert.Equal(t, int64(2000), jan.Credit)
}

func TestExportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Export(context.Background(), &buf, quarter()))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Periode\tLigne\tLibelle\tBase\tTVA\n"))
	assert.Contains(t, out, "2025-03\t28\tTVA nette due\t\t1,55\n")

	p, err := New().Preview(context.Background(), quarter())
	require.NoError(t, err)
	assert.Equal(t, 3, p.Entries)
	assert.Equal(t, "CA3_202501_202503.txt", p.Filename)
}
