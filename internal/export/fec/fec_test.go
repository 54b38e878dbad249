package fec

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

func numbered(counter int64, d time.Time, lines ...ledger.EntryLine) ledger.JournalEntry {
	validated := d.AddDate(0, 0, 1)
	e := ledger.JournalEntry{
		ID:             "e" + string(rune('0'+counter)),
		FiscalYear:     d.Year(),
		Counter:        counter,
		Journal:        ledger.JournalSales,
		EntryDate:      d,
		AccountingDate: d,
		Label:          "Abonnement",
		Validated:      true,
		ValidatedAt:    &validated,
		Lines:          lines,
	}
	e.Sequence = e.SequenceNumber().String()
	return e
}

func sale(counter int64, d time.Time, amount int64) ledger.JournalEntry {
	return numbered(counter, d,
		ledger.EntryLine{AccountCode: "411000", Debit: amount, AuxAccount: "FAN-1", AuxLabel: "Fan\tone"},
		ledger.EntryLine{AccountCode: "706000", Credit: amount},
	)
}

func dataset(entries ...ledger.JournalEntry) *export.Dataset {
	numbering := map[int]ledger.Numbering{2025: {}}
	for _, e := range entries {
		n := numbering[e.FiscalYear]
		n.Counters = append(n.Counters, e.Counter)
		if e.Counter > n.Last {
			n.Last = e.Counter
		}
		numbering[e.FiscalYear] = n
	}
	return &export.Dataset{
		SIREN:     "123456789",
		From:      date(2025, 1, 1),
		To:        date(2025, 12, 31),
		Calendar:  ledger.CalendarYear,
		Entries:   entries,
		Numbering: numbering,
	}
}

func TestExportWritesOneRowPerLine(t *testing.T) {
	ds := dataset(sale(1, date(2025, 3, 1), 4999), sale(2, date(2025, 3, 2), 1000))
	var buf bytes.Buffer
	require.NoError(t, New().Export(context.Background(), &buf, ds))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, strings.Join(Columns, "\t"), lines[0])

	first := strings.Split(lines[1], "\t")
	require.Len(t, first, 18)
	assert.Equal(t, "VE", first[0])
	assert.Equal(t, "2025-000001", first[2])
	assert.Equal(t, "20250301", first[3])
	assert.Equal(t, "411000", first[4])
	assert.Equal(t, "Clients", first[5])
	assert.Equal(t, "Fan one", first[7])
	assert.Equal(t, "49,99", first[11])
	assert.Equal(t, "0,00", first[12])
	assert.Equal(t, "20250302", first[15])
}

func TestExportRoundTripsBalances(t *testing.T) {
	entries := []ledger.JournalEntry{
		sale(1, date(2025, 3, 1), 4999),
		numbered(2, date(2025, 3, 3),
			ledger.EntryLine{AccountCode: "512000", Debit: 4999},
			ledger.EntryLine{AccountCode: "411000", Credit: 4999, LettrageCode: "A"},
		),
		numbered(3, date(2025, 3, 5),
			ledger.EntryLine{AccountCode: "627000", Debit: 100},
			ledger.EntryLine{AccountCode: "445660", Debit: 20},
			ledger.EntryLine{AccountCode: "401000", Credit: 120},
		),
	}
	want := map[string]int64{}
	for _, e := range entries {
		for _, l := range e.Lines {
			want[l.AccountCode] += l.Debit - l.Credit
		}
	}

	var buf bytes.Buffer
	require.NoError(t, New().Export(context.Background(), &buf, dataset(entries...)))
	rows, err := Parse(&buf)
	require.NoError(t, err)

	assert.Len(t, rows, 7)
	assert.Equal(t, want, Balances(rows))
	assert.Equal(t, "A", rows[3].LettrageCode)

	s := ComputeStats(rows)
	assert.Equal(t, 3, s.Entries)
	assert.True(t, s.Balanced)
	assert.Equal(t, int64(4999+4999+120), s.TotalDebit)
}

func TestExportRefusesDrafts(t *testing.T) {
	draft := sale(2, date(2025, 3, 2), 1000)
	draft.Validated = false
	draft.ValidatedAt = nil
	ds := dataset(sale(1, date(2025, 3, 1), 4999), draft)

	var buf bytes.Buffer
	err := New().Export(context.Background(), &buf, ds)
	assert.ErrorIs(t, err, ledger.ErrUnvalidatedEntries)
	assert.ErrorIs(t, err, ledger.ErrExport)
	assert.Zero(t, buf.Len())
}

func TestExportRefusesGaps(t *testing.T) {
	ds := dataset(sale(1, date(2025, 3, 1), 4999), sale(3, date(2025, 3, 2), 1000))
	_, err := New().Preview(context.Background(), ds)
	assert.ErrorIs(t, err, ledger.ErrNonContiguous)
}

func TestNumberingMustStartAtOne(t *testing.T) {
	ds := dataset(sale(2, date(2025, 3, 1), 4999), sale(3, date(2025, 3, 2), 1000))
	_, err := New().Preview(context.Background(), ds)
	assert.ErrorIs(t, err, ledger.ErrNonContiguous)

	// A mid-year range is still checked against the whole year.
	ds.From = date(2025, 3, 1)
	_, err = New().Preview(context.Background(), ds)
	assert.ErrorIs(t, err, ledger.ErrNonContiguous)
}

func TestNumberingMustEndAtLastCounter(t *testing.T) {
	ds := dataset(sale(1, date(2025, 3, 1), 4999))
	n := ds.Numbering[2025]
	n.Last = 2
	ds.Numbering[2025] = n
	_, err := New().Preview(context.Background(), ds)
	assert.ErrorIs(t, err, ledger.ErrNonContiguous)
}

func TestMonthRangeWithEntryBookedLate(t *testing.T) {
	// #3 is dated in March but was booked after #2, dated in April.
	ds := dataset(sale(1, date(2025, 3, 10), 4999), sale(3, date(2025, 3, 31), 1000))
	ds.From, ds.To = date(2025, 3, 1), date(2025, 3, 31)
	ds.Numbering[2025] = ledger.Numbering{Counters: []int64{1, 2, 3}, Last: 3}

	p, err := New().Preview(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Entries)

	ds.Numbering[2025] = ledger.Numbering{Counters: []int64{1, 3}, Last: 3}
	_, err = New().Preview(context.Background(), ds)
	assert.ErrorIs(t, err, ledger.ErrNonContiguous)
}

func TestPreview(t *testing.T) {
	ds := dataset(sale(1, date(2025, 3, 1), 4999), sale(2, date(2025, 3, 2), 1000))
	p, err := New().Preview(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, "123456789FEC20251231.txt", p.Filename)
	assert.Equal(t, 4, p.Rows)
	assert.Equal(t, 2, p.Entries)
	assert.Equal(t, p.TotalDebit, p.TotalCredit)
}

func TestInvalidSIREN(t *testing.T) {
	for _, siren := range []string{"", "12345678", "1234567890", "12345678A"} {
		ds := dataset(sale(1, date(2025, 3, 1), 4999))
		ds.SIREN = siren
		_, err := New().Filename(ds)
		assert.ErrorIs(t, err, ledger.ErrInvalidSIREN, siren)
	}
}

func TestParseRejectsMalformedFiles(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ledger.ErrMalformedFile)

	_, err = Parse(strings.NewReader("JournalCode\tJournalLib\n"))
	assert.ErrorIs(t, err, ledger.ErrMalformedFile)

	header := strings.Join(Columns, "\t") + "\n"
	_, err = Parse(strings.NewReader(header + "VE\tventes\n"))
	assert.ErrorIs(t, err, ledger.ErrMalformedFile)

	bad := make([]string, len(Columns))
	bad[3] = "2025-03-01"
	_, err = Parse(strings.NewReader(header + strings.Join(bad, "\t") + "\n"))
	assert.ErrorIs(t, err, ledger.ErrMalformedFile)
}
