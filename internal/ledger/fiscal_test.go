package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceFormat(t *testing.T) {
	s := Sequence{FiscalYear: 2025, Counter: 1}
	assert.Equal(t, "2025-000001", s.String())

	parsed, err := ParseSequence("2025-000042")
	require.NoError(t, err)
	assert.Equal(t, Sequence{FiscalYear: 2025, Counter: 42}, parsed)

	_, err = ParseSequence("2025-0")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ParseSequence("garbage")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFiscalYear(t *testing.T) {
	assert.Equal(t, 2025, CalendarYear.FiscalYear(date(2025, 12, 31)))

	july, err := ParseFiscalStart("07-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, july.FiscalYear(date(2025, 6, 30)))
	assert.Equal(t, 2025, july.FiscalYear(date(2025, 7, 1)))

	start, end := july.Bounds(2025)
	assert.Equal(t, date(2025, 7, 1), start)
	assert.Equal(t, date(2026, 6, 30), end)

	_, err = ParseFiscalStart("13-40")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestPeriods(t *testing.T) {
	p, err := ParsePeriod("2025-12")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2025, Month: time.December}, p)
	assert.Equal(t, "2026-01", p.Next().Key())

	annual, err := ParsePeriod("2025")
	require.NoError(t, err)
	assert.Equal(t, "2026", annual.Next().Key())
	start, end := annual.Bounds(CalendarYear)
	assert.Equal(t, date(2025, 1, 1), start)
	assert.Equal(t, date(2025, 12, 31), end)

	_, err = ParsePeriod("2025-13")
	assert.ErrorIs(t, err, ErrInvalidDate)

	assert.Equal(t, "2025-02", PeriodOf(date(2025, 2, 14), true, CalendarYear).Key())
	assert.Equal(t, "2025", PeriodOf(date(2025, 2, 14), false, CalendarYear).Key())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 3, 1), d)

	_, err = ParseDate("01/03/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestLettrageCodes(t *testing.T) {
	assert.Equal(t, "A", LettrageCode(0))
	assert.Equal(t, "Z", LettrageCode(25))
	assert.Equal(t, "AA", LettrageCode(26))
	assert.Equal(t, "AB", LettrageCode(27))
	assert.Equal(t, "ZZ", LettrageCode(701))
	assert.Equal(t, "AAA", LettrageCode(702))
	for i := 0; i < 1000; i++ {
		assert.Equal(t, i, LettrageIndex(LettrageCode(i)))
	}
	assert.Equal(t, -1, LettrageIndex("MAN-A"))
}

func TestBucketForAge(t *testing.T) {
	assert.Equal(t, Bucket0To30, BucketForAge(0))
	assert.Equal(t, Bucket0To30, BucketForAge(30))
	assert.Equal(t, Bucket30To60, BucketForAge(45))
	assert.Equal(t, Bucket60To90, BucketForAge(90))
	assert.Equal(t, Bucket90Plus, BucketForAge(91))
}
