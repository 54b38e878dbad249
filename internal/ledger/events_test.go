package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineFor(t *testing.T, e *JournalEntry, code string) EntryLine {
	t.Helper()
	for _, l := range e.Lines {
		if l.AccountCode == code {
			return l
		}
	}
	t.Fatalf("no line on %s", code)
	return EntryLine{}
}

func TestSplitVAT(t *testing.T) {
	net, vat := SplitVAT(1200, decimal.RequireFromString("0.20"))
	assert.Equal(t, int64(1000), net)
	assert.Equal(t, int64(200), vat)

	net, vat = SplitVAT(500, decimal.RequireFromString("0.20"))
	assert.Equal(t, int64(417), net)
	assert.Equal(t, int64(83), vat)
}

func TestSubscriptionEvent(t *testing.T) {
	ev := &PaymentEvent{
		ID:      "evt_1",
		Type:    EventSubscription,
		Amount:  4999,
		Date:    date(2025, 3, 1),
		Payer:   "FAN-1",
		Creator: "CR-9",
	}
	e, err := ev.ToEntry(DefaultPostingPolicy())
	require.NoError(t, err)

	assert.Equal(t, JournalSales, e.Journal)
	assert.Equal(t, "evt_1", e.SourceRef)
	debit, credit := e.Totals()
	assert.Equal(t, debit, credit)

	customer := lineFor(t, e, AccountCustomers)
	assert.Equal(t, int64(4999), customer.Debit)
	assert.Equal(t, "FAN-1", customer.AuxAccount)

	creator := lineFor(t, e, AccountCreators)
	assert.Equal(t, int64(4499), creator.Credit)
	assert.Equal(t, "CR-9", creator.AuxAccount)

	revenue := lineFor(t, e, AccountServiceRevenue)
	vat := lineFor(t, e, AccountVATCollected20)
	assert.Equal(t, int64(500), revenue.Credit+vat.Credit)
	assert.Equal(t, int64(417), revenue.Credit)
}

func TestAllEventsBalance(t *testing.T) {
	for typ := range EventMappings {
		ev := &PaymentEvent{ID: "x", Type: typ, Amount: 12345, Date: date(2025, 1, 2), Payer: "P", Creator: "C", Counterparty: "STRIPE"}
		e, err := ev.ToEntry(DefaultPostingPolicy())
		require.NoError(t, err, typ)
		d, c := e.Totals()
		assert.Equal(t, d, c, typ)
	}
}

func TestEventValidate(t *testing.T) {
	ev := &PaymentEvent{ID: "x", Type: "CHARGEBACK", Amount: 1, Date: date(2025, 1, 2)}
	_, err := ev.ToEntry(DefaultPostingPolicy())
	assert.ErrorIs(t, err, ErrInvalidEvent)

	ev = &PaymentEvent{ID: "x", Type: EventTip, Amount: 100, Currency: "USD", Date: date(2025, 1, 2)}
	_, err = ev.ToEntry(DefaultPostingPolicy())
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}
