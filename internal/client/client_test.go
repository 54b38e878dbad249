package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/grandlivre/internal/config"
	"github.com/simonvc/grandlivre/internal/export/fec"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/server"
	"github.com/simonvc/grandlivre/internal/store"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "grandlivre.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Company.SIREN = "123456789"
	srv, err := server.New(st, cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestEntryLifecycle(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	e, err := c.CreateEntry(ctx, &EntryRequest{
		Journal:        ledger.JournalSales,
		AccountingDate: "2025-03-01",
		Label:          "Abonnement",
		Lines: []ledger.EntryLine{
			{AccountCode: "512000", Debit: 4999},
			{AccountCode: "706000", Credit: 4999},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-000001", e.Sequence)

	e, err = c.UpdateDraft(ctx, e.ID, "Abonnement mars", []ledger.EntryLine{
		{AccountCode: "512000", Debit: 5999},
		{AccountCode: "706000", Credit: 5999},
	})
	require.NoError(t, err)
	assert.Equal(t, "Abonnement mars", e.Label)

	_, err = c.ValidateEntry(ctx, e.ID)
	require.NoError(t, err)

	_, err = c.UpdateDraft(ctx, e.ID, "x", e.Lines)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Status)

	rev, err := c.ReverseEntry(ctx, e.ID, "2025-03-02")
	require.NoError(t, err)
	assert.Equal(t, e.ID, rev.ReversalOf)

	got, err := c.GetEntry(ctx, "2025-000002")
	require.NoError(t, err)
	assert.Equal(t, rev.ID, got.ID)

	validated := true
	list, err := c.ListEntries(ctx, EntryQuery{Account: "512", Validated: &validated})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	bal, err := c.GetAccountBalance(ctx, "512000")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Balance)

	ratios, err := c.Ratios(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ratios.NetCash)
	assert.True(t, ratios.Liquidity.IsZero())

	var buf bytes.Buffer
	name, err := c.CSV(ctx, "grand-livre", url.Values{"account": {"512"}}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "grand-livre.csv", name)
	assert.Contains(t, buf.String(), "2025-000002")

	_, err = c.CSV(ctx, "nope", nil, &bytes.Buffer{})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
}

func TestEventsAndExports(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	ev := &ledger.PaymentEvent{
		ID:      "evt_1",
		Type:    ledger.EventSubscription,
		Amount:  1000,
		Date:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Payer:   "fan_1",
		Creator: "creator_1",
	}
	_, created, err := c.PostEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = c.PostEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, created)

	p, err := c.FECPreview(ctx, Range{Year: 2025}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Entries)

	var buf bytes.Buffer
	name, err := c.FEC(ctx, Range{Year: 2025}, "", &buf)
	require.NoError(t, err)
	assert.Equal(t, "123456789FEC20251231.txt", name)
	rows, err := fec.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, rows, p.Rows)

	decls, err := c.CA3(ctx, Range{From: "2025-03-01", To: "2025-03-31"})
	require.NoError(t, err)
	require.Len(t, decls, 1)
}

func TestAssetsAndLettrage(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	a, err := c.CreateAsset(ctx, &AssetRequest{
		Category:         ledger.CategorySoftware,
		Label:            "Licence",
		AcquisitionDate:  "2024-01-01",
		AcquisitionValue: 90000,
	})
	require.NoError(t, err)

	res, err := c.RunDepreciation(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, res.Charges, 1)
	assert.Equal(t, int64(30000), res.Total)

	sched, err := c.AssetSchedule(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, sched.Schedule, 3)
	assert.True(t, sched.Schedule[0].Booked)
	assert.False(t, sched.Schedule[1].Booked)

	sale := &ledger.PaymentEvent{ID: "s1", Type: ledger.EventTip, Amount: 500,
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Payer: "fan_1", Creator: "creator_1"}
	paid := &ledger.PaymentEvent{ID: "p1", Type: ledger.EventPaymentReceived, Amount: 500,
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Payer: "fan_1"}
	for _, ev := range []*ledger.PaymentEvent{sale, paid} {
		_, _, err := c.PostEvent(ctx, ev)
		require.NoError(t, err)
	}

	run, err := c.RunLettrage(ctx)
	require.NoError(t, err)
	require.Len(t, run.Groups, 1)

	groups, err := c.ListGroups(ctx, "411", "")
	require.NoError(t, err)
	require.Len(t, groups, 1)

	require.NoError(t, c.DeleteGroup(ctx, groups[0].ID))

	g, err := c.ManualLettrage(ctx, groups[0].LineIDs)
	require.NoError(t, err)
	assert.Equal(t, ledger.ManualCodePrefix+"B", g.Code)

	aged, err := c.AgedBalance(ctx, "2025-06-30")
	require.NoError(t, err)
	assert.NotNil(t, aged.Balances)
}
