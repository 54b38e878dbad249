package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/grandlivre/internal/config"
	"github.com/simonvc/grandlivre/internal/export/fec"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/store"
)

var today = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "grandlivre.db"),
		store.WithClock(func() time.Time { return today }))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Company.SIREN = "123456789"
	s, err := New(st, cfg)
	require.NoError(t, err)
	s.now = func() time.Time { return today }

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+"/api/v1"+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func saleRequest(date string, amount int64, validate bool) map[string]any {
	return map[string]any{
		"journal":         "SALES",
		"accounting_date": date,
		"label":           "Abonnement",
		"validate":        validate,
		"lines": []map[string]any{
			{"account_code": "512000", "debit": amount},
			{"account_code": "706000", "credit": amount},
		},
	}
}

func TestCreateEntryAssignsSequence(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/entries", saleRequest("2025-03-01", 4999, false))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decodeBody[ledger.JournalEntry](t, resp)
	assert.Equal(t, "2025-000001", e.Sequence)
	assert.False(t, e.Validated)

	resp = do(t, ts, http.MethodGet, "/entries/2025-000001", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[ledger.JournalEntry](t, resp)
	assert.Equal(t, e.ID, got.ID)
}

func TestCreateUnbalancedEntry(t *testing.T) {
	ts := newTestServer(t)

	req := saleRequest("2025-03-01", 100, false)
	req["lines"] = []map[string]any{
		{"account_code": "512000", "debit": 100},
		{"account_code": "706000", "credit": 90},
	}
	resp := do(t, ts, http.MethodPost, "/entries", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/entries", map[string]any{"journal": "SALES"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidatedEntryIsImmutable(t *testing.T) {
	ts := newTestServer(t)

	e := decodeBody[ledger.JournalEntry](t, do(t, ts, http.MethodPost, "/entries", saleRequest("2025-03-01", 100, false)))

	resp := do(t, ts, http.MethodPost, "/entries/"+e.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeBody[ledger.JournalEntry](t, resp).Validated)

	resp = do(t, ts, http.MethodPut, "/entries/"+e.ID, map[string]any{
		"label": "Corrigé",
		"lines": []map[string]any{
			{"account_code": "512000", "debit": 200},
			{"account_code": "706000", "credit": 200},
		},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/entries/"+e.ID+"/reverse", map[string]any{"date": "2025-03-05"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rev := decodeBody[ledger.JournalEntry](t, resp)
	assert.Equal(t, e.ID, rev.ReversalOf)
	assert.Equal(t, int64(100), rev.Lines[0].Credit)

	resp = do(t, ts, http.MethodPost, "/entries/"+e.ID+"/reverse", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/entries/nope", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/entries/2025-000042", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/accounts/999999", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/assets/nope", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodDelete, "/lettrage/groups/nope", nil).StatusCode)
}

func TestPostEventIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	ev := ledger.PaymentEvent{
		ID:      "evt_1",
		Type:    ledger.EventSubscription,
		Amount:  1000,
		Date:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Payer:   "fan_1",
		Creator: "creator_1",
	}
	resp := do(t, ts, http.MethodPost, "/events", ev)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decodeBody[ledger.JournalEntry](t, resp)
	assert.True(t, first.Validated)
	d, c := first.Totals()
	assert.Equal(t, d, c)

	resp = do(t, ts, http.MethodPost, "/events", ev)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decodeBody[ledger.JournalEntry](t, resp)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Sequence, again.Sequence)

	ev.ID, ev.Type = "evt_2", "BOGUS"
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/events", ev).StatusCode)
}

func TestLettrageRun(t *testing.T) {
	ts := newTestServer(t)

	sale := ledger.PaymentEvent{ID: "evt_sale", Type: ledger.EventSubscription, Amount: 1000,
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Payer: "fan_1", Creator: "creator_1"}
	paid := ledger.PaymentEvent{ID: "evt_paid", Type: ledger.EventPaymentReceived, Amount: 1000,
		Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Payer: "fan_1"}
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/events", sale).StatusCode)
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/events", paid).StatusCode)

	resp := do(t, ts, http.MethodPost, "/lettrage/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[struct {
		Groups []ledger.ReconciliationGroup `json:"groups"`
	}](t, resp)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "A", res.Groups[0].Code)
	assert.Len(t, res.Groups[0].LineIDs, 2)

	resp = do(t, ts, http.MethodPost, "/lettrage/run", nil)
	res = decodeBody[struct {
		Groups []ledger.ReconciliationGroup `json:"groups"`
	}](t, resp)
	assert.Empty(t, res.Groups)

	groups := decodeBody[[]ledger.ReconciliationGroup](t, do(t, ts, http.MethodGet, "/lettrage/groups?account=411", nil))
	require.Len(t, groups, 1)

	resp = do(t, ts, http.MethodDelete, "/lettrage/groups/"+groups[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	groups = decodeBody[[]ledger.ReconciliationGroup](t, do(t, ts, http.MethodGet, "/lettrage/groups", nil))
	assert.Empty(t, groups)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t)

	for _, d := range []string{"2025-01-15", "2025-02-15"} {
		require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/entries", saleRequest(d, 5000, true)).StatusCode)
	}
	// Drafts stay out of the reports.
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/entries", saleRequest("2025-03-15", 7000, false)).StatusCode)

	resp := do(t, ts, http.MethodGet, "/reports/trial-balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tb := decodeBody[ledger.TrialBalance](t, resp)
	assert.True(t, tb.Balanced)
	assert.Equal(t, int64(10000), tb.TotalDebit)

	resp = do(t, ts, http.MethodGet, "/reports/bilan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b := decodeBody[ledger.Bilan](t, resp)
	assert.Equal(t, b.TotalActif, b.TotalPassif)

	resp = do(t, ts, http.MethodGet, "/reports/ratios?as_of=2025-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ratios := decodeBody[ledger.BilanRatios](t, resp)
	assert.Equal(t, int64(10000), ratios.NetCash)
	assert.Equal(t, int64(10000), ratios.WorkingCapital)
	assert.Equal(t, "1.00", ratios.Solvency.StringFixed(2))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodGet, "/reports/ratios?as_of=never", nil).StatusCode)

	resp = do(t, ts, http.MethodGet, "/ledger?account=512&to=2025-01-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gl := decodeBody[ledger.GrandLivre](t, resp)
	require.Len(t, gl.Accounts, 1)
	assert.Len(t, gl.Accounts[0].Movements, 1)

	resp = do(t, ts, http.MethodGet, "/accounts/512000/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodGet, "/reports/vat", nil).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/reports/vat?year=2025", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodGet, "/reports/bilan?as_of=yesterday", nil).StatusCode)
}

func TestFECExport(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/entries", saleRequest("2025-01-15", 5000, true)).StatusCode)
	draft := decodeBody[ledger.JournalEntry](t, do(t, ts, http.MethodPost, "/entries", saleRequest("2025-02-15", 3000, false)))

	resp := do(t, ts, http.MethodGet, "/exports/fec?year=2025", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, "/entries/"+draft.ID+"/validate", nil).StatusCode)

	resp = do(t, ts, http.MethodGet, "/exports/fec/preview?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decodeBody[struct {
		Filename string `json:"filename"`
		Rows     int    `json:"rows"`
	}](t, resp)
	assert.Equal(t, "123456789FEC20251231.txt", p.Filename)
	assert.Equal(t, 4, p.Rows)

	resp = do(t, ts, http.MethodGet, "/exports/fec?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "123456789FEC20251231.txt")
	rows, err := fec.Parse(resp.Body)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, int64(8000), fec.Balances(rows)["512000"])

	resp = do(t, ts, http.MethodGet, "/exports/fec?year=2025&siren=12", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCA3Export(t *testing.T) {
	ts := newTestServer(t)

	ev := ledger.PaymentEvent{ID: "evt_1", Type: ledger.EventSubscription, Amount: 12000,
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Payer: "fan_1", Creator: "creator_1"}
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/events", ev).StatusCode)

	resp := do(t, ts, http.MethodGet, "/exports/ca3?from=2025-03-01&to=2025-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decls := decodeBody[[]map[string]any](t, resp)
	require.Len(t, decls, 1)

	resp = do(t, ts, http.MethodGet, "/exports/ca3?from=2025-03-01&to=2025-03-31&format=text", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "CA3_202503_202503.txt")
}

func TestAssetDepreciationRun(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/assets", map[string]any{
		"category":          "materiel_info",
		"label":             "Serveur",
		"acquisition_date":  "2024-01-01",
		"acquisition_value": 150000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	a := decodeBody[ledger.FixedAsset](t, resp)
	assert.Equal(t, 3, a.UsefulLife)
	assert.Equal(t, "218300", a.AssetAccount)

	// Yearly policy: the last closed period on 2025-06-30 is 2024.
	resp = do(t, ts, http.MethodPost, "/depreciation/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[struct {
		Charges []ledger.DepreciationCharge `json:"charges"`
		Total   int64                       `json:"total"`
	}](t, resp)
	require.Len(t, res.Charges, 1)
	assert.Equal(t, int64(50000), res.Total)

	resp = do(t, ts, http.MethodPost, "/depreciation/run?period=2024", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decodeBody[struct {
		Charges []ledger.DepreciationCharge `json:"charges"`
		Total   int64                       `json:"total"`
	}](t, resp)
	assert.Empty(t, res.Charges)

	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/depreciation/run?period=2024-03", nil).StatusCode)

	got := decodeBody[ledger.FixedAsset](t, do(t, ts, http.MethodGet, "/assets/"+a.ID, nil))
	assert.Equal(t, int64(100000), got.NetBookValue)

	resp = do(t, ts, http.MethodPost, "/assets/"+a.ID+"/dispose", map[string]any{"date": "2025-06-30", "proceeds": 80000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, ts, http.MethodPost, "/assets/"+a.ID+"/dispose", map[string]any{"date": "2025-06-30", "proceeds": 80000})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCSVExports(t *testing.T) {
	ts := newTestServer(t)
	for _, d := range []string{"2025-01-15", "2025-02-15"} {
		require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/entries", saleRequest(d, 5000, true)).StatusCode)
	}

	records := func(path string) [][]string {
		resp := do(t, ts, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
		r := csv.NewReader(resp.Body)
		r.Comma = ';'
		recs, err := r.ReadAll()
		require.NoError(t, err)
		return recs
	}

	balance := records("/exports/csv/balance")
	require.Len(t, balance, 4)
	assert.Equal(t, []string{"TOTAUX", "", "100,00", "100,00", "100,00", "100,00"}, balance[3])

	gl := records("/exports/csv/grand-livre?account=512")
	require.Len(t, gl, 5)
	assert.Equal(t, "2025-000002", gl[3][3])
	assert.Equal(t, "100,00", gl[4][7])

	assert.Len(t, records("/exports/csv/lettrage"), 1)
	assert.Len(t, records("/exports/csv/immobilisations"), 1)

	resp := do(t, ts, http.MethodGet, "/exports/csv/balance", nil)
	assert.Equal(t, `attachment; filename="balance.csv"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodGet, "/exports/csv/bilan", nil).StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
