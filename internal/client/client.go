package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/simonvc/grandlivre/internal/depreciation"
	"github.com/simonvc/grandlivre/internal/export"
	"github.com/simonvc/grandlivre/internal/export/ca3"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/lettrage"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Range selects a fiscal year, or an explicit from/to pair of YYYY-MM-DD dates.
type Range struct {
	Year int
	From string
	To   string
}

func (r Range) values() url.Values {
	params := url.Values{}
	if r.Year != 0 {
		params.Set("year", strconv.Itoa(r.Year))
	}
	setIf(params, "from", r.From)
	setIf(params, "to", r.To)
	return params
}

func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// Accounts

func (c *Client) ListAccounts(ctx context.Context, typ string, class int) ([]ledger.Account, error) {
	params := url.Values{}
	setIf(params, "type", typ)
	if class != 0 {
		params.Set("class", strconv.Itoa(class))
	}
	var result []ledger.Account
	if err := c.get(ctx, "/api/v1/accounts?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetAccount(ctx context.Context, code string) (*ledger.Account, error) {
	var result ledger.Account
	if err := c.get(ctx, "/api/v1/accounts/"+url.PathEscape(code), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type BalanceResponse struct {
	Account   string `json:"account"`
	Debit     int64  `json:"debit"`
	Credit    int64  `json:"credit"`
	Balance   int64  `json:"balance"`
	Formatted string `json:"formatted"`
}

func (c *Client) GetAccountBalance(ctx context.Context, code string) (*BalanceResponse, error) {
	var result BalanceResponse
	if err := c.get(ctx, "/api/v1/accounts/"+url.PathEscape(code)+"/balance", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListAccountEntries(ctx context.Context, code string) ([]ledger.JournalEntry, error) {
	var result []ledger.JournalEntry
	if err := c.get(ctx, "/api/v1/accounts/"+url.PathEscape(code)+"/entries", &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetChart(ctx context.Context) ([]ledger.Account, error) {
	var result []ledger.Account
	if err := c.get(ctx, "/api/v1/chart", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Entries

type EntryRequest struct {
	Journal        ledger.JournalCode `json:"journal"`
	EntryDate      string             `json:"entry_date,omitempty"`
	AccountingDate string             `json:"accounting_date"`
	Label          string             `json:"label"`
	Reference      string             `json:"reference,omitempty"`
	ReferenceDate  string             `json:"reference_date,omitempty"`
	Validate       bool               `json:"validate,omitempty"`
	Lines          []ledger.EntryLine `json:"lines"`
}

func (c *Client) CreateEntry(ctx context.Context, req *EntryRequest) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.post(ctx, "/api/v1/entries", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type EntryQuery struct {
	Account   string
	Journal   string
	From      string
	To        string
	Validated *bool
	Limit     int
}

func (c *Client) ListEntries(ctx context.Context, q EntryQuery) ([]ledger.JournalEntry, error) {
	params := url.Values{}
	setIf(params, "account", q.Account)
	setIf(params, "journal", q.Journal)
	setIf(params, "from", q.From)
	setIf(params, "to", q.To)
	if q.Validated != nil {
		params.Set("validated", strconv.FormatBool(*q.Validated))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var result []ledger.JournalEntry
	if err := c.get(ctx, "/api/v1/entries?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetEntry accepts an entry id or a sequence number such as 2025-000001.
func (c *Client) GetEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.get(ctx, "/api/v1/entries/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateDraft(ctx context.Context, id, label string, lines []ledger.EntryLine) (*ledger.JournalEntry, error) {
	body := map[string]any{"label": label, "lines": lines}
	var result ledger.JournalEntry
	if err := c.put(ctx, "/api/v1/entries/"+url.PathEscape(id), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ValidateEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.post(ctx, "/api/v1/entries/"+url.PathEscape(id)+"/validate", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReverseEntry books the contre-passation of a validated entry. An empty date
// lets the server use today.
func (c *Client) ReverseEntry(ctx context.Context, id, date string) (*ledger.JournalEntry, error) {
	var body any
	if date != "" {
		body = map[string]string{"date": date}
	}
	var result ledger.JournalEntry
	if err := c.post(ctx, "/api/v1/entries/"+url.PathEscape(id)+"/reverse", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PostEvent books a payment event. created is false when the server already
// knew the event id.
func (c *Client) PostEvent(ctx context.Context, ev *ledger.PaymentEvent) (*ledger.JournalEntry, bool, error) {
	var result ledger.JournalEntry
	status, err := c.send(ctx, http.MethodPost, "/api/v1/events", ev, &result)
	if err != nil {
		return nil, false, err
	}
	return &result, status == http.StatusCreated, nil
}

// Fixed assets

type AssetRequest struct {
	ID                      string                    `json:"id,omitempty"`
	Category                ledger.AssetCategory      `json:"category"`
	Label                   string                    `json:"label"`
	AcquisitionDate         string                    `json:"acquisition_date"`
	AcquisitionValue        int64                     `json:"acquisition_value"`
	UsefulLife              int                       `json:"useful_life,omitempty"`
	Method                  ledger.DepreciationMethod `json:"method,omitempty"`
	AccumulatedDepreciation int64                     `json:"accumulated_depreciation,omitempty"`
	PeriodsCharged          int                       `json:"periods_charged,omitempty"`
}

func (c *Client) CreateAsset(ctx context.Context, req *AssetRequest) (*ledger.FixedAsset, error) {
	var result ledger.FixedAsset
	if err := c.post(ctx, "/api/v1/assets", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListAssets(ctx context.Context, status string) ([]ledger.FixedAsset, error) {
	params := url.Values{}
	setIf(params, "status", status)
	var result []ledger.FixedAsset
	if err := c.get(ctx, "/api/v1/assets?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetAsset(ctx context.Context, id string) (*ledger.FixedAsset, error) {
	var result ledger.FixedAsset
	if err := c.get(ctx, "/api/v1/assets/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type ScheduleResponse struct {
	Asset    ledger.FixedAsset           `json:"asset"`
	Schedule []depreciation.ScheduleLine `json:"schedule"`
}

func (c *Client) AssetSchedule(ctx context.Context, id string) (*ScheduleResponse, error) {
	var result ScheduleResponse
	if err := c.get(ctx, "/api/v1/assets/"+url.PathEscape(id)+"/schedule", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type DisposalResponse struct {
	Asset ledger.FixedAsset   `json:"asset"`
	Entry ledger.JournalEntry `json:"entry"`
}

func (c *Client) DisposeAsset(ctx context.Context, id, date string, proceeds int64) (*DisposalResponse, error) {
	body := map[string]any{"date": date, "proceeds": proceeds}
	var result DisposalResponse
	if err := c.post(ctx, "/api/v1/assets/"+url.PathEscape(id)+"/dispose", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunDepreciation books charges up to period (YYYY or YYYY-MM), or up to the
// last closed period when it is empty.
func (c *Client) RunDepreciation(ctx context.Context, period string) (*depreciation.RunResult, error) {
	params := url.Values{}
	setIf(params, "period", period)
	var result depreciation.RunResult
	if err := c.post(ctx, "/api/v1/depreciation/run?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Lettrage

func (c *Client) RunLettrage(ctx context.Context) (*lettrage.RunResult, error) {
	var result lettrage.RunResult
	if err := c.post(ctx, "/api/v1/lettrage/run", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ManualLettrage(ctx context.Context, lineIDs []int64) (*ledger.ReconciliationGroup, error) {
	body := map[string]any{"line_ids": lineIDs}
	var result ledger.ReconciliationGroup
	if err := c.post(ctx, "/api/v1/lettrage/manual", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListGroups(ctx context.Context, account, counterparty string) ([]ledger.ReconciliationGroup, error) {
	params := url.Values{}
	setIf(params, "account", account)
	setIf(params, "counterparty", counterparty)
	var result []ledger.ReconciliationGroup
	if err := c.get(ctx, "/api/v1/lettrage/groups?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	_, err := c.send(ctx, http.MethodDelete, "/api/v1/lettrage/groups/"+url.PathEscape(id), nil, nil)
	return err
}

type AgedResponse struct {
	AsOf     time.Time                  `json:"as_of"`
	Balances []ledger.AgedBalance       `json:"balances"`
	Buckets  []ledger.AgedBalanceBucket `json:"buckets"`
}

func (c *Client) AgedBalance(ctx context.Context, asOf string) (*AgedResponse, error) {
	params := url.Values{}
	setIf(params, "as_of", asOf)
	var result AgedResponse
	if err := c.get(ctx, "/api/v1/lettrage/aged?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reports

func (c *Client) GrandLivre(ctx context.Context, account, from, to string) (*ledger.GrandLivre, error) {
	params := url.Values{}
	setIf(params, "account", account)
	setIf(params, "from", from)
	setIf(params, "to", to)
	var result ledger.GrandLivre
	if err := c.get(ctx, "/api/v1/ledger?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TrialBalance(ctx context.Context, asOf string) (*ledger.TrialBalance, error) {
	params := url.Values{}
	setIf(params, "as_of", asOf)
	var result ledger.TrialBalance
	if err := c.get(ctx, "/api/v1/reports/trial-balance?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Bilan(ctx context.Context, asOf string) (*ledger.Bilan, error) {
	params := url.Values{}
	setIf(params, "as_of", asOf)
	var result ledger.Bilan
	if err := c.get(ctx, "/api/v1/reports/bilan?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Ratios(ctx context.Context, asOf string) (*ledger.BilanRatios, error) {
	params := url.Values{}
	setIf(params, "as_of", asOf)
	var result ledger.BilanRatios
	if err := c.get(ctx, "/api/v1/reports/ratios?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) VAT(ctx context.Context, r Range) (*ledger.VATSummary, error) {
	var result ledger.VATSummary
	if err := c.get(ctx, "/api/v1/reports/vat?"+r.values().Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Exports

func (c *Client) FECPreview(ctx context.Context, r Range, siren string) (*export.Preview, error) {
	params := r.values()
	setIf(params, "siren", siren)
	var result export.Preview
	if err := c.get(ctx, "/api/v1/exports/fec/preview?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FEC streams the export file into w and returns the file name the server
// gave it.
func (c *Client) FEC(ctx context.Context, r Range, siren string, w io.Writer) (string, error) {
	params := r.values()
	setIf(params, "siren", siren)
	return c.download(ctx, "/api/v1/exports/fec?"+params.Encode(), w)
}

func (c *Client) CA3(ctx context.Context, r Range) ([]ca3.Declaration, error) {
	var result []ca3.Declaration
	if err := c.get(ctx, "/api/v1/exports/ca3?"+r.values().Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CA3Text(ctx context.Context, r Range, w io.Writer) (string, error) {
	params := r.values()
	params.Set("format", "text")
	return c.download(ctx, "/api/v1/exports/ca3?"+params.Encode(), w)
}

// CSV downloads one of the working reports ("grand-livre", "balance",
// "lettrage", "immobilisations") as CSV into w.
func (c *Client) CSV(ctx context.Context, report string, params url.Values, w io.Writer) (string, error) {
	path := "/api/v1/exports/csv/" + url.PathEscape(report)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.download(ctx, path, w)
}

// Ping checks if the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/chart", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	_, err := c.send(ctx, http.MethodGet, path, nil, result)
	return err
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	_, err := c.send(ctx, http.MethodPost, path, body, result)
	return err
}

func (c *Client) put(ctx context.Context, path string, body any, result any) error {
	_, err := c.send(ctx, http.MethodPut, path, body, result)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body any, result any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doRequest(req, result)
}

func (c *Client) download(ctx context.Context, path string, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", apiErrorFrom(resp.StatusCode, bodyBytes)
	}
	var name string
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return name, nil
}

type apiError struct {
	Error string `json:"error"`
}

// StatusError is returned for any response with a 4xx or 5xx status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

func apiErrorFrom(status int, body []byte) error {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return &StatusError{Status: status, Message: apiErr.Error}
	}
	return &StatusError{Status: status, Message: string(body)}
}

func (c *Client) doRequest(req *http.Request, result any) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, apiErrorFrom(resp.StatusCode, bodyBytes)
	}

	if result != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
