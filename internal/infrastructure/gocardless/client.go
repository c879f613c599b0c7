package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	baseURL          = "https://bankaccountdata.gocardless.com/api/v2"
	defaultTimeout   = 60 * time.Second
	tokenNewPath     = "/token/new/"
	tokenRefreshPath = "/token/refresh/"
	requisitionsPath = "/requisitions/"
	institutionsPath = "/institutions/"
)

// Client handles communication with the GoCardless Bank Account Data API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Bank Account Data API client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
	}
}

// RequestError is returned when the provider responds with a non-success
// status. It carries the status code and response body for context.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider request failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("provider request failed with status %d: %s", e.Status, http.StatusText(e.Status))
}

// TokenResponse represents the response from the token login exchange
type TokenResponse struct {
	Access         string `json:"access"`
	AccessExpires  int64  `json:"access_expires"`  // seconds
	Refresh        string `json:"refresh"`
	RefreshExpires int64  `json:"refresh_expires"` // seconds
}

// RefreshResponse represents the response from the token refresh exchange
type RefreshResponse struct {
	Access        string `json:"access"`
	AccessExpires int64  `json:"access_expires"` // seconds
}

// BalancesResponse represents the API response for account balances
type BalancesResponse struct {
	Balances []Balance `json:"balances"`
}

// Balance represents one balance entry for an account
type Balance struct {
	BalanceAmount BalanceAmount `json:"balanceAmount"`
	BalanceType   string        `json:"balanceType"`
	ReferenceDate string        `json:"referenceDate"`
}

// BalanceAmount holds the amount and currency of a balance entry
type BalanceAmount struct {
	Amount   string `json:"amount"` // API returns amounts as strings
	Currency string `json:"currency"`
}

// GetAmount returns the balance amount as a decimal
func (b *Balance) GetAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(b.BalanceAmount.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance amount '%s': %w", b.BalanceAmount.Amount, err)
	}
	return amount, nil
}

// FindByType returns the balance entry with the given balanceType, or false
// when the provider response does not contain it.
func (r *BalancesResponse) FindByType(balanceType string) (*Balance, bool) {
	for i := range r.Balances {
		if r.Balances[i].BalanceType == balanceType {
			return &r.Balances[i], true
		}
	}
	return nil, false
}

// TransactionsResponse represents the API response for account transactions
type TransactionsResponse struct {
	Transactions TransactionLists `json:"transactions"`
}

// TransactionLists splits transactions into booked and pending sets
type TransactionLists struct {
	Booked  []Transaction `json:"booked"`
	Pending []Transaction `json:"pending"`
}

// Transaction represents a transaction from the Bank Account Data API
type Transaction struct {
	InternalTransactionID             string        `json:"internalTransactionId"`
	TransactionAmount                 BalanceAmount `json:"transactionAmount"`
	BookingDate                       string        `json:"bookingDate"` // "2006-01-02", may be empty
	ValueDate                         string        `json:"valueDate"`   // "2006-01-02", may be empty
	RemittanceInformationUnstructured string        `json:"remittanceInformationUnstructured"`
	RemittanceInformationStructured   string        `json:"remittanceInformationStructured"`
}

// GetAmount returns the signed transaction amount as a decimal
func (t *Transaction) GetAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(t.TransactionAmount.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse transaction amount '%s': %w", t.TransactionAmount.Amount, err)
	}
	return amount, nil
}

// GetBookingDate parses and returns the booking date if present
func (t *Transaction) GetBookingDate() (*time.Time, error) {
	return parseProviderDate(t.BookingDate, "bookingDate")
}

// GetValueDate parses and returns the value date if present
func (t *Transaction) GetValueDate() (*time.Time, error) {
	return parseProviderDate(t.ValueDate, "valueDate")
}

func parseProviderDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s '%s': %w", field, s, err)
	}
	return &parsed, nil
}

// Requisition represents a bank-login consent flow at the provider.
// A completed requisition yields the provider account ids that can be
// registered locally.
type Requisition struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Link          string   `json:"link"`
	Reference     string   `json:"reference"`
	InstitutionID string   `json:"institution_id"`
	Accounts      []string `json:"accounts"`
}

// RequisitionParams contains the parameters for creating a new requisition
type RequisitionParams struct {
	Redirect      string `json:"redirect"`
	InstitutionID string `json:"institution_id"`
	Reference     string `json:"reference"`
}

// Institution represents one bank selectable in the consent flow
type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	BIC  string `json:"bic"`
	Logo string `json:"logo"`
}

// NewToken performs a full login exchange with the long-lived application
// credentials, returning a fresh access/refresh token pair.
func (c *Client) NewToken(ctx context.Context, secretID, secretKey string) (*TokenResponse, error) {
	payload := map[string]string{
		"secret_id":  secretID,
		"secret_key": secretKey,
	}

	var resp TokenResponse
	if err := c.post(ctx, "", tokenNewPath, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error) {
	payload := map[string]string{
		"refresh": refresh,
	}

	var resp RefreshResponse
	if err := c.post(ctx, "", tokenRefreshPath, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Balances fetches the current balances for a provider account
func (c *Client) Balances(ctx context.Context, token, accountID string) (*BalancesResponse, error) {
	var resp BalancesResponse
	if err := c.get(ctx, token, "/accounts/"+url.PathEscape(accountID)+"/balances/", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transactions fetches the full booked+pending transaction list for a
// provider account
func (c *Client) Transactions(ctx context.Context, token, accountID string) (*TransactionsResponse, error) {
	var resp TransactionsResponse
	if err := c.get(ctx, token, "/accounts/"+url.PathEscape(accountID)+"/transactions/", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRequisition starts a new consent/link flow at the provider
func (c *Client) CreateRequisition(ctx context.Context, token string, params RequisitionParams) (*Requisition, error) {
	var resp Requisition
	if err := c.post(ctx, token, requisitionsPath, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRequisition fetches the current state of a consent flow
func (c *Client) GetRequisition(ctx context.Context, token, id string) (*Requisition, error) {
	var resp Requisition
	if err := c.get(ctx, token, requisitionsPath+url.PathEscape(id)+"/", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Institutions lists the banks available for the given ISO country code
func (c *Client) Institutions(ctx context.Context, token, country string) ([]Institution, error) {
	var resp []Institution
	if err := c.get(ctx, token, institutionsPath+"?country="+url.QueryEscape(country), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// get performs an authenticated GET request and decodes the response into out
func (c *Client) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, token, out)
}

// post performs a POST request with a JSON body and decodes the response into
// out. An empty token skips bearer auth (the token endpoints authenticate via
// the request body).
func (c *Client) post(ctx context.Context, token, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &RequestError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
