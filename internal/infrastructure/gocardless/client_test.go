package gocardless

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient()
	client.baseURL = srv.URL
	return client, srv
}

func TestBalances(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/gc-acc-1/balances/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"balances": [
				{"balanceAmount": {"amount": "657.49", "currency": "SEK"}, "balanceType": "interimAvailable"},
				{"balanceAmount": {"amount": "650.00", "currency": "SEK"}, "balanceType": "interimBooked"}
			]
		}`))
	}))
	defer srv.Close()

	resp, err := client.Balances(context.Background(), "tok", "gc-acc-1")
	if err != nil {
		t.Fatalf("Balances() error: %v", err)
	}

	available, ok := resp.FindByType("interimAvailable")
	if !ok {
		t.Fatal("interimAvailable missing from parsed response")
	}
	amount, err := available.GetAmount()
	if err != nil {
		t.Fatalf("GetAmount() error: %v", err)
	}
	if amount.String() != "657.49" {
		t.Errorf("amount = %s, want 657.49", amount)
	}

	if _, ok := resp.FindByType("closingBooked"); ok {
		t.Error("FindByType returned a balance type not in the response")
	}
}

func TestTransactions(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/gc-acc-1/transactions/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"transactions": {
				"booked": [
					{
						"internalTransactionId": "tx-1",
						"transactionAmount": {"amount": "-125.50", "currency": "SEK"},
						"bookingDate": "2025-05-27",
						"valueDate": "2025-05-28",
						"remittanceInformationUnstructured": "Pizza for the board meeting",
						"remittanceInformationStructured": "CARD PURCHASE"
					}
				],
				"pending": [
					{
						"internalTransactionId": "tx-2",
						"transactionAmount": {"amount": "300.00", "currency": "SEK"}
					}
				]
			}
		}`))
	}))
	defer srv.Close()

	resp, err := client.Transactions(context.Background(), "tok", "gc-acc-1")
	if err != nil {
		t.Fatalf("Transactions() error: %v", err)
	}

	if len(resp.Transactions.Booked) != 1 || len(resp.Transactions.Pending) != 1 {
		t.Fatalf("got %d booked, %d pending; want 1 and 1",
			len(resp.Transactions.Booked), len(resp.Transactions.Pending))
	}

	booked := resp.Transactions.Booked[0]
	amount, err := booked.GetAmount()
	if err != nil {
		t.Fatalf("GetAmount() error: %v", err)
	}
	if amount.String() != "-125.5" {
		t.Errorf("amount = %s, want -125.5", amount)
	}

	bookingDate, err := booked.GetBookingDate()
	if err != nil {
		t.Fatalf("GetBookingDate() error: %v", err)
	}
	if bookingDate == nil || bookingDate.Format("2006-01-02") != "2025-05-27" {
		t.Errorf("bookingDate = %v, want 2025-05-27", bookingDate)
	}

	// Pending transactions commonly omit dates
	pending := resp.Transactions.Pending[0]
	date, err := pending.GetBookingDate()
	if err != nil {
		t.Fatalf("GetBookingDate() error: %v", err)
	}
	if date != nil {
		t.Errorf("expected nil booking date for pending transaction, got %v", date)
	}
}

func TestNewToken(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token/new/" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access": "a", "access_expires": 86400, "refresh": "r", "refresh_expires": 2592000}`))
	}))
	defer srv.Close()

	resp, err := client.NewToken(context.Background(), "id", "key")
	if err != nil {
		t.Fatalf("NewToken() error: %v", err)
	}
	if resp.Access != "a" || resp.AccessExpires != 86400 || resp.Refresh != "r" || resp.RefreshExpires != 2592000 {
		t.Errorf("unexpected token response: %+v", resp)
	}
}

func TestRequestErrorCarriesBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail": "rate limit exceeded"}`))
	}))
	defer srv.Close()

	_, err := client.Balances(context.Background(), "tok", "gc-acc-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T: %v", err, err)
	}
	if reqErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", reqErr.Status)
	}
	if reqErr.Body != `{"detail": "rate limit exceeded"}` {
		t.Errorf("body = %q", reqErr.Body)
	}
}
