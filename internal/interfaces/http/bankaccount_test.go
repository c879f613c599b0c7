package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"cashit/internal/domain/bankaccount"
	"cashit/internal/domain/banksync"
	"cashit/internal/infrastructure/gocardless"
	"cashit/internal/shared/middleware"
)

// MockBankAccountRepo implements bankaccount.Repository for testing
type MockBankAccountRepo struct {
	CreateFunc              func(ctx context.Context, params bankaccount.CreateParams) (*bankaccount.Account, error)
	GetByIDFunc             func(ctx context.Context, id int64) (*bankaccount.Account, error)
	ListFunc                func(ctx context.Context) ([]*bankaccount.Account, error)
	DeleteFunc              func(ctx context.Context, id int64) error
	UpdateAccessGroupsFunc  func(ctx context.Context, id int64, groups []string) error
	ListTransactionsFunc    func(ctx context.Context, accountID int64) ([]*bankaccount.Transaction, error)
	ReplaceTransactionsFunc func(ctx context.Context, accountID int64, update bankaccount.BalanceUpdate, transactions []bankaccount.TransactionParams) error
}

func (m *MockBankAccountRepo) Create(ctx context.Context, params bankaccount.CreateParams) (*bankaccount.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockBankAccountRepo) GetByID(ctx context.Context, id int64) (*bankaccount.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, bankaccount.ErrAccountNotFound
}

func (m *MockBankAccountRepo) List(ctx context.Context) ([]*bankaccount.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockBankAccountRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockBankAccountRepo) UpdateAccessGroups(ctx context.Context, id int64, groups []string) error {
	if m.UpdateAccessGroupsFunc != nil {
		return m.UpdateAccessGroupsFunc(ctx, id, groups)
	}
	return nil
}

func (m *MockBankAccountRepo) ListTransactions(ctx context.Context, accountID int64) ([]*bankaccount.Transaction, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockBankAccountRepo) ReplaceTransactions(ctx context.Context, accountID int64, update bankaccount.BalanceUpdate, transactions []bankaccount.TransactionParams) error {
	if m.ReplaceTransactionsFunc != nil {
		return m.ReplaceTransactionsFunc(ctx, accountID, update, transactions)
	}
	return nil
}

// MockProvider implements gocardless.ClientInterface for testing
type MockProvider struct {
	BalancesFunc     func(ctx context.Context, token, accountID string) (*gocardless.BalancesResponse, error)
	TransactionsFunc func(ctx context.Context, token, accountID string) (*gocardless.TransactionsResponse, error)
}

func (m *MockProvider) NewToken(ctx context.Context, secretID, secretKey string) (*gocardless.TokenResponse, error) {
	return nil, errors.New("unexpected NewToken call")
}

func (m *MockProvider) RefreshToken(ctx context.Context, refresh string) (*gocardless.RefreshResponse, error) {
	return nil, errors.New("unexpected RefreshToken call")
}

func (m *MockProvider) Balances(ctx context.Context, token, accountID string) (*gocardless.BalancesResponse, error) {
	if m.BalancesFunc != nil {
		return m.BalancesFunc(ctx, token, accountID)
	}
	return nil, errors.New("unexpected Balances call")
}

func (m *MockProvider) Transactions(ctx context.Context, token, accountID string) (*gocardless.TransactionsResponse, error) {
	if m.TransactionsFunc != nil {
		return m.TransactionsFunc(ctx, token, accountID)
	}
	return nil, errors.New("unexpected Transactions call")
}

func (m *MockProvider) CreateRequisition(ctx context.Context, token string, params gocardless.RequisitionParams) (*gocardless.Requisition, error) {
	return nil, errors.New("unexpected CreateRequisition call")
}

func (m *MockProvider) GetRequisition(ctx context.Context, token, id string) (*gocardless.Requisition, error) {
	return nil, errors.New("unexpected GetRequisition call")
}

func (m *MockProvider) Institutions(ctx context.Context, token, country string) ([]gocardless.Institution, error) {
	return nil, errors.New("unexpected Institutions call")
}

type staticTokenSource struct{ token string }

func (s staticTokenSource) Token(ctx context.Context) (string, error) {
	return s.token, nil
}

func withCaller(req *http.Request, userID string, groups []string, treasurer bool) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.GroupsKey, groups)
	ctx = context.WithValue(ctx, middleware.TreasurerKey, treasurer)
	return req.WithContext(ctx)
}

func newBankAccountHandler(repo bankaccount.Repository, provider gocardless.ClientInterface) *BankAccountHandler {
	accountService := bankaccount.NewService(repo)
	syncService := banksync.NewService(provider, staticTokenSource{token: "test-token"}, repo, 2)
	return NewBankAccountHandler(accountService, syncService)
}

func TestHandleBankAccounts_List(t *testing.T) {
	accounts := []*bankaccount.Account{
		{ID: 1, Name: "Main", AccessGroups: []string{"board"}},
		{ID: 2, Name: "Events", AccessGroups: []string{"events"}},
	}

	tests := []struct {
		name           string
		groups         []string
		treasurer      bool
		mockRepo       func() *MockBankAccountRepo
		expectedStatus int
		expectedLen    int
	}{
		{
			name:      "Treasurer Sees All",
			treasurer: true,
			mockRepo: func() *MockBankAccountRepo {
				return &MockBankAccountRepo{
					ListFunc: func(ctx context.Context) ([]*bankaccount.Account, error) {
						return accounts, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
			expectedLen:    2,
		},
		{
			name:   "Member Sees Own Groups Only",
			groups: []string{"events"},
			mockRepo: func() *MockBankAccountRepo {
				return &MockBankAccountRepo{
					ListFunc: func(ctx context.Context) ([]*bankaccount.Account, error) {
						return accounts, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
			expectedLen:    1,
		},
		{
			name: "Repository Error",
			mockRepo: func() *MockBankAccountRepo {
				return &MockBankAccountRepo{
					ListFunc: func(ctx context.Context) ([]*bankaccount.Account, error) {
						return nil, errors.New("db error")
					},
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newBankAccountHandler(tt.mockRepo(), &MockProvider{})

			req, _ := http.NewRequest(http.MethodGet, "/api/bank-accounts", nil)
			req = withCaller(req, "u-1", tt.groups, tt.treasurer)

			rr := httptest.NewRecorder()
			handler.HandleBankAccounts(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}

			if tt.expectedStatus == http.StatusOK {
				var got []*bankaccount.Account
				json.NewDecoder(rr.Body).Decode(&got)
				if len(got) != tt.expectedLen {
					t.Errorf("response length = %d, want %d", len(got), tt.expectedLen)
				}
			}
		})
	}
}

func TestHandleBankAccounts_Register(t *testing.T) {
	tests := []struct {
		name           string
		treasurer      bool
		body           map[string]interface{}
		mockRepo       func() *MockBankAccountRepo
		expectedStatus int
	}{
		{
			name:      "Success",
			treasurer: true,
			body: map[string]interface{}{
				"goCardlessId": "gc-abc",
				"name":         "Main",
				"accessGroups": []string{"board"},
			},
			mockRepo: func() *MockBankAccountRepo {
				return &MockBankAccountRepo{
					CreateFunc: func(ctx context.Context, params bankaccount.CreateParams) (*bankaccount.Account, error) {
						return &bankaccount.Account{ID: 1, GoCardlessID: params.GoCardlessID, Name: params.Name}, nil
					},
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Non Treasurer Forbidden",
			body: map[string]interface{}{
				"goCardlessId": "gc-abc",
				"name":         "Main",
			},
			mockRepo:       func() *MockBankAccountRepo { return &MockBankAccountRepo{} },
			expectedStatus: http.StatusForbidden,
		},
		{
			name:      "Missing Name",
			treasurer: true,
			body: map[string]interface{}{
				"goCardlessId": "gc-abc",
			},
			mockRepo:       func() *MockBankAccountRepo { return &MockBankAccountRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "Duplicate Account",
			treasurer: true,
			body: map[string]interface{}{
				"goCardlessId": "gc-abc",
				"name":         "Main",
			},
			mockRepo: func() *MockBankAccountRepo {
				return &MockBankAccountRepo{
					CreateFunc: func(ctx context.Context, params bankaccount.CreateParams) (*bankaccount.Account, error) {
						return nil, bankaccount.ErrDuplicateAccount
					},
				}
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newBankAccountHandler(tt.mockRepo(), &MockProvider{})

			bodyBytes, _ := json.Marshal(tt.body)
			req, _ := http.NewRequest(http.MethodPost, "/api/bank-accounts", bytes.NewBuffer(bodyBytes))
			req = withCaller(req, "u-1", nil, tt.treasurer)

			rr := httptest.NewRecorder()
			handler.HandleBankAccounts(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleBankAccountByID_NotFound(t *testing.T) {
	handler := newBankAccountHandler(&MockBankAccountRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*bankaccount.Account, error) {
			return nil, bankaccount.ErrAccountNotFound
		},
	}, &MockProvider{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bank-accounts/{id}", handler.HandleBankAccountByID)

	req, _ := http.NewRequest(http.MethodGet, "/api/bank-accounts/99", nil)
	req = withCaller(req, "u-1", nil, true)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleBankAccountByID_HiddenFromOtherGroups(t *testing.T) {
	handler := newBankAccountHandler(&MockBankAccountRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*bankaccount.Account, error) {
			return &bankaccount.Account{ID: id, Name: "Main", AccessGroups: []string{"board"}}, nil
		},
	}, &MockProvider{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bank-accounts/{id}", handler.HandleBankAccountByID)

	req, _ := http.NewRequest(http.MethodGet, "/api/bank-accounts/1", nil)
	req = withCaller(req, "u-1", []string{"events"}, false)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestHandleBankAccountByID_Delete(t *testing.T) {
	deleted := false
	handler := newBankAccountHandler(&MockBankAccountRepo{
		DeleteFunc: func(ctx context.Context, id int64) error {
			deleted = true
			return nil
		},
	}, &MockProvider{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bank-accounts/{id}", handler.HandleBankAccountByID)

	req, _ := http.NewRequest(http.MethodDelete, "/api/bank-accounts/1", nil)
	req = withCaller(req, "u-1", nil, true)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !deleted {
		t.Error("expected repository Delete to be called")
	}
}

func TestHandleRefresh_Success(t *testing.T) {
	account := &bankaccount.Account{ID: 1, GoCardlessID: "gc-abc", Name: "Main", AccessGroups: []string{"board"}}

	repo := &MockBankAccountRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*bankaccount.Account, error) {
			return account, nil
		},
		ReplaceTransactionsFunc: func(ctx context.Context, accountID int64, update bankaccount.BalanceUpdate, transactions []bankaccount.TransactionParams) error {
			if !update.Available.Equal(decimal.RequireFromString("657.49")) {
				t.Errorf("available balance = %s, want 657.49", update.Available)
			}
			if len(transactions) != 1 {
				t.Errorf("transaction count = %d, want 1", len(transactions))
			}
			return nil
		},
	}
	provider := &MockProvider{
		BalancesFunc: func(ctx context.Context, token, accountID string) (*gocardless.BalancesResponse, error) {
			return &gocardless.BalancesResponse{Balances: []gocardless.Balance{
				{BalanceAmount: gocardless.BalanceAmount{Amount: "657.49", Currency: "EUR"}, BalanceType: "interimAvailable"},
				{BalanceAmount: gocardless.BalanceAmount{Amount: "650.00", Currency: "EUR"}, BalanceType: "interimBooked"},
			}}, nil
		},
		TransactionsFunc: func(ctx context.Context, token, accountID string) (*gocardless.TransactionsResponse, error) {
			return &gocardless.TransactionsResponse{Transactions: gocardless.TransactionLists{
				Booked: []gocardless.Transaction{
					{InternalTransactionID: "t1", TransactionAmount: gocardless.BalanceAmount{Amount: "-12.30", Currency: "EUR"}, BookingDate: "2025-06-01"},
				},
			}}, nil
		},
	}

	handler := newBankAccountHandler(repo, provider)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bank-accounts/{id}/refresh", handler.HandleRefresh)

	req, _ := http.NewRequest(http.MethodPost, "/api/bank-accounts/1/refresh", nil)
	req = withCaller(req, "u-1", nil, true)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestHandleRefresh_IncompleteBalances(t *testing.T) {
	repo := &MockBankAccountRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*bankaccount.Account, error) {
			return &bankaccount.Account{ID: 1, GoCardlessID: "gc-abc"}, nil
		},
		ReplaceTransactionsFunc: func(ctx context.Context, accountID int64, update bankaccount.BalanceUpdate, transactions []bankaccount.TransactionParams) error {
			t.Error("no write should happen on incomplete balance data")
			return nil
		},
	}
	provider := &MockProvider{
		BalancesFunc: func(ctx context.Context, token, accountID string) (*gocardless.BalancesResponse, error) {
			return &gocardless.BalancesResponse{Balances: []gocardless.Balance{
				{BalanceAmount: gocardless.BalanceAmount{Amount: "657.49", Currency: "EUR"}, BalanceType: "interimAvailable"},
			}}, nil
		},
	}

	handler := newBankAccountHandler(repo, provider)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bank-accounts/{id}/refresh", handler.HandleRefresh)

	req, _ := http.NewRequest(http.MethodPost, "/api/bank-accounts/1/refresh", nil)
	req = withCaller(req, "u-1", nil, true)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
}

func TestHandleRefresh_NonTreasurerForbidden(t *testing.T) {
	handler := newBankAccountHandler(&MockBankAccountRepo{}, &MockProvider{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bank-accounts/{id}/refresh", handler.HandleRefresh)

	req, _ := http.NewRequest(http.MethodPost, "/api/bank-accounts/1/refresh", nil)
	req = withCaller(req, "u-1", []string{"board"}, false)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestHandleRefreshAll_ReportsFailures(t *testing.T) {
	accounts := []*bankaccount.Account{
		{ID: 1, GoCardlessID: "gc-1", Name: "Main"},
		{ID: 2, GoCardlessID: "gc-2", Name: "Events"},
	}

	repo := &MockBankAccountRepo{
		ListFunc: func(ctx context.Context) ([]*bankaccount.Account, error) {
			return accounts, nil
		},
		GetByIDFunc: func(ctx context.Context, id int64) (*bankaccount.Account, error) {
			for _, a := range accounts {
				if a.ID == id {
					return a, nil
				}
			}
			return nil, bankaccount.ErrAccountNotFound
		},
	}
	provider := &MockProvider{
		BalancesFunc: func(ctx context.Context, token, accountID string) (*gocardless.BalancesResponse, error) {
			if accountID == "gc-2" {
				return nil, &gocardless.RequestError{Status: 429}
			}
			return &gocardless.BalancesResponse{Balances: []gocardless.Balance{
				{BalanceAmount: gocardless.BalanceAmount{Amount: "100.00", Currency: "EUR"}, BalanceType: "interimAvailable"},
				{BalanceAmount: gocardless.BalanceAmount{Amount: "100.00", Currency: "EUR"}, BalanceType: "interimBooked"},
			}}, nil
		},
		TransactionsFunc: func(ctx context.Context, token, accountID string) (*gocardless.TransactionsResponse, error) {
			return &gocardless.TransactionsResponse{}, nil
		},
	}

	handler := newBankAccountHandler(repo, provider)

	req, _ := http.NewRequest(http.MethodPost, "/api/bank-accounts/refresh", nil)
	req = withCaller(req, "u-1", nil, true)

	rr := httptest.NewRecorder()
	handler.HandleRefreshAll(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp RefreshResultResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Accounts != 2 {
		t.Errorf("accounts = %d, want 2", resp.Accounts)
	}
	if resp.Refreshed != 1 {
		t.Errorf("refreshed = %d, want 1", resp.Refreshed)
	}
	if len(resp.Failed) != 1 {
		t.Errorf("failed length = %d, want 1", len(resp.Failed))
	}
}
