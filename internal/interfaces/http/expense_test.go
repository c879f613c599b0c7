package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cashit/internal/domain/expense"
)

// MockExpenseRepo implements expense.Repository for testing
type MockExpenseRepo struct {
	CreateFunc          func(ctx context.Context, e *expense.Expense) error
	GetByIDFunc         func(ctx context.Context, id string) (*expense.Expense, error)
	ListBySubmitterFunc func(ctx context.Context, submitterID string) ([]*expense.Expense, error)
	ListAllFunc         func(ctx context.Context) ([]*expense.Expense, error)
	UpdateStatusFunc    func(ctx context.Context, id, status string) error
}

func (m *MockExpenseRepo) Create(ctx context.Context, e *expense.Expense) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, e)
	}
	return nil
}

func (m *MockExpenseRepo) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, expense.ErrExpenseNotFound
}

func (m *MockExpenseRepo) ListBySubmitter(ctx context.Context, submitterID string) ([]*expense.Expense, error) {
	if m.ListBySubmitterFunc != nil {
		return m.ListBySubmitterFunc(ctx, submitterID)
	}
	return nil, nil
}

func (m *MockExpenseRepo) ListAll(ctx context.Context) ([]*expense.Expense, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}

func (m *MockExpenseRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func TestHandleExpenses_Submit(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]interface{}
		mockRepo       func() *MockExpenseRepo
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]interface{}{
				"groupId": "events",
				"name":    "Venue deposit",
				"amount":  "120.50",
			},
			mockRepo:       func() *MockExpenseRepo { return &MockExpenseRepo{} },
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Missing Name",
			body: map[string]interface{}{
				"groupId": "events",
				"amount":  "120.50",
			},
			mockRepo:       func() *MockExpenseRepo { return &MockExpenseRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Negative Amount",
			body: map[string]interface{}{
				"groupId": "events",
				"name":    "Venue deposit",
				"amount":  "-5.00",
			},
			mockRepo:       func() *MockExpenseRepo { return &MockExpenseRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Repository Error",
			body: map[string]interface{}{
				"groupId": "events",
				"name":    "Venue deposit",
				"amount":  "120.50",
			},
			mockRepo: func() *MockExpenseRepo {
				return &MockExpenseRepo{
					CreateFunc: func(ctx context.Context, e *expense.Expense) error {
						return errors.New("db error")
					},
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewExpenseHandler(expense.NewService(tt.mockRepo()))

			bodyBytes, _ := json.Marshal(tt.body)
			req, _ := http.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBuffer(bodyBytes))
			req = withCaller(req, "u-1", []string{"events"}, false)

			rr := httptest.NewRecorder()
			handler.HandleExpenses(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}

			if tt.expectedStatus == http.StatusCreated {
				var created expense.Expense
				json.NewDecoder(rr.Body).Decode(&created)
				if created.Status != expense.StatusPending {
					t.Errorf("status = %s, want %s", created.Status, expense.StatusPending)
				}
				if created.SubmitterID != "u-1" {
					t.Errorf("submitterId = %s, want u-1", created.SubmitterID)
				}
			}
		})
	}
}

func TestHandleExpenses_ListScopedToSubmitter(t *testing.T) {
	repo := &MockExpenseRepo{
		ListBySubmitterFunc: func(ctx context.Context, submitterID string) ([]*expense.Expense, error) {
			if submitterID != "u-1" {
				t.Errorf("submitterID = %s, want u-1", submitterID)
			}
			return []*expense.Expense{{ID: "e-1", SubmitterID: submitterID}}, nil
		},
		ListAllFunc: func(ctx context.Context) ([]*expense.Expense, error) {
			t.Error("non-treasurer must not list all expenses")
			return nil, nil
		},
	}

	handler := NewExpenseHandler(expense.NewService(repo))

	req, _ := http.NewRequest(http.MethodGet, "/api/expenses", nil)
	req = withCaller(req, "u-1", nil, false)

	rr := httptest.NewRecorder()
	handler.HandleExpenses(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var got []*expense.Expense
	json.NewDecoder(rr.Body).Decode(&got)
	if len(got) != 1 {
		t.Errorf("response length = %d, want 1", len(got))
	}
}

func TestHandleExpenseStatus(t *testing.T) {
	tests := []struct {
		name           string
		treasurer      bool
		current        string
		target         string
		expectedStatus int
	}{
		{
			name:           "Approve Pending",
			treasurer:      true,
			current:        expense.StatusPending,
			target:         expense.StatusApproved,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Pay Approved",
			treasurer:      true,
			current:        expense.StatusApproved,
			target:         expense.StatusPaid,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid Transition",
			treasurer:      true,
			current:        expense.StatusPaid,
			target:         expense.StatusPending,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Non Treasurer Forbidden",
			treasurer:      false,
			current:        expense.StatusPending,
			target:         expense.StatusApproved,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockExpenseRepo{
				GetByIDFunc: func(ctx context.Context, id string) (*expense.Expense, error) {
					return &expense.Expense{ID: id, Status: tt.current}, nil
				},
			}
			handler := NewExpenseHandler(expense.NewService(repo))

			mux := http.NewServeMux()
			mux.HandleFunc("/api/expenses/{id}/status", handler.HandleExpenseStatus)

			bodyBytes, _ := json.Marshal(map[string]string{"status": tt.target})
			req, _ := http.NewRequest(http.MethodPut, "/api/expenses/e-1/status", bytes.NewBuffer(bodyBytes))
			req = withCaller(req, "u-1", nil, tt.treasurer)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleExpenseByID_OwnershipCheck(t *testing.T) {
	repo := &MockExpenseRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*expense.Expense, error) {
			return &expense.Expense{ID: id, SubmitterID: "u-2"}, nil
		},
	}
	handler := NewExpenseHandler(expense.NewService(repo))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/expenses/{id}", handler.HandleExpenseByID)

	req, _ := http.NewRequest(http.MethodGet, "/api/expenses/e-1", nil)
	req = withCaller(req, "u-1", nil, false)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}
