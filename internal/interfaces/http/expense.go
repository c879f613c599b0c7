package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"cashit/internal/domain/expense"
)

// ExpenseHandler exposes the reimbursement workflow
type ExpenseHandler struct {
	expenseService *expense.Service
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenseService *expense.Service) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

type SubmitExpenseRequest struct {
	GroupID     string          `json:"groupId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type UpdateExpenseStatusRequest struct {
	Status string `json:"status"`
}

// HandleExpenses handles the collection routes (GET list, POST submit)
func (h *ExpenseHandler) HandleExpenses(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r, c)
	case http.MethodPost:
		h.handleSubmit(w, r, c)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ExpenseHandler) handleList(w http.ResponseWriter, r *http.Request, c caller) {
	expenses, err := h.expenseService.List(r.Context(), c.UserID, c.Treasurer)
	if err != nil {
		log.Printf("Error listing expenses for user %s: %v", c.UserID, err)
		http.Error(w, "Failed to list expenses", http.StatusInternalServerError)
		return
	}

	if expenses == nil {
		expenses = []*expense.Expense{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expenses)
}

func (h *ExpenseHandler) handleSubmit(w http.ResponseWriter, r *http.Request, c caller) {
	var req SubmitExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	exp, err := h.expenseService.Submit(r.Context(), expense.CreateParams{
		SubmitterID: c.UserID,
		GroupID:     req.GroupID,
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
	})
	if err != nil {
		if errors.Is(err, expense.ErrInvalidInput) || errors.Is(err, expense.ErrNonPositiveAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error submitting expense for user %s: %v", c.UserID, err)
		http.Error(w, "Failed to submit expense", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(exp)
}

// HandleExpenseByID returns a single expense
func (h *ExpenseHandler) HandleExpenseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Expense ID is required", http.StatusBadRequest)
		return
	}

	exp, err := h.expenseService.Get(r.Context(), id, c.UserID, c.Treasurer)
	if err != nil {
		switch {
		case errors.Is(err, expense.ErrExpenseNotFound):
			http.Error(w, "Expense not found", http.StatusNotFound)
		case errors.Is(err, expense.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			log.Printf("Error getting expense %s: %v", id, err)
			http.Error(w, "Failed to get expense", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exp)
}

// HandleExpenseStatus moves an expense through the approval workflow
func (h *ExpenseHandler) HandleExpenseStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Expense ID is required", http.StatusBadRequest)
		return
	}

	var req UpdateExpenseStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	exp, err := h.expenseService.SetStatus(r.Context(), id, req.Status, c.Treasurer)
	if err != nil {
		switch {
		case errors.Is(err, expense.ErrExpenseNotFound):
			http.Error(w, "Expense not found", http.StatusNotFound)
		case errors.Is(err, expense.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		case errors.Is(err, expense.ErrInvalidTransition), errors.Is(err, expense.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Error updating status of expense %s: %v", id, err)
			http.Error(w, "Failed to update expense status", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exp)
}
