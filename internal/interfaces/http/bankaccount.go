package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"cashit/internal/domain/bankaccount"
	"cashit/internal/domain/banksync"
	"cashit/internal/shared/middleware"
)

// BankAccountHandler exposes the bank account registry and the sync operations
type BankAccountHandler struct {
	accountService *bankaccount.Service
	syncService    *banksync.Service
}

// NewBankAccountHandler creates a new bank account handler
func NewBankAccountHandler(accountService *bankaccount.Service, syncService *banksync.Service) *BankAccountHandler {
	return &BankAccountHandler{accountService: accountService, syncService: syncService}
}

// HTTP request/response types (transport layer concerns)
type CreateBankAccountRequest struct {
	GoCardlessID string   `json:"goCardlessId"`
	Name         string   `json:"name"`
	IBAN         string   `json:"iban"`
	AccessGroups []string `json:"accessGroups"`
}

type UpdateAccessGroupsRequest struct {
	AccessGroups []string `json:"accessGroups"`
}

// RefreshResultResponse summarizes a batch refresh for the caller
type RefreshResultResponse struct {
	Accounts  int      `json:"accounts"`
	Refreshed int      `json:"refreshed"`
	Failed    []string `json:"failed,omitempty"`
}

// caller pulls the authenticated member identity from the request context
type caller struct {
	UserID    string
	Groups    []string
	Treasurer bool
}

func callerFromRequest(r *http.Request) (caller, bool) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		return caller{}, false
	}
	groups, _ := r.Context().Value(middleware.GroupsKey).([]string)
	treasurer, _ := r.Context().Value(middleware.TreasurerKey).(bool)
	return caller{UserID: userID, Groups: groups, Treasurer: treasurer}, true
}

// HandleBankAccounts handles the collection routes (GET list, POST register)
func (h *BankAccountHandler) HandleBankAccounts(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r, c)
	case http.MethodPost:
		h.handleRegister(w, r, c)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BankAccountHandler) handleList(w http.ResponseWriter, r *http.Request, c caller) {
	accounts, err := h.accountService.ListAccounts(r.Context(), c.Groups, c.Treasurer)
	if err != nil {
		log.Printf("Error listing bank accounts: %v", err)
		http.Error(w, "Failed to list bank accounts", http.StatusInternalServerError)
		return
	}

	if accounts == nil {
		accounts = []*bankaccount.Account{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

func (h *BankAccountHandler) handleRegister(w http.ResponseWriter, r *http.Request, c caller) {
	if !c.Treasurer {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req CreateBankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.accountService.RegisterAccount(r.Context(), bankaccount.CreateParams{
		GoCardlessID: req.GoCardlessID,
		Name:         req.Name,
		IBAN:         req.IBAN,
		AccessGroups: req.AccessGroups,
	})
	if err != nil {
		switch {
		case errors.Is(err, bankaccount.ErrDuplicateAccount):
			http.Error(w, "Account already registered", http.StatusConflict)
		case errors.Is(err, bankaccount.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Error registering bank account: %v", err)
			http.Error(w, "Failed to register bank account", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

// HandleBankAccountByID handles operations on a specific account (GET and DELETE)
func (h *BankAccountHandler) HandleBankAccountByID(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, c, id)
	case http.MethodDelete:
		h.handleDelete(w, r, c, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BankAccountHandler) handleGet(w http.ResponseWriter, r *http.Request, c caller, id int64) {
	account, err := h.accountService.GetAccount(r.Context(), id, c.Groups, c.Treasurer)
	if err != nil {
		switch {
		case errors.Is(err, bankaccount.ErrAccountNotFound):
			http.Error(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, bankaccount.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			log.Printf("Error getting bank account %d: %v", id, err)
			http.Error(w, "Failed to get bank account", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

func (h *BankAccountHandler) handleDelete(w http.ResponseWriter, r *http.Request, c caller, id int64) {
	if !c.Treasurer {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), id); err != nil {
		if errors.Is(err, bankaccount.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting bank account %d: %v", id, err)
		http.Error(w, "Failed to delete bank account", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAccessGroups replaces the super-group list that may view an account
func (h *BankAccountHandler) HandleAccessGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !c.Treasurer {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	id, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	var req UpdateAccessGroupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.accountService.SetAccessGroups(r.Context(), id, req.AccessGroups); err != nil {
		if errors.Is(err, bankaccount.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("Error updating access groups for account %d: %v", id, err)
		http.Error(w, "Failed to update access groups", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleTransactions lists the stored transactions of one account
func (h *BankAccountHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	transactions, err := h.accountService.ListTransactions(r.Context(), id, c.Groups, c.Treasurer)
	if err != nil {
		switch {
		case errors.Is(err, bankaccount.ErrAccountNotFound):
			http.Error(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, bankaccount.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			log.Printf("Error listing transactions for account %d: %v", id, err)
			http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		}
		return
	}

	if transactions == nil {
		transactions = []*bankaccount.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// HandleRefresh triggers a provider sync for one account
func (h *BankAccountHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !c.Treasurer {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	id, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.syncService.Refresh(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, bankaccount.ErrAccountNotFound):
			http.Error(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, banksync.ErrIncompleteBalanceData):
			http.Error(w, "Provider returned incomplete balance data", http.StatusBadGateway)
		default:
			log.Printf("Error refreshing account %d: %v", id, err)
			http.Error(w, "Failed to refresh account", http.StatusBadGateway)
		}
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), id, c.Groups, c.Treasurer)
	if err != nil {
		log.Printf("Error reloading account %d after refresh: %v", id, err)
		http.Error(w, "Failed to load refreshed account", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// HandleRefreshAll triggers a provider sync for every registered account
func (h *BankAccountHandler) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !c.Treasurer {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	result, err := h.syncService.RefreshAll(r.Context())
	if err != nil {
		log.Printf("Error refreshing all accounts: %v", err)
		http.Error(w, "Failed to refresh accounts", http.StatusBadGateway)
		return
	}

	resp := RefreshResultResponse{Accounts: result.Accounts, Refreshed: result.Refreshed}
	for _, accErr := range result.Errors {
		resp.Failed = append(resp.Failed, accErr.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func accountIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
