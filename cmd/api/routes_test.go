package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cashit/internal/domain/bankaccount"
	"cashit/internal/domain/banksync"
	"cashit/internal/domain/expense"
	httphandlers "cashit/internal/interfaces/http"
	"cashit/internal/shared/auth"
	"cashit/internal/shared/config"
)

func testDependencies() *Dependencies {
	accountService := bankaccount.NewService(nil)
	syncService := banksync.NewService(nil, nil, nil, 1)
	expenseService := expense.NewService(nil)

	return &Dependencies{
		BankAccountHandler: httphandlers.NewBankAccountHandler(accountService, syncService),
		ExpenseHandler:     httphandlers.NewExpenseHandler(expenseService),
		RequisitionHandler: httphandlers.NewRequisitionHandler(nil, nil, ""),
		JWT:                auth.NewJWT("test-secret"),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AllowedHosts: []string{"localhost"},
		},
	}
}

func TestSetupRoutes_HealthIsPublic(t *testing.T) {
	handler := SetupRoutes(testDependencies(), testConfig())

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestSetupRoutes_ProtectedRoutesRequireAuth(t *testing.T) {
	handler := SetupRoutes(testDependencies(), testConfig())

	paths := []string{
		"/api/bank-accounts",
		"/api/expenses",
		"/api/institutions",
	}

	for _, path := range paths {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401 for %s without token, got %d", path, rr.Code)
		}
	}
}
