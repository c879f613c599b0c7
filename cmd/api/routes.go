package main

import (
	"log"
	"net/http"

	httphandlers "cashit/internal/interfaces/http"
	"cashit/internal/shared/config"
	"cashit/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// The consent callback is hit by the member's browser coming back from
	// their bank, so it stays outside the auth middleware.
	mux.HandleFunc("/api/requisitions/callback", deps.RequisitionHandler.HandleCallback)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)

	mux.Handle("/api/bank-accounts", authMiddleware(http.HandlerFunc(deps.BankAccountHandler.HandleBankAccounts)))
	mux.Handle("/api/bank-accounts/refresh", authMiddleware(http.HandlerFunc(deps.BankAccountHandler.HandleRefreshAll)))
	mux.Handle("/api/bank-accounts/{id}", authMiddleware(http.HandlerFunc(deps.BankAccountHandler.HandleBankAccountByID)))
	mux.Handle("/api/bank-accounts/{id}/refresh", authMiddleware(http.HandlerFunc(deps.BankAccountHandler.HandleRefresh)))
	mux.Handle("/api/bank-accounts/{id}/groups", authMiddleware(http.HandlerFunc(deps.BankAccountHandler.HandleAccessGroups)))
	mux.Handle("/api/bank-accounts/{id}/transactions", authMiddleware(http.HandlerFunc(deps.BankAccountHandler.HandleTransactions)))
	mux.Handle("/api/expenses", authMiddleware(http.HandlerFunc(deps.ExpenseHandler.HandleExpenses)))
	mux.Handle("/api/expenses/{id}", authMiddleware(http.HandlerFunc(deps.ExpenseHandler.HandleExpenseByID)))
	mux.Handle("/api/expenses/{id}/status", authMiddleware(http.HandlerFunc(deps.ExpenseHandler.HandleExpenseStatus)))
	mux.Handle("/api/requisitions", authMiddleware(http.HandlerFunc(deps.RequisitionHandler.HandleCreateRequisition)))
	mux.Handle("/api/requisitions/{id}", authMiddleware(http.HandlerFunc(deps.RequisitionHandler.HandleGetRequisition)))
	mux.Handle("/api/institutions", authMiddleware(http.HandlerFunc(deps.RequisitionHandler.HandleInstitutions)))

	// Apply global middleware
	handler := middleware.Telemetry(middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux)))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
