package main

import (
	"log"

	"cashit/internal/domain/bankaccount"
	"cashit/internal/domain/banksync"
	"cashit/internal/domain/expense"
	"cashit/internal/infrastructure/gocardless"
	"cashit/internal/infrastructure/postgres"
	httphandlers "cashit/internal/interfaces/http"
	"cashit/internal/shared/auth"
	"cashit/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	BankAccountHandler *httphandlers.BankAccountHandler
	ExpenseHandler     *httphandlers.ExpenseHandler
	RequisitionHandler *httphandlers.RequisitionHandler

	// Auth
	JWT *auth.JWT

	// Sync service (for the scheduler)
	SyncService *banksync.Service

	// Repositories (for the scheduler job provider)
	BankAccountRepo *postgres.BankAccountRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize repositories
	bankAccountRepo := postgres.NewBankAccountRepository(db)
	expenseRepo := postgres.NewExpenseRepository(db)

	// Initialize provider client and token manager
	gcClient := gocardless.NewClient()
	tokenManager := gocardless.NewTokenManager(gcClient, cfg.GoCardless.SecretID, cfg.GoCardless.SecretKey)

	// Initialize domain services
	accountService := bankaccount.NewService(bankAccountRepo)
	syncService := banksync.NewService(gcClient, tokenManager, bankAccountRepo, cfg.Sync.MaxParallel)
	expenseService := expense.NewService(expenseRepo)

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	// Initialize handlers
	bankAccountHandler := httphandlers.NewBankAccountHandler(accountService, syncService)
	expenseHandler := httphandlers.NewExpenseHandler(expenseService)
	requisitionHandler := httphandlers.NewRequisitionHandler(gcClient, tokenManager, cfg.GoCardless.RedirectURL)

	return &Dependencies{
		DB:                 db,
		BankAccountHandler: bankAccountHandler,
		ExpenseHandler:     expenseHandler,
		RequisitionHandler: requisitionHandler,
		JWT:                jwt,
		SyncService:        syncService,
		BankAccountRepo:    bankAccountRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
