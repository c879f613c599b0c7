// Package banksync brings locally registered bank accounts up to date with
// the provider: balances and the full booked+pending transaction list.
package banksync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cashit/internal/domain/bankaccount"
	"cashit/internal/infrastructure/gocardless"
)

// ErrIncompleteBalanceData is returned when the provider balance response
// does not contain both expected balance types. The account's refresh aborts
// before any write.
var ErrIncompleteBalanceData = errors.New("incomplete balance data")

// Balance types extracted from the provider response
const (
	balanceTypeAvailable = "interimAvailable"
	balanceTypeBooked    = "interimBooked"
)

// defaultMaxParallel bounds concurrent account refreshes during RefreshAll so
// a large account list cannot overwhelm the provider's rate limits.
const defaultMaxParallel = 4

// AccountError records one account's refresh failure inside a batch
type AccountError struct {
	AccountID int64
	Name      string
	Err       error
}

func (e AccountError) Error() string {
	return fmt.Sprintf("account %d (%s): %v", e.AccountID, e.Name, e.Err)
}

// Result contains the outcome of a RefreshAll batch
type Result struct {
	Accounts  int
	Refreshed int
	Errors    []AccountError
}

// Service refreshes bank account balances and transactions from the provider
type Service struct {
	client      gocardless.ClientInterface
	tokens      gocardless.TokenSource
	repo        bankaccount.Repository
	maxParallel int
}

// NewService creates a new synchronizer. maxParallel bounds the RefreshAll
// fan-out; values below 1 fall back to the default.
func NewService(client gocardless.ClientInterface, tokens gocardless.TokenSource, repo bankaccount.Repository, maxParallel int) *Service {
	if maxParallel < 1 {
		maxParallel = defaultMaxParallel
	}
	return &Service{
		client:      client,
		tokens:      tokens,
		repo:        repo,
		maxParallel: maxParallel,
	}
}

// Refresh brings one account's balance snapshot and transaction set up to
// date with the provider. Within one refresh the ordering is fixed: balance
// fetch, then transaction fetch, then a single storage transaction that
// updates balances and replaces the transaction set.
//
// Every failure is returned to the caller, including storage-write failures.
func (s *Service) Refresh(ctx context.Context, accountID int64) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	balances, err := s.client.Balances(ctx, token, account.GoCardlessID)
	if err != nil {
		return fmt.Errorf("failed to fetch balances: %w", err)
	}

	available, ok := balances.FindByType(balanceTypeAvailable)
	if !ok {
		return fmt.Errorf("%w: %s missing for account %s", ErrIncompleteBalanceData, balanceTypeAvailable, account.GoCardlessID)
	}
	booked, ok := balances.FindByType(balanceTypeBooked)
	if !ok {
		return fmt.Errorf("%w: %s missing for account %s", ErrIncompleteBalanceData, balanceTypeBooked, account.GoCardlessID)
	}

	availableAmount, err := available.GetAmount()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrIncompleteBalanceData, err)
	}
	bookedAmount, err := booked.GetAmount()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrIncompleteBalanceData, err)
	}

	txResp, err := s.client.Transactions(ctx, token, account.GoCardlessID)
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	mapped, err := mapTransactions(txResp)
	if err != nil {
		return err
	}

	update := bankaccount.BalanceUpdate{
		Available:   availableAmount,
		Booked:      bookedAmount,
		RefreshedAt: time.Now(),
	}

	if err := s.repo.ReplaceTransactions(ctx, account.ID, update, mapped); err != nil {
		return fmt.Errorf("failed to store refreshed account data: %w", err)
	}

	log.Printf("Refreshed account %d (%s): %d transactions", account.ID, account.Name, len(mapped))
	return nil
}

// RefreshAll refreshes every registered account with bounded parallelism.
// One account's failure never aborts its siblings; per-account errors are
// collected in the result so callers can report the true outcome.
func (s *Service) RefreshAll(ctx context.Context) (*Result, error) {
	// Force a token check up front so a dead provider credential fails the
	// batch once instead of once per account.
	if _, err := s.tokens.Token(ctx); err != nil {
		return nil, err
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	result := &Result{Accounts: len(accounts)}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.maxParallel)

	for _, account := range accounts {
		g.Go(func() error {
			if err := s.Refresh(ctx, account.ID); err != nil {
				log.Printf("Refresh failed for account %d (%s): %v", account.ID, account.Name, err)
				mu.Lock()
				result.Errors = append(result.Errors, AccountError{AccountID: account.ID, Name: account.Name, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Refreshed++
			mu.Unlock()
			return nil
		})
	}
	// Per-account failures are recorded in result.Errors above; the
	// goroutines themselves always return nil.
	_ = g.Wait()

	log.Printf("Refresh batch complete: %d/%d accounts refreshed, %d errors",
		result.Refreshed, result.Accounts, len(result.Errors))

	return result, nil
}

// mapTransactions converts the provider's booked+pending lists into the
// local shape. Booked entries come first; ordering between the two lists
// carries no meaning since the whole set is replaced.
func mapTransactions(resp *gocardless.TransactionsResponse) ([]bankaccount.TransactionParams, error) {
	all := make([]gocardless.Transaction, 0, len(resp.Transactions.Booked)+len(resp.Transactions.Pending))
	all = append(all, resp.Transactions.Booked...)
	all = append(all, resp.Transactions.Pending...)

	mapped := make([]bankaccount.TransactionParams, 0, len(all))
	for _, tx := range all {
		amount, err := tx.GetAmount()
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.InternalTransactionID, err)
		}
		bookingDate, err := tx.GetBookingDate()
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.InternalTransactionID, err)
		}
		valueDate, err := tx.GetValueDate()
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.InternalTransactionID, err)
		}

		mapped = append(mapped, bankaccount.TransactionParams{
			GoCardlessID: tx.InternalTransactionID,
			Amount:       amount,
			BookingDate:  bookingDate,
			ValueDate:    valueDate,
			Reference:    tx.RemittanceInformationUnstructured,
			Type:         tx.RemittanceInformationStructured,
		})
	}
	return mapped, nil
}
