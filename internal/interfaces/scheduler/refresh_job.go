package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"cashit/internal/domain/bankaccount"
	"cashit/internal/domain/banksync"
)

// AccountRefreshJob implements the Job interface for refreshing one bank
// account's balances and transactions from the provider.
type AccountRefreshJob struct {
	accountID   int64
	name        string
	syncService *banksync.Service
}

// NewAccountRefreshJob creates a new refresh job for one account
func NewAccountRefreshJob(accountID int64, name string, syncService *banksync.Service) *AccountRefreshJob {
	return &AccountRefreshJob{
		accountID:   accountID,
		name:        name,
		syncService: syncService,
	}
}

// Execute runs the refresh job
func (j *AccountRefreshJob) Execute(ctx context.Context) error {
	log.Printf("Starting refresh for account %d (%s)", j.accountID, j.name)

	if err := j.syncService.Refresh(ctx, j.accountID); err != nil {
		log.Printf("Refresh failed for account %d (%s): %v", j.accountID, j.name, err)
		return fmt.Errorf("refresh failed: %w", err)
	}

	return nil
}

// AccountID returns the bank account id associated with this job
func (j *AccountRefreshJob) AccountID() string {
	return strconv.FormatInt(j.accountID, 10)
}

// Description returns a human-readable description of the job
func (j *AccountRefreshJob) Description() string {
	return fmt.Sprintf("Balance and transaction refresh for account %q", j.name)
}

// RefreshJobProvider builds one refresh job per registered account. Used as
// the scheduler's job provider so a failing account only fails its own job.
func RefreshJobProvider(repo bankaccount.Repository, syncService *banksync.Service) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		accounts, err := repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}

		jobs := make([]Job, 0, len(accounts))
		for _, account := range accounts {
			jobs = append(jobs, NewAccountRefreshJob(account.ID, account.Name, syncService))
		}
		return jobs, nil
	}
}
