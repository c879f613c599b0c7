package bankaccount

import "context"

// Repository defines the interface for bank account data access.
// The interface lives in the domain layer; the implementation lives in the
// infrastructure layer.
type Repository interface {
	// Create registers a new bank account
	Create(ctx context.Context, params CreateParams) (*Account, error)

	// GetByID retrieves an account by its internal id
	GetByID(ctx context.Context, id int64) (*Account, error)

	// List retrieves all registered accounts
	List(ctx context.Context) ([]*Account, error)

	// Delete removes an account, cascading to its transactions
	Delete(ctx context.Context, id int64) error

	// UpdateAccessGroups replaces the super-group list granted view access
	UpdateAccessGroups(ctx context.Context, id int64, groups []string) error

	// ListTransactions retrieves all transactions for an account
	ListTransactions(ctx context.Context, accountID int64) ([]*Transaction, error)

	// ReplaceTransactions atomically updates the account's balance snapshot
	// and refreshed-at timestamp, deletes all of its existing transactions,
	// and inserts the given set. Delete-then-insert, in one storage
	// transaction, so a concurrent reader never observes a half-updated set.
	ReplaceTransactions(ctx context.Context, accountID int64, update BalanceUpdate, transactions []TransactionParams) error
}
