package expense

import "context"

// Repository defines the interface for expense data access
type Repository interface {
	// Create stores a new expense
	Create(ctx context.Context, e *Expense) error

	// GetByID retrieves an expense by its id
	GetByID(ctx context.Context, id string) (*Expense, error)

	// ListBySubmitter retrieves all expenses submitted by one member
	ListBySubmitter(ctx context.Context, submitterID string) ([]*Expense, error)

	// ListAll retrieves every expense, newest first
	ListAll(ctx context.Context) ([]*Expense, error)

	// UpdateStatus sets the status of an expense
	UpdateStatus(ctx context.Context, id, status string) error
}
