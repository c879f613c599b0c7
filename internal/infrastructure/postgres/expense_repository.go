package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cashit/internal/domain/expense"
)

// ExpenseRepository implements expense.Repository for PostgreSQL
type ExpenseRepository struct {
	db *DB
}

// NewExpenseRepository creates a new PostgreSQL expense repository
func NewExpenseRepository(db *DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, submitter_id, group_id, name, description, amount, status, created_at, updated_at`

// Create stores a new expense
func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	query := `
		INSERT INTO expenses (id, submitter_id, group_id, name, description, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.SubmitterID, e.GroupID, e.Name, e.Description, e.Amount, e.Status, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by its id
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	e, err := scanExpenseRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, expense.ErrExpenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// ListBySubmitter retrieves all expenses submitted by one member
func (r *ExpenseRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]*expense.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE submitter_id = $1 ORDER BY created_at DESC`
	return r.listExpenses(ctx, query, submitterID)
}

// ListAll retrieves every expense, newest first
func (r *ExpenseRepository) ListAll(ctx context.Context) ([]*expense.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses ORDER BY created_at DESC`
	return r.listExpenses(ctx, query)
}

// UpdateStatus sets the status of an expense
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE expenses SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update expense status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update expense status: %w", err)
	}
	if affected == 0 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

func (r *ExpenseRepository) listExpenses(ctx context.Context, query string, args ...any) ([]*expense.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*expense.Expense
	for rows.Next() {
		e, err := scanExpenseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

func scanExpenseRow(row scanner) (*expense.Expense, error) {
	var e expense.Expense
	var description sql.NullString

	err := row.Scan(&e.ID, &e.SubmitterID, &e.GroupID, &e.Name, &description,
		&e.Amount, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Description = description.String
	return &e, nil
}
