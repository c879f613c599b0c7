package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"cashit/internal/domain/bankaccount"
)

// BankAccountRepository implements bankaccount.Repository for PostgreSQL
type BankAccountRepository struct {
	db *DB
}

// NewBankAccountRepository creates a new PostgreSQL bank account repository
func NewBankAccountRepository(db *DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

const accountColumns = `id, gocardless_id, name, iban, available_balance, booked_balance, refreshed_at, access_groups, created_at, updated_at`

// Create registers a new bank account
func (r *BankAccountRepository) Create(ctx context.Context, params bankaccount.CreateParams) (*bankaccount.Account, error) {
	query := `
		INSERT INTO bank_accounts (gocardless_id, name, iban, access_groups)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + accountColumns

	row := r.db.QueryRowContext(ctx, query,
		params.GoCardlessID, params.Name, params.IBAN, pq.Array(params.AccessGroups))

	acc, err := scanAccountRow(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, bankaccount.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}
	return acc, nil
}

// GetByID retrieves an account by its internal id
func (r *BankAccountRepository) GetByID(ctx context.Context, id int64) (*bankaccount.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE id = $1`

	acc, err := scanAccountRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankaccount.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return acc, nil
}

// List retrieves all registered accounts
func (r *BankAccountRepository) List(ctx context.Context) ([]*bankaccount.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*bankaccount.Account
	for rows.Next() {
		acc, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	return accounts, nil
}

// Delete removes an account; its transactions go with it via ON DELETE CASCADE
func (r *BankAccountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bank account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete bank account: %w", err)
	}
	if affected == 0 {
		return bankaccount.ErrAccountNotFound
	}
	return nil
}

// UpdateAccessGroups replaces the super-group list granted view access
func (r *BankAccountRepository) UpdateAccessGroups(ctx context.Context, id int64, groups []string) error {
	query := `
		UPDATE bank_accounts
		SET access_groups = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, pq.Array(groups), id)
	if err != nil {
		return fmt.Errorf("failed to update access groups: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update access groups: %w", err)
	}
	if affected == 0 {
		return bankaccount.ErrAccountNotFound
	}
	return nil
}

// ListTransactions retrieves all transactions for an account, newest first
func (r *BankAccountRepository) ListTransactions(ctx context.Context, accountID int64) ([]*bankaccount.Transaction, error) {
	query := `
		SELECT id, account_id, gocardless_id, amount, booking_date, value_date, reference, type
		FROM bank_account_transactions
		WHERE account_id = $1
		ORDER BY booking_date DESC NULLS LAST, id`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*bankaccount.Transaction
	for rows.Next() {
		var tx bankaccount.Transaction
		var bookingDate, valueDate sql.NullTime
		var reference, txType sql.NullString

		err := rows.Scan(&tx.ID, &tx.AccountID, &tx.GoCardlessID, &tx.Amount,
			&bookingDate, &valueDate, &reference, &txType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if bookingDate.Valid {
			tx.BookingDate = &bookingDate.Time
		}
		if valueDate.Valid {
			tx.ValueDate = &valueDate.Time
		}
		tx.Reference = reference.String
		tx.Type = txType.String

		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// ReplaceTransactions updates the balance snapshot and swaps the account's
// whole transaction set inside one database transaction. Delete runs before
// insert so a partially failed insert can never leave duplicate rows.
func (r *BankAccountRepository) ReplaceTransactions(ctx context.Context, accountID int64, update bankaccount.BalanceUpdate, transactions []bankaccount.TransactionParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE bank_accounts
		SET available_balance = $1, booked_balance = $2, refreshed_at = $3, updated_at = NOW()
		WHERE id = $4`,
		update.Available, update.Booked, update.RefreshedAt, accountID)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	if affected == 0 {
		return bankaccount.ErrAccountNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bank_account_transactions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete old transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bank_account_transactions (account_id, gocardless_id, amount, booking_date, value_date, reference, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range transactions {
		_, err := stmt.ExecContext(ctx, accountID, t.GoCardlessID, t.Amount,
			nullTime(t.BookingDate), nullTime(t.ValueDate), t.Reference, t.Type)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.GoCardlessID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refresh: %w", err)
	}
	return nil
}

// scanner covers *sql.Rows and the traced row wrapper
type scanner interface {
	Scan(dest ...any) error
}

func scanAccountRow(row scanner) (*bankaccount.Account, error) {
	var acc bankaccount.Account
	var iban sql.NullString
	var refreshedAt sql.NullTime
	var groups pq.StringArray

	err := row.Scan(&acc.ID, &acc.GoCardlessID, &acc.Name, &iban,
		&acc.AvailableBalance, &acc.BookedBalance, &refreshedAt, &groups,
		&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	acc.IBAN = iban.String
	if refreshedAt.Valid {
		acc.RefreshedAt = &refreshedAt.Time
	}
	acc.AccessGroups = groups

	return &acc, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
