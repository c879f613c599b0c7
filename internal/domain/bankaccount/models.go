package bankaccount

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrAccountNotFound  = errors.New("bank account not found")
	ErrDuplicateAccount = errors.New("bank account already registered")
	ErrForbidden        = errors.New("access forbidden")
	ErrInvalidInput     = errors.New("invalid input")
)

// Account represents one external bank account known to the system.
// Balances are a point-in-time snapshot of the provider's most recent
// values, not a historical ledger.
type Account struct {
	ID               int64           `json:"id"`
	GoCardlessID     string          `json:"goCardlessId"`
	Name             string          `json:"name"`
	IBAN             string          `json:"iban"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	BookedBalance    decimal.Decimal `json:"bookedBalance"`
	RefreshedAt      *time.Time      `json:"refreshedAt"`
	AccessGroups     []string        `json:"accessGroups"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// VisibleTo reports whether an account can be viewed by a caller holding the
// given super-group identifiers.
func (a *Account) VisibleTo(groups []string) bool {
	for _, g := range groups {
		for _, allowed := range a.AccessGroups {
			if g == allowed {
				return true
			}
		}
	}
	return false
}

// Transaction is one line item belonging to an account. The full set for an
// account is replaced on every refresh, so only GoCardlessID is stable
// across refreshes.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"accountId"`
	GoCardlessID string          `json:"goCardlessId"`
	Amount       decimal.Decimal `json:"amount"`
	BookingDate  *time.Time      `json:"bookingDate"`
	ValueDate    *time.Time      `json:"valueDate"`
	Reference    string          `json:"reference"`
	Type         string          `json:"type"`
}

// CreateParams contains parameters for registering a new bank account
type CreateParams struct {
	GoCardlessID string
	Name         string
	IBAN         string
	AccessGroups []string
}

// Validate validates the create parameters
func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.GoCardlessID) == "" {
		return errors.New("provider account id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("account name is required")
	}
	return nil
}

// BalanceUpdate carries the balance snapshot written together with a
// transaction replacement.
type BalanceUpdate struct {
	Available   decimal.Decimal
	Booked      decimal.Decimal
	RefreshedAt time.Time
}

// TransactionParams contains one mapped provider transaction for insertion
type TransactionParams struct {
	GoCardlessID string
	Amount       decimal.Decimal
	BookingDate  *time.Time
	ValueDate    *time.Time
	Reference    string
	Type         string
}
