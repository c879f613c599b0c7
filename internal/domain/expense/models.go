package expense

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Expense statuses
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusPaid     = "PAID"
)

// Domain errors
var (
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrForbidden         = errors.New("access forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNonPositiveAmount = errors.New("expense amount must be positive")
)

// allowedTransitions maps a current status to the statuses a treasurer may
// move it to.
var allowedTransitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPaid, StatusRejected},
}

// Expense represents a member's reimbursement claim
type Expense struct {
	ID          string          `json:"id"`
	SubmitterID string          `json:"submitterId"`
	GroupID     string          `json:"groupId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateParams contains parameters for submitting a new expense
type CreateParams struct {
	SubmitterID string
	GroupID     string
	Name        string
	Description string
	Amount      decimal.Decimal
}

// Validate validates the create parameters
func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.SubmitterID) == "" {
		return errors.New("submitter id is required")
	}
	if strings.TrimSpace(p.GroupID) == "" {
		return errors.New("group id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("expense name is required")
	}
	if !p.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// CanTransition reports whether a move from the current status to target is
// allowed.
func CanTransition(current, target string) bool {
	for _, t := range allowedTransitions[current] {
		if t == target {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known expense status
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPaid:
		return true
	}
	return false
}
