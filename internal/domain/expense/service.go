package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service contains the business logic for expense handling
type Service struct {
	repo Repository
}

// NewService creates a new expense service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit creates a new pending expense for a member
func (s *Service) Submit(ctx context.Context, params CreateParams) (*Expense, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	now := time.Now()
	e := &Expense{
		ID:          uuid.NewString(),
		SubmitterID: params.SubmitterID,
		GroupID:     params.GroupID,
		Name:        params.Name,
		Description: params.Description,
		Amount:      params.Amount,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get retrieves an expense. Members see only their own; treasurers see all.
func (s *Service) Get(ctx context.Context, id, callerID string, treasurer bool) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !treasurer && e.SubmitterID != callerID {
		return nil, ErrForbidden
	}
	return e, nil
}

// List returns the expenses visible to the caller
func (s *Service) List(ctx context.Context, callerID string, treasurer bool) ([]*Expense, error) {
	if treasurer {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListBySubmitter(ctx, callerID)
}

// SetStatus moves an expense through its approval lifecycle. Only treasurers
// may change status, and only along the allowed transitions.
func (s *Service) SetStatus(ctx context.Context, id, target string, treasurer bool) (*Expense, error) {
	if !treasurer {
		return nil, ErrForbidden
	}
	if !IsValidStatus(target) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, target)
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(e.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, target)
	}

	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return nil, err
	}

	e.Status = target
	return e, nil
}
