package bankaccount

import (
	"context"
	"fmt"
	"strings"
)

// Service contains the business logic for bank account operations
type Service struct {
	repo Repository
}

// NewService creates a new bank account service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterAccount registers a provider account locally. Duplicate provider
// ids are rejected by the unique constraint on goCardlessId.
func (s *Service) RegisterAccount(ctx context.Context, params CreateParams) (*Account, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	params.AccessGroups = normalizeGroups(params.AccessGroups)

	return s.repo.Create(ctx, params)
}

// GetAccount retrieves an account and verifies the caller may view it.
// Treasurers bypass the access-group check.
func (s *Service) GetAccount(ctx context.Context, id int64, groups []string, treasurer bool) (*Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !treasurer && !account.VisibleTo(groups) {
		return nil, ErrForbidden
	}
	return account, nil
}

// ListAccounts retrieves the accounts visible to the caller's groups.
// Treasurers see all accounts.
func (s *Service) ListAccounts(ctx context.Context, groups []string, treasurer bool) ([]*Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if treasurer {
		return accounts, nil
	}

	visible := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		if a.VisibleTo(groups) {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

// DeleteAccount removes an account and its transactions
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	// Verify existence first so callers get a clean not-found
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// SetAccessGroups replaces the super-group list granted view access
func (s *Service) SetAccessGroups(ctx context.Context, id int64, groups []string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateAccessGroups(ctx, id, normalizeGroups(groups))
}

// ListTransactions retrieves an account's transactions after verifying the
// caller may view the account.
func (s *Service) ListTransactions(ctx context.Context, accountID int64, groups []string, treasurer bool) ([]*Transaction, error) {
	if _, err := s.GetAccount(ctx, accountID, groups, treasurer); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, accountID)
}

// normalizeGroups trims whitespace and drops empty entries
func normalizeGroups(groups []string) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
