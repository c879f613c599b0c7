package gocardless

import (
	"context"
)

// ClientInterface defines the methods required from the Bank Account Data API client
type ClientInterface interface {
	NewToken(ctx context.Context, secretID, secretKey string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error)
	Balances(ctx context.Context, token, accountID string) (*BalancesResponse, error)
	Transactions(ctx context.Context, token, accountID string) (*TransactionsResponse, error)
	CreateRequisition(ctx context.Context, token string, params RequisitionParams) (*Requisition, error)
	GetRequisition(ctx context.Context, token, id string) (*Requisition, error)
	Institutions(ctx context.Context, token, country string) ([]Institution, error)
}

// TokenSource supplies a currently-valid access token for provider calls
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
