package link

import (
	"context"
	"encoding/json"
)

// Provider is the financial-data API the service proxies to.
// Implemented in the infrastructure layer.
type Provider interface {
	CreateLinkToken(ctx context.Context, settings Settings) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*Exchange, error)
	GetAuth(ctx context.Context, accessToken string) (*AuthData, error)
	GetIdentity(ctx context.Context, accessToken string) (json.RawMessage, error)
	GetBalance(ctx context.Context, accessToken string) (*BalanceData, error)
	GetTransactions(ctx context.Context, accessToken string, query TransactionsQuery) (*TransactionsData, error)
}

// TokenStore holds at most one access token per session. Put overwrites.
type TokenStore interface {
	Get(ctx context.Context, sessionID string) (accessToken string, ok bool, err error)
	Put(ctx context.Context, sessionID, accessToken string) error
}
