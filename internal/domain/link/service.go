package link

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	linkTracer           = otel.Tracer("plaidgate/link")
	linkMeter            = otel.Meter("plaidgate/link")
	providerCallTotal, _ = linkMeter.Int64Counter("plaid.provider.call.total",
		metric.WithDescription("Calls made to the financial-data provider"),
	)
)

var emptyArray = json.RawMessage("[]")

// Service proxies the link flow to the provider and keeps each session's
// access token.
type Service struct {
	provider     Provider
	tokens       TokenStore
	settings     Settings
	transactions TransactionsQuery
	logger       *zap.Logger
}

// NewService creates a link service.
func NewService(provider Provider, tokens TokenStore, settings Settings, transactions TransactionsQuery, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider:     provider,
		tokens:       tokens,
		settings:     settings,
		transactions: transactions,
		logger:       logger,
	}
}

// CreateLinkToken asks the provider for a link token for the configured demo user.
func (s *Service) CreateLinkToken(ctx context.Context) (*LinkTokenResult, error) {
	var linkToken string
	err := s.observe(ctx, "link_token_create", func(ctx context.Context) error {
		var err error
		linkToken, err = s.provider.CreateLinkToken(ctx, s.settings)
		return err
	})
	if err != nil {
		return nil, upstreamError(MsgLinkTokenFailed, fmt.Errorf("create link token: %w", err))
	}

	return &LinkTokenResult{LinkToken: linkToken}, nil
}

// ExchangePublicToken trades publicToken for an access token, remembers it for
// the session and then loads auth, identity and balance concurrently.
//
// The access token stays stored even when one of the follow-up fetches fails;
// the session can still request transactions afterwards.
func (s *Service) ExchangePublicToken(ctx context.Context, sessionID, publicToken string) (*ExchangeResult, error) {
	var exchange *Exchange
	err := s.observe(ctx, "item_public_token_exchange", func(ctx context.Context) error {
		var err error
		exchange, err = s.provider.ExchangePublicToken(ctx, publicToken)
		return err
	})
	if err != nil {
		return nil, upstreamError(MsgExchangeFailed, fmt.Errorf("exchange public token: %w", err))
	}
	if exchange == nil || exchange.AccessToken == "" {
		return nil, upstreamError(MsgExchangeFailed, errors.New("exchange public token: provider returned no access token"))
	}

	if err := s.tokens.Put(ctx, sessionID, exchange.AccessToken); err != nil {
		return nil, internalError(MsgExchangeFailed, fmt.Errorf("store access token: %w", err))
	}
	s.logger.Info("Public token exchanged",
		zap.String("session_id", sessionID),
		zap.String("item_id", exchange.ItemID),
	)

	accessToken := exchange.AccessToken

	var (
		auth     *AuthData
		identity json.RawMessage
		balance  *BalanceData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.observe(gctx, "auth_get", func(ctx context.Context) error {
			var err error
			if auth, err = s.provider.GetAuth(ctx, accessToken); err != nil {
				return fmt.Errorf("fetch auth: %w", err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return s.observe(gctx, "identity_get", func(ctx context.Context) error {
			var err error
			if identity, err = s.provider.GetIdentity(ctx, accessToken); err != nil {
				return fmt.Errorf("fetch identity: %w", err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return s.observe(gctx, "accounts_balance_get", func(ctx context.Context) error {
			var err error
			if balance, err = s.provider.GetBalance(ctx, accessToken); err != nil {
				return fmt.Errorf("fetch balance: %w", err)
			}
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return nil, upstreamError(MsgExchangeFailed, err)
	}

	if auth == nil {
		auth = &AuthData{}
	}
	if balance == nil {
		balance = &BalanceData{}
	}

	s.logger.Debug("Fetched item data",
		zap.String("session_id", sessionID),
		zap.Int("auth_bytes", len(auth.Accounts)+len(auth.Item)+len(auth.Numbers)),
		zap.Int("identity_bytes", len(identity)),
		zap.Int("balance_bytes", len(balance.Accounts)),
	)

	return &ExchangeResult{
		Accounts: balance.Accounts,
		Item:     auth.Item,
		Numbers:  auth.Numbers,
		Identity: identity,
	}, nil
}

// GetTransactions returns the first page of transactions in the configured
// window for the session's access token. Without a stored token it fails with
// ErrNoAccessToken and does not contact the provider.
func (s *Service) GetTransactions(ctx context.Context, sessionID string) (*TransactionsResult, error) {
	accessToken, ok, err := s.tokens.Get(ctx, sessionID)
	if err != nil {
		return nil, internalError(MsgTransactionsFailed, fmt.Errorf("load access token: %w", err))
	}
	if !ok {
		return nil, ErrNoAccessToken
	}

	var data *TransactionsData
	err = s.observe(ctx, "transactions_get", func(ctx context.Context) error {
		var err error
		data, err = s.provider.GetTransactions(ctx, accessToken, s.transactions)
		return err
	})
	if err != nil {
		return nil, upstreamError(MsgTransactionsFailed, fmt.Errorf("fetch transactions: %w", err))
	}

	result := &TransactionsResult{Transactions: emptyArray}
	if data != nil && !isEmptyJSON(data.Transactions) {
		result.Transactions = data.Transactions
		s.logger.Debug("Fetched transactions",
			zap.String("session_id", sessionID),
			zap.Int("total_available", data.Total),
		)
	}

	return result, nil
}

// isEmptyJSON reports whether raw carries no records: absent, null or [].
func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]"))
}

// observe wraps a provider call in a client span and counts it.
func (s *Service) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := linkTracer.Start(ctx, "plaid."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("plaid.operation", operation)),
	)
	defer span.End()

	outcome := "ok"
	err := fn(ctx)
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, operation+" failed")
	}

	providerCallTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))

	return err
}
