package main

import (
	"context"

	"go.uber.org/zap"

	"plaidgate/internal/domain/link"
	"plaidgate/internal/infrastructure/crypto"
	"plaidgate/internal/infrastructure/memory"
	"plaidgate/internal/infrastructure/plaid"
	"plaidgate/internal/infrastructure/secrets"
	httphandlers "plaidgate/internal/interfaces/http"
	"plaidgate/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	Logger *zap.Logger

	// Handlers
	LinkHandler *httphandlers.LinkHandler

	// Services
	LinkService *link.Service

	// Storage
	TokenStore *memory.TokenStore
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	// Resolve the Plaid secret, from Secret Manager when not set inline
	secret, err := secrets.Lookup(ctx, cfg.Plaid.Secret, cfg.Plaid.SecretResource)
	if err != nil {
		return nil, err
	}
	if cfg.Plaid.Secret == "" {
		logger.Info("Loaded Plaid secret from Secret Manager", zap.String("resource", cfg.Plaid.SecretResource))
	}

	// Initialize encryptor
	encryptor, err := newEncryptor(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.Session.Secret == "" {
		logger.Warn("SESSION_SECRET not set, using a random key; linked sessions will not survive a restart")
	}

	// Initialize storage
	tokenStore, err := memory.NewTokenStore(cfg.Session.Capacity, encryptor)
	if err != nil {
		return nil, err
	}

	// Initialize Plaid client
	plaidClient, err := plaid.NewClient(plaid.Config{
		ClientID:    cfg.Plaid.ClientID,
		Secret:      secret,
		Environment: cfg.Plaid.Environment,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Plaid client ready", zap.String("environment", cfg.Plaid.Environment))

	// Initialize domain services
	linkService := link.NewService(plaidClient, tokenStore, linkSettings(cfg), transactionsQuery(cfg), logger)

	// Initialize handlers
	linkHandler := httphandlers.NewLinkHandler(linkService, logger)

	return &Dependencies{
		Logger:      logger,
		LinkHandler: linkHandler,
		LinkService: linkService,
		TokenStore:  tokenStore,
	}, nil
}

func newEncryptor(secret string) (*crypto.Encryptor, error) {
	if secret == "" {
		return crypto.NewRandomEncryptor()
	}
	return crypto.NewEncryptorFromSecret(secret)
}

func linkSettings(cfg *config.Config) link.Settings {
	return link.Settings{
		ClientName:   cfg.Plaid.ClientName,
		ClientUserID: cfg.Plaid.ClientUserID,
		Products:     cfg.Plaid.Products,
		CountryCodes: cfg.Plaid.CountryCodes,
		Language:     cfg.Plaid.Language,
	}
}

func transactionsQuery(cfg *config.Config) link.TransactionsQuery {
	return link.TransactionsQuery{
		StartDate: cfg.Transactions.StartDate,
		EndDate:   cfg.Transactions.EndDate,
		Count:     cfg.Transactions.Count,
	}
}
