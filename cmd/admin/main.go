package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"plaidgate/internal/domain/link"
	"plaidgate/internal/infrastructure/crypto"
	"plaidgate/internal/infrastructure/memory"
	"plaidgate/internal/infrastructure/plaid"
	"plaidgate/internal/infrastructure/secrets"
	"plaidgate/internal/shared/config"
	"plaidgate/internal/shared/logging"
)

const usage = `Plaidgate Admin CLI - Manual checks against the configured Plaid environment

Usage:
  admin <command> [options]

Commands:
  link-token     Create a link token with the configured client settings
  sandbox-link   Link a sandbox institution without the browser and print the item data

Examples:
  # Print a link token
  admin link-token

  # Link the default sandbox institution (First Platypus Bank)
  admin sandbox-link

  # Link another institution and fetch its transactions too
  admin sandbox-link --institution=ins_109511 --transactions

  # Run with timeout
  admin sandbox-link --timeout=2m
`

const defaultInstitution = "ins_109508"

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "link-token":
		runLinkToken(os.Args[2:])
	case "sandbox-link":
		runSandboxLink(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage + "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

func runLinkToken(args []string) {
	fs := flag.NewFlagSet("link-token", flag.ExitOnError)

	timeoutStr := fs.String("timeout", "30s", "Timeout for the operation (e.g., 30s, 1m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin link-token [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, logger := loadConfig()
	defer logger.Sync()

	client := newPlaidClient(ctx, cfg)
	service := newService(client, cfg, logger)

	result, err := service.CreateLinkToken(ctx)
	if err != nil {
		log.Fatalf("Link token creation failed: %v", err)
	}
	printJSON(result)
}

func runSandboxLink(args []string) {
	fs := flag.NewFlagSet("sandbox-link", flag.ExitOnError)

	institution := fs.String("institution", defaultInstitution, "Sandbox institution ID to link")
	withTransactions := fs.Bool("transactions", false, "Also fetch the transactions page after linking")
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 2m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin sandbox-link [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin sandbox-link")
		fmt.Println("  admin sandbox-link --institution=ins_109511 --transactions")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, logger := loadConfig()
	defer logger.Sync()

	if cfg.Plaid.Environment != "sandbox" {
		log.Fatalf("sandbox-link requires PLAID_ENV=sandbox, got %q", cfg.Plaid.Environment)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := newPlaidClient(ctx, cfg)
	service := newService(client, cfg, logger)

	log.Printf("Creating sandbox public token for %s (products: %s)", *institution, strings.Join(cfg.Plaid.Products, ","))
	publicToken, err := client.CreateSandboxPublicToken(ctx, *institution, cfg.Plaid.Products)
	if err != nil {
		log.Fatalf("Sandbox public token creation failed: %v", err)
	}

	sessionID := uuid.NewString()
	startTime := time.Now()

	result, err := service.ExchangePublicToken(ctx, sessionID, publicToken)
	if err != nil {
		log.Fatalf("Exchange failed: %v", err)
	}
	log.Printf("Exchange completed in %v", time.Since(startTime))
	printJSON(result)

	if *withTransactions {
		transactions, err := service.GetTransactions(ctx, sessionID)
		if err != nil {
			log.Fatalf("Transactions fetch failed: %v", err)
		}
		printJSON(transactions)
	}
}

func loadConfig() (*config.Config, *zap.Logger) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return cfg, logger
}

func newPlaidClient(ctx context.Context, cfg *config.Config) *plaid.Client {
	secret, err := secrets.Lookup(ctx, cfg.Plaid.Secret, cfg.Plaid.SecretResource)
	if err != nil {
		log.Fatalf("Failed to resolve Plaid secret: %v", err)
	}

	client, err := plaid.NewClient(plaid.Config{
		ClientID:    cfg.Plaid.ClientID,
		Secret:      secret,
		Environment: cfg.Plaid.Environment,
	})
	if err != nil {
		log.Fatalf("Failed to create Plaid client: %v", err)
	}
	return client
}

func newService(client *plaid.Client, cfg *config.Config, logger *zap.Logger) *link.Service {
	encryptor, err := crypto.NewRandomEncryptor()
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}
	store, err := memory.NewTokenStore(1, encryptor)
	if err != nil {
		log.Fatalf("Failed to create token store: %v", err)
	}

	settings := link.Settings{
		ClientName:   cfg.Plaid.ClientName,
		ClientUserID: cfg.Plaid.ClientUserID,
		Products:     cfg.Plaid.Products,
		CountryCodes: cfg.Plaid.CountryCodes,
		Language:     cfg.Plaid.Language,
	}
	query := link.TransactionsQuery{
		StartDate: cfg.Transactions.StartDate,
		EndDate:   cfg.Transactions.EndDate,
		Count:     cfg.Transactions.Count,
	}
	return link.NewService(client, store, settings, query, logger)
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}
