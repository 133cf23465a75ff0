package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/plaid/plaid-go/v29/plaid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"plaidgate/internal/domain/link"
)

// Config holds what is needed to build a Plaid API client.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // "sandbox" or "production"
	// BaseURL overrides the environment host. Used against local fakes.
	BaseURL    string
	HTTPClient *http.Client
}

// Client adapts the Plaid SDK to link.Provider. Responses are re-encoded as
// raw JSON so callers pass provider records through untouched.
type Client struct {
	api *sdk.PlaidApiService
}

// Ensure Client implements link.Provider
var _ link.Provider = (*Client)(nil)

// NewClient creates a Plaid client. Without an explicit HTTPClient, outbound
// requests go through an OpenTelemetry-instrumented transport with no
// client-side timeout, matching the SDK defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("plaid client ID and secret are required")
	}

	env, err := environment(cfg.Environment, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	configuration := sdk.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	configuration.UseEnvironment(env)
	configuration.HTTPClient = httpClient

	return &Client{api: sdk.NewAPIClient(configuration).PlaidApi}, nil
}

func environment(name, baseURL string) (sdk.Environment, error) {
	if baseURL != "" {
		return sdk.Environment(strings.TrimRight(baseURL, "/")), nil
	}
	switch strings.ToLower(name) {
	case "", "sandbox":
		return sdk.Sandbox, nil
	case "production":
		return sdk.Production, nil
	default:
		return "", fmt.Errorf("unknown plaid environment %q", name)
	}
}

// CreateLinkToken calls /link/token/create.
func (c *Client) CreateLinkToken(ctx context.Context, settings link.Settings) (string, error) {
	user := sdk.LinkTokenCreateRequestUser{ClientUserId: settings.ClientUserID}
	request := sdk.NewLinkTokenCreateRequest(settings.ClientName, settings.Language, countryCodes(settings.CountryCodes), user)
	request.SetProducts(products(settings.Products))

	resp, _, err := c.api.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", describeError("link/token/create", err)
	}
	return resp.GetLinkToken(), nil
}

// ExchangePublicToken calls /item/public_token/exchange.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*link.Exchange, error) {
	request := sdk.NewItemPublicTokenExchangeRequest(publicToken)

	resp, _, err := c.api.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return nil, describeError("item/public_token/exchange", err)
	}
	return &link.Exchange{
		AccessToken: resp.GetAccessToken(),
		ItemID:      resp.GetItemId(),
	}, nil
}

// GetAuth calls /auth/get.
func (c *Client) GetAuth(ctx context.Context, accessToken string) (*link.AuthData, error) {
	request := sdk.NewAuthGetRequest(accessToken)

	resp, _, err := c.api.AuthGet(ctx).AuthGetRequest(*request).Execute()
	if err != nil {
		return nil, describeError("auth/get", err)
	}

	accounts, err := json.Marshal(resp.GetAccounts())
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth accounts: %w", err)
	}
	item, err := json.Marshal(resp.GetItem())
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth item: %w", err)
	}
	numbers, err := json.Marshal(resp.GetNumbers())
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth numbers: %w", err)
	}

	return &link.AuthData{Accounts: accounts, Item: item, Numbers: numbers}, nil
}

// GetIdentity calls /identity/get and returns the whole response body.
func (c *Client) GetIdentity(ctx context.Context, accessToken string) (json.RawMessage, error) {
	request := sdk.NewIdentityGetRequest(accessToken)

	resp, _, err := c.api.IdentityGet(ctx).IdentityGetRequest(*request).Execute()
	if err != nil {
		return nil, describeError("identity/get", err)
	}

	identity, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}
	return identity, nil
}

// GetBalance calls /accounts/balance/get.
func (c *Client) GetBalance(ctx context.Context, accessToken string) (*link.BalanceData, error) {
	request := sdk.NewAccountsBalanceGetRequest(accessToken)

	resp, _, err := c.api.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(*request).Execute()
	if err != nil {
		return nil, describeError("accounts/balance/get", err)
	}

	accounts, err := json.Marshal(resp.GetAccounts())
	if err != nil {
		return nil, fmt.Errorf("failed to encode balance accounts: %w", err)
	}
	return &link.BalanceData{Accounts: accounts}, nil
}

// GetTransactions calls /transactions/get for a single page.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, query link.TransactionsQuery) (*link.TransactionsData, error) {
	options := sdk.NewTransactionsGetRequestOptions()
	options.SetCount(int32(query.Count))
	options.SetOffset(int32(query.Offset))

	request := sdk.NewTransactionsGetRequest(accessToken, query.StartDate, query.EndDate)
	request.SetOptions(*options)

	resp, _, err := c.api.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
	if err != nil {
		return nil, describeError("transactions/get", err)
	}

	records := resp.GetTransactions()
	if records == nil {
		records = []sdk.Transaction{}
	}
	transactions, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transactions: %w", err)
	}
	return &link.TransactionsData{
		Transactions: transactions,
		Total:        int(resp.GetTotalTransactions()),
	}, nil
}

// CreateSandboxPublicToken calls /sandbox/public_token/create, producing a
// public token without going through the Link widget. Sandbox only.
func (c *Client) CreateSandboxPublicToken(ctx context.Context, institutionID string, initialProducts []string) (string, error) {
	request := sdk.NewSandboxPublicTokenCreateRequest(institutionID, products(initialProducts))

	resp, _, err := c.api.SandboxPublicTokenCreate(ctx).SandboxPublicTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", describeError("sandbox/public_token/create", err)
	}
	return resp.GetPublicToken(), nil
}

func products(names []string) []sdk.Products {
	out := make([]sdk.Products, 0, len(names))
	for _, name := range names {
		out = append(out, sdk.Products(strings.ToLower(name)))
	}
	return out
}

func countryCodes(codes []string) []sdk.CountryCode {
	out := make([]sdk.CountryCode, 0, len(codes))
	for _, code := range codes {
		out = append(out, sdk.CountryCode(strings.ToUpper(code)))
	}
	return out
}
