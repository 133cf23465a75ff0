package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	sdk "github.com/plaid/plaid-go/v29/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaidgate/internal/domain/link"
)

func TestEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		baseURL string
		want    sdk.Environment
		wantErr bool
	}{
		{name: "default is sandbox", env: "", want: sdk.Sandbox},
		{name: "sandbox", env: "sandbox", want: sdk.Sandbox},
		{name: "production upper case", env: "PRODUCTION", want: sdk.Production},
		{name: "base URL wins", env: "production", baseURL: "http://127.0.0.1:9999/", want: sdk.Environment("http://127.0.0.1:9999")},
		{name: "unknown", env: "staging", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := environment(tt.env, tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductsAndCountryCodes(t *testing.T) {
	assert.Equal(t, []sdk.Products{sdk.Products("auth"), sdk.Products("identity")}, products([]string{"Auth", "identity"}))
	assert.Equal(t, []sdk.CountryCode{sdk.CountryCode("US"), sdk.CountryCode("CA")}, countryCodes([]string{"us", "CA"}))
	assert.Empty(t, products(nil))
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{ClientID: "id"})
	assert.Error(t, err)

	_, err = NewClient(Config{Secret: "secret"})
	assert.Error(t, err)

	_, err = NewClient(Config{ClientID: "id", Secret: "secret", Environment: "nowhere"})
	assert.Error(t, err)

	client, err := NewClient(Config{ClientID: "id", Secret: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestDescribeError_NonPlaidError(t *testing.T) {
	cause := errors.New("connection refused")

	err := describeError("auth/get", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "auth/get")
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestAPIError_Error(t *testing.T) {
	cause := errors.New("400 Bad Request")
	err := &APIError{
		Operation: "item/public_token/exchange",
		Type:      "INVALID_INPUT",
		Code:      "INVALID_PUBLIC_TOKEN",
		Message:   "provided public token is in an invalid format",
		RequestID: "req-1",
		Err:       cause,
	}

	assert.Equal(t,
		"plaid item/public_token/exchange: INVALID_INPUT/INVALID_PUBLIC_TOKEN: provided public token is in an invalid format (request_id=req-1)",
		err.Error(),
	)
	assert.ErrorIs(t, err, cause)
}

func TestExchangePublicToken_AgainstFakeServer(t *testing.T) {
	var gotBody map[string]any
	var gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/public_token/exchange" {
			http.NotFound(w, r)
			return
		}
		gotClientID = r.Header.Get("PLAID-CLIENT-ID")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-sandbox-xyz","item_id":"item-1","request_id":"req-1"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		ClientID:   "client-id",
		Secret:     "secret",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)

	exchange, err := client.ExchangePublicToken(context.Background(), "public-sandbox-123")
	require.NoError(t, err)

	assert.Equal(t, "access-sandbox-xyz", exchange.AccessToken)
	assert.Equal(t, "item-1", exchange.ItemID)
	assert.Equal(t, "client-id", gotClientID)
	assert.Equal(t, "public-sandbox-123", gotBody["public_token"])
}

func TestExchangePublicToken_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_type":"INVALID_INPUT","error_code":"INVALID_PUBLIC_TOKEN","error_message":"provided public token is in an invalid format","display_message":null,"request_id":"req-2"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		ClientID:   "client-id",
		Secret:     "secret",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)

	_, err = client.ExchangePublicToken(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item/public_token/exchange")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "item/public_token/exchange", apiErr.Operation)
	assert.Equal(t, "INVALID_INPUT", apiErr.Type)
	assert.Equal(t, "INVALID_PUBLIC_TOKEN", apiErr.Code)
	assert.Equal(t, "req-2", apiErr.RequestID)
}

const (
	itemFixture = `{"item_id":"item-1","institution_id":"ins_109508","webhook":null,"error":null,` +
		`"available_products":["balance"],"billed_products":["auth","identity"],` +
		`"consent_expiration_time":null,"update_type":"background"}`
	accountFixture = `{"account_id":"acc-1","balances":{"available":100,"current":110,"limit":null,` +
		`"iso_currency_code":"USD","unofficial_currency_code":null},"mask":"0000","name":"Plaid Checking",` +
		`"official_name":"Plaid Gold Standard 0% Interest Checking","type":"depository","subtype":"checking"}`
	identityAccountFixture = `{"account_id":"acc-1","balances":{"available":100,"current":110,"limit":null,` +
		`"iso_currency_code":"USD","unofficial_currency_code":null},"mask":"0000","name":"Plaid Checking",` +
		`"official_name":null,"type":"depository","subtype":"checking",` +
		`"owners":[{"names":["Alberta Bobbeth Charleson"],"phone_numbers":[],"emails":[],"addresses":[]}]}`
)

// fakePlaid serves canned bodies by path and records the decoded request
// bodies it received.
type fakePlaid struct {
	mu       sync.Mutex
	requests map[string]map[string]any
}

func newFakePlaid(t *testing.T, responses map[string]string) (*Client, *fakePlaid) {
	t.Helper()

	fake := &fakePlaid{requests: map[string]map[string]any{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		fake.mu.Lock()
		fake.requests[r.URL.Path] = payload
		fake.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		ClientID:   "client-id",
		Secret:     "secret",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return client, fake
}

func (f *fakePlaid) request(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func TestCreateLinkToken_AgainstFakeServer(t *testing.T) {
	client, fake := newFakePlaid(t, map[string]string{
		"/link/token/create": `{"link_token":"link-sandbox-abc","expiration":"2024-06-01T00:00:00Z","request_id":"req-1"}`,
	})

	linkToken, err := client.CreateLinkToken(context.Background(), link.Settings{
		ClientName:   "App of Tyler",
		ClientUserID: "unique-user-id",
		Products:     []string{"auth", "identity"},
		CountryCodes: []string{"us"},
		Language:     "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-abc", linkToken)

	sent := fake.request("/link/token/create")
	require.NotNil(t, sent)
	assert.Equal(t, "App of Tyler", sent["client_name"])
	assert.Equal(t, "en", sent["language"])
	assert.Equal(t, []any{"US"}, sent["country_codes"])
	assert.Equal(t, []any{"auth", "identity"}, sent["products"])
	user, ok := sent["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "unique-user-id", user["client_user_id"])
}

func TestGetAuth_AgainstFakeServer(t *testing.T) {
	client, fake := newFakePlaid(t, map[string]string{
		"/auth/get": `{"accounts":[` + accountFixture + `],"item":` + itemFixture + `,` +
			`"numbers":{"ach":[{"account_id":"acc-1","account":"1111222233330000","routing":"011401533","wire_routing":"021000021"}],` +
			`"eft":[],"international":[],"bacs":[]},"request_id":"req-auth"}`,
	})

	auth, err := client.GetAuth(context.Background(), "access-xyz")
	require.NoError(t, err)

	assert.Equal(t, "access-xyz", fake.request("/auth/get")["access_token"])

	var accounts []map[string]any
	require.NoError(t, json.Unmarshal(auth.Accounts, &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc-1", accounts[0]["account_id"])

	var item map[string]any
	require.NoError(t, json.Unmarshal(auth.Item, &item))
	assert.Equal(t, "item-1", item["item_id"])
	assert.Equal(t, "ins_109508", item["institution_id"])

	var numbers struct {
		ACH []map[string]any `json:"ach"`
	}
	require.NoError(t, json.Unmarshal(auth.Numbers, &numbers))
	require.Len(t, numbers.ACH, 1)
	assert.Equal(t, "011401533", numbers.ACH[0]["routing"])
	assert.Equal(t, "1111222233330000", numbers.ACH[0]["account"])
}

func TestGetIdentity_AgainstFakeServer(t *testing.T) {
	client, fake := newFakePlaid(t, map[string]string{
		"/identity/get": `{"accounts":[` + identityAccountFixture + `],"item":` + itemFixture + `,"request_id":"req-identity"}`,
	})

	identity, err := client.GetIdentity(context.Background(), "access-xyz")
	require.NoError(t, err)

	assert.Equal(t, "access-xyz", fake.request("/identity/get")["access_token"])

	// The whole response is kept, not just the accounts.
	var payload struct {
		Accounts []struct {
			Owners []struct {
				Names []string `json:"names"`
			} `json:"owners"`
		} `json:"accounts"`
		Item      map[string]any `json:"item"`
		RequestID string         `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(identity, &payload))
	assert.Equal(t, "req-identity", payload.RequestID)
	assert.Equal(t, "item-1", payload.Item["item_id"])
	require.Len(t, payload.Accounts, 1)
	require.Len(t, payload.Accounts[0].Owners, 1)
	assert.Equal(t, []string{"Alberta Bobbeth Charleson"}, payload.Accounts[0].Owners[0].Names)
}

func TestGetBalance_AgainstFakeServer(t *testing.T) {
	client, fake := newFakePlaid(t, map[string]string{
		"/accounts/balance/get": `{"accounts":[` + accountFixture + `],"item":` + itemFixture + `,"request_id":"req-balance"}`,
	})

	balance, err := client.GetBalance(context.Background(), "access-xyz")
	require.NoError(t, err)

	assert.Equal(t, "access-xyz", fake.request("/accounts/balance/get")["access_token"])

	var accounts []struct {
		AccountID string `json:"account_id"`
		Balances  struct {
			Available float64 `json:"available"`
			Current   float64 `json:"current"`
		} `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(balance.Accounts, &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc-1", accounts[0].AccountID)
	assert.Equal(t, 100.0, accounts[0].Balances.Available)
	assert.Equal(t, 110.0, accounts[0].Balances.Current)
}

func TestGetTransactions_AgainstFakeServer(t *testing.T) {
	tests := []struct {
		name         string
		transactions string
	}{
		{name: "empty list", transactions: `[]`},
		{name: "null list", transactions: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, fake := newFakePlaid(t, map[string]string{
				"/transactions/get": `{"accounts":[` + accountFixture + `],"transactions":` + tt.transactions + `,` +
					`"total_transactions":0,"item":` + itemFixture + `,"request_id":"req-tx"}`,
			})

			data, err := client.GetTransactions(context.Background(), "access-xyz", link.TransactionsQuery{
				StartDate: "2023-01-01",
				EndDate:   "2024-12-31",
				Count:     100,
			})
			require.NoError(t, err)

			assert.JSONEq(t, `[]`, string(data.Transactions))
			assert.Zero(t, data.Total)

			sent := fake.request("/transactions/get")
			require.NotNil(t, sent)
			assert.Equal(t, "access-xyz", sent["access_token"])
			assert.Equal(t, "2023-01-01", sent["start_date"])
			assert.Equal(t, "2024-12-31", sent["end_date"])
			options, ok := sent["options"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, 100.0, options["count"])
			assert.Equal(t, 0.0, options["offset"])
		})
	}
}

func TestProviderCalls_ErrorResponses(t *testing.T) {
	errorBody := `{"error_type":"ITEM_ERROR","error_code":"PRODUCT_NOT_READY","error_message":"the requested product is not yet ready",` +
		`"display_message":null,"request_id":"req-err"}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(errorBody))
	}))
	defer srv.Close()

	client, err := NewClient(Config{ClientID: "client-id", Secret: "secret", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		operation string
		call      func() error
	}{
		{"link/token/create", func() error { _, err := client.CreateLinkToken(ctx, link.Settings{Products: []string{"auth"}}); return err }},
		{"auth/get", func() error { _, err := client.GetAuth(ctx, "access-xyz"); return err }},
		{"identity/get", func() error { _, err := client.GetIdentity(ctx, "access-xyz"); return err }},
		{"accounts/balance/get", func() error { _, err := client.GetBalance(ctx, "access-xyz"); return err }},
		{"transactions/get", func() error {
			_, err := client.GetTransactions(ctx, "access-xyz", link.TransactionsQuery{StartDate: "2023-01-01", EndDate: "2024-12-31", Count: 100})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.operation, apiErr.Operation)
			assert.Equal(t, "ITEM_ERROR", apiErr.Type)
			assert.Equal(t, "PRODUCT_NOT_READY", apiErr.Code)
			assert.Equal(t, "req-err", apiErr.RequestID)
		})
	}
}
