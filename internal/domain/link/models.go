package link

import "encoding/json"

// Settings are the fixed parameters of every link token request.
type Settings struct {
	ClientName   string
	ClientUserID string
	Products     []string
	CountryCodes []string
	Language     string
}

// TransactionsQuery is the fixed window used for transaction fetches.
// Only the first page is requested; history is never paged through.
type TransactionsQuery struct {
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Count     int
	Offset    int
}

// Exchange is the result of trading a public token for an access token.
type Exchange struct {
	AccessToken string
	ItemID      string
}

// Provider payloads are kept as raw JSON: the service only picks top-level
// fields and never inspects provider records.

type AuthData struct {
	Accounts json.RawMessage
	Item     json.RawMessage
	Numbers  json.RawMessage
}

type BalanceData struct {
	Accounts json.RawMessage
}

type TransactionsData struct {
	Transactions json.RawMessage
	Total        int
}

// ExchangeResult is the reshaped payload returned after a token exchange.
type ExchangeResult struct {
	Accounts json.RawMessage `json:"accounts"`
	Item     json.RawMessage `json:"item"`
	Numbers  json.RawMessage `json:"numbers"`
	Identity json.RawMessage `json:"identity"`
}

type TransactionsResult struct {
	Transactions json.RawMessage `json:"transactions"`
}

type LinkTokenResult struct {
	LinkToken string `json:"linkToken"`
}
