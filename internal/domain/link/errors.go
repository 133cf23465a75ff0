package link

import "errors"

// Kind classifies a service failure so the transport layer can pick a status
// code without inspecting provider details.
type Kind int

const (
	// KindUpstream is any failure reported by the financial-data provider.
	KindUpstream Kind = iota
	// KindPrecondition means the caller asked for something its session
	// cannot serve yet, such as transactions before a token exchange.
	KindPrecondition
	// KindInvalidRequest means the request itself could not be read.
	KindInvalidRequest
	// KindInternal covers local failures such as the token store.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindPrecondition:
		return "precondition"
	case KindInvalidRequest:
		return "invalid_request"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Public messages. These are the only error texts a caller ever sees.
const (
	MsgLinkTokenFailed    = "Failed to create link token"
	MsgExchangeFailed     = "Failed to exchange token or fetch data"
	MsgTransactionsFailed = "Failed to fetch transactions"
	MsgNoAccessToken      = "No access token available."
	MsgInvalidRequest     = "Invalid request body"
)

// Error carries a caller-safe Message alongside the underlying cause. Err is
// for server-side logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoAccessToken is returned when a session has not completed an exchange.
var ErrNoAccessToken = &Error{Kind: KindPrecondition, Message: MsgNoAccessToken}

// NewInvalidRequestError wraps a request decoding failure.
func NewInvalidRequestError(err error) *Error {
	return &Error{Kind: KindInvalidRequest, Message: MsgInvalidRequest, Err: err}
}

func upstreamError(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
