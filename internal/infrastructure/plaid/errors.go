package plaid

import (
	"fmt"

	sdk "github.com/plaid/plaid-go/v29/plaid"
)

// APIError is a Plaid error response. It is meant for server logs; the
// message can contain item details and must not be sent to browsers.
type APIError struct {
	Operation string
	Type      string
	Code      string
	Message   string
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid %s: %s/%s: %s (request_id=%s)", e.Operation, e.Type, e.Code, e.Message, e.RequestID)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// describeError turns an SDK error into an *APIError when the body is a Plaid
// error object, and wraps it with the operation name otherwise.
func describeError(operation string, err error) error {
	plaidErr, convErr := sdk.ToPlaidError(err)
	if convErr != nil || plaidErr.GetErrorCode() == "" {
		return fmt.Errorf("plaid %s: %w", operation, err)
	}
	return &APIError{
		Operation: operation,
		Type:      string(plaidErr.GetErrorType()),
		Code:      plaidErr.GetErrorCode(),
		Message:   plaidErr.GetErrorMessage(),
		RequestID: plaidErr.GetRequestId(),
		Err:       err,
	}
}
