package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"plaidgate/internal/domain/link"
	"plaidgate/internal/shared/middleware"
)

// LinkHandler serves the link-token, exchange and transactions endpoints.
type LinkHandler struct {
	service *link.Service
	logger  *zap.Logger
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(service *link.Service, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{service: service, logger: logger}
}

// TokenExchangeRequest is the body of POST /token-exchange.
type TokenExchangeRequest struct {
	PublicToken string `json:"publicToken"`
}

// HandleCreateLinkToken returns a fresh link token for the Link widget.
func (h *LinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CreateLinkToken(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleTokenExchange exchanges the public token from the Link widget and
// returns accounts, item, auth numbers and identity for the new item.
// The public token is forwarded as-is; an empty body or a non-string
// publicToken forwards an empty token.
func (h *LinkHandler) HandleTokenExchange(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		h.writeMissingSession(w, r)
		return
	}

	var req TokenExchangeRequest
	if err := decodeExchangeRequest(r.Body, &req); err != nil {
		h.writeServiceError(w, r, link.NewInvalidRequestError(err))
		return
	}

	result, err := h.service.ExchangePublicToken(r.Context(), sessionID, req.PublicToken)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleTransactions returns the first page of transactions for the session's
// linked item.
func (h *LinkHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		h.writeMissingSession(w, r)
		return
	}

	result, err := h.service.GetTransactions(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// decodeExchangeRequest reads the exchange body. An empty body and a
// publicToken of the wrong JSON type both leave the token empty; only
// syntactically broken JSON is rejected.
func decodeExchangeRequest(body io.Reader, req *TokenExchangeRequest) error {
	err := json.NewDecoder(body).Decode(req)
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &typeErr):
		req.PublicToken = ""
		return nil
	default:
		return err
	}
}

// writeServiceError logs the full error and sends only the public message.
func (h *LinkHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr, ok := link.AsError(err)
	if !ok {
		h.logger.Error("Unexpected error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := statusForKind(serviceErr.Kind)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Stringer("kind", serviceErr.Kind),
		zap.Int("status", status),
	}
	if serviceErr.Err != nil {
		fields = append(fields, zap.Error(serviceErr.Err))
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(serviceErr.Message, fields...)
	} else {
		h.logger.Warn(serviceErr.Message, fields...)
	}

	writeError(w, status, serviceErr.Message)
}

func (h *LinkHandler) writeMissingSession(w http.ResponseWriter, r *http.Request) {
	h.logger.Error("Request reached handler without a session", zap.String("path", r.URL.Path))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func statusForKind(kind link.Kind) int {
	switch kind {
	case link.KindPrecondition, link.KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
