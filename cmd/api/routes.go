package main

import (
	"net/http"

	httphandlers "plaidgate/internal/interfaces/http"
	"plaidgate/internal/shared/config"
	"plaidgate/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Static page
	mux.HandleFunc("GET /{$}", httphandlers.HandleIndex)

	// Health check
	mux.HandleFunc("GET /health", httphandlers.HandleHealth)

	// Link flow
	mux.HandleFunc("GET /create-link-token", deps.LinkHandler.HandleCreateLinkToken)
	mux.HandleFunc("POST /token-exchange", deps.LinkHandler.HandleTokenExchange)
	mux.HandleFunc("GET /transactions", deps.LinkHandler.HandleTransactions)

	// Tracing sits next to the mux so the matched pattern is visible to it
	handler := middleware.Tracing(mux)
	handler = middleware.Session(cfg.Session.CookieName)(handler)
	handler = middleware.Logging(deps.Logger)(middleware.CORS(cfg.Server.AllowedOrigins)(handler))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		deps.Logger.Info("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
