package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"plaidgate/internal/shared/config"
)

func TestRedirectHandler(t *testing.T) {
	handler := redirectHandler([]string{"plaidgate.example.com"})

	tests := []struct {
		name         string
		host         string
		forwarded    string
		wantStatus   int
		wantLocation string
	}{
		{name: "allowed host", host: "plaidgate.example.com", wantStatus: http.StatusMovedPermanently, wantLocation: "https://plaidgate.example.com/transactions?x=1"},
		{name: "port is dropped", host: "plaidgate.example.com:80", wantStatus: http.StatusMovedPermanently, wantLocation: "https://plaidgate.example.com/transactions?x=1"},
		{name: "forwarded host wins", host: "10.0.0.1", forwarded: "plaidgate.example.com", wantStatus: http.StatusMovedPermanently, wantLocation: "https://plaidgate.example.com/transactions?x=1"},
		{name: "unknown host", host: "evil.example.com", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/transactions?x=1", nil)
			req.Host = tt.host
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Host", tt.forwarded)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rr.Header().Get("Location"))
			}
		})
	}
}

func TestNewServerConfigFromConfig(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "3000", AllowedHosts: []string{"a.example.com"}},
		TLS:    config.TLSConfig{Enabled: true, CertPath: "cert.pem", KeyPath: "key.pem", RedirectHTTP: true},
	}

	scfg := NewServerConfigFromConfig(http.NotFoundHandler(), cfg)

	assert.Equal(t, "127.0.0.1:3000", scfg.Addr)
	assert.Equal(t, "3000", scfg.Port)
	assert.True(t, scfg.TLSEnabled)
	assert.True(t, scfg.RedirectHTTP)
	assert.Equal(t, "cert.pem", scfg.CertPath)
	assert.Equal(t, []string{"a.example.com"}, scfg.AllowedHosts)
}
