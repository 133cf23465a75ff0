// Package memory keeps per-session provider access tokens in process memory.
// Nothing is persisted: tokens are lost when the process restarts.
package memory

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"plaidgate/internal/domain/link"
	"plaidgate/internal/infrastructure/crypto"
)

// TokenStore is a bounded session -> access token map. The least recently
// used session is evicted when capacity is reached. Tokens are held encrypted.
type TokenStore struct {
	cache     *lru.Cache[string, string]
	encryptor *crypto.Encryptor
}

// Ensure TokenStore implements link.TokenStore
var _ link.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a store holding at most capacity sessions.
func NewTokenStore(capacity int, encryptor *crypto.Encryptor) (*TokenStore, error) {
	if encryptor == nil {
		return nil, errors.New("encryptor is required")
	}
	cache, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &TokenStore{cache: cache, encryptor: encryptor}, nil
}

// Get returns the access token for sessionID, if any.
func (s *TokenStore) Get(_ context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, nil
	}
	sealed, ok := s.cache.Get(sessionID)
	if !ok {
		return "", false, nil
	}
	token, err := s.encryptor.Decrypt(sealed)
	if err != nil {
		return "", false, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return token, true, nil
}

// Put stores accessToken for sessionID, replacing any previous token.
func (s *TokenStore) Put(_ context.Context, sessionID, accessToken string) error {
	if sessionID == "" {
		return errors.New("session ID is required")
	}
	if accessToken == "" {
		return errors.New("access token is empty")
	}
	sealed, err := s.encryptor.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	s.cache.Add(sessionID, sealed)
	return nil
}

// Len reports how many sessions currently hold a token.
func (s *TokenStore) Len() int {
	return s.cache.Len()
}
