// Package secrets resolves provider credentials from Google Secret Manager.
package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

// versionAccessor is the part of the Secret Manager client used here.
type versionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Resolver reads secret payloads by version resource name.
type Resolver struct {
	client versionAccessor
	close  func() error
}

// NewResolver creates a Resolver backed by a Secret Manager client using
// application default credentials.
func NewResolver(ctx context.Context) (*Resolver, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &Resolver{client: client, close: client.Close}, nil
}

// Resolve returns the payload of a secret version such as
// projects/my-project/secrets/plaid-secret/versions/latest, trimmed of
// surrounding whitespace.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if !strings.HasPrefix(name, "projects/") || !strings.Contains(name, "/secrets/") {
		return "", fmt.Errorf("invalid secret version name %q", name)
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}

	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("error accessing secret %s: %w", name, err)
	}

	value := strings.TrimSpace(string(resp.GetPayload().GetData()))
	if value == "" {
		return "", fmt.Errorf("secret %s is empty", name)
	}
	return value, nil
}

// Close releases the underlying client connection.
func (r *Resolver) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

var newResolver = NewResolver

// Lookup returns value when it is set. Otherwise it reads resource from
// Secret Manager with a short-lived client.
func Lookup(ctx context.Context, value, resource string) (string, error) {
	if value != "" {
		return value, nil
	}
	if resource == "" {
		return "", fmt.Errorf("no value or secret resource configured")
	}

	resolver, err := newResolver(ctx)
	if err != nil {
		return "", err
	}
	defer resolver.Close()

	return resolver.Resolve(ctx, resource)
}
