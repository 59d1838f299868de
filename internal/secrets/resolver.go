package secrets

import (
	"context"
	"os"
)

// Secure-storage service name suffixes for the two credential kinds.
const (
	clientIDSuffix     = "-Xero-Client-ID"
	clientSecretSuffix = "-Xero-Client-Secret"
)

// Environment fallbacks, not profile-qualified. Intended for
// single-profile deployments where the secret store is unavailable.
const (
	envClientID     = "XERO_CLIENT_ID"
	envClientSecret = "XERO_CLIENT_SECRET"
)

// ClientIDService returns the secret-store service name holding the
// client ID for a profile keychain prefix.
func ClientIDService(prefix string) string { return prefix + clientIDSuffix }

// ClientSecretService returns the secret-store service name holding the
// client secret for a profile keychain prefix.
func ClientSecretService(prefix string) string { return prefix + clientSecretSuffix }

// Resolver resolves client credentials per profile. Lookup order, first
// hit wins: explicit value, secret-store entry, environment variable.
// Resolution never writes and never fails; a miss is an empty string.
type Resolver struct {
	backend Backend

	// getenv is swappable in tests.
	getenv func(string) string
}

// NewResolver creates a resolver over the given backend.
func NewResolver(backend Backend) *Resolver {
	return &Resolver{backend: backend, getenv: os.Getenv}
}

// Backend exposes the underlying store for credential-management tools.
func (r *Resolver) Backend() Backend { return r.backend }

// ClientID resolves the client ID for a profile keychain prefix.
func (r *Resolver) ClientID(ctx context.Context, prefix, explicit string) string {
	return r.resolve(ctx, explicit, ClientIDService(prefix), envClientID)
}

// ClientSecret resolves the client secret for a profile keychain prefix.
func (r *Resolver) ClientSecret(ctx context.Context, prefix, explicit string) string {
	return r.resolve(ctx, explicit, ClientSecretService(prefix), envClientSecret)
}

// Configured reports whether both credentials resolve to non-empty
// values for the given keychain prefix.
func (r *Resolver) Configured(ctx context.Context, prefix string) bool {
	return r.ClientID(ctx, prefix, "") != "" && r.ClientSecret(ctx, prefix, "") != ""
}

func (r *Resolver) resolve(ctx context.Context, explicit, service, envKey string) string {
	if explicit != "" {
		return explicit
	}

	if v, err := r.backend.Lookup(ctx, service, Account); err == nil && v != "" {
		return v
	}

	return r.getenv(envKey)
}
