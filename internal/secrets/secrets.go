// Package secrets provides access to the host OS secret store through a
// short-lived external process per operation. One backend implementation
// exists per platform, selected at startup; platforms without a usable
// store get a backend that reports every entry as absent.
package secrets

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Account is the fixed secret-store account name shared by every entry
// this process owns.
const Account = "xero-mcp"

// lookupTimeout bounds each external secret-store invocation so a hung
// keychain prompt cannot stall the caller indefinitely.
const lookupTimeout = 5 * time.Second

// ErrNotFound is returned when an entry is absent, the store tooling is
// missing, or the lookup timed out. Callers treat all three identically.
var ErrNotFound = errors.New("secret not found")

// Backend is the capability interface over one platform's secret store.
// Lookup must degrade to ErrNotFound rather than failing loudly.
type Backend interface {
	// Lookup returns the stored value for service/account.
	Lookup(ctx context.Context, service, account string) (string, error)
	// Store writes or replaces the value for service/account.
	Store(ctx context.Context, service, account, value string) error
	// Delete removes the entry for service/account. Idempotent.
	Delete(ctx context.Context, service, account string) error
	// Available reports whether this platform has a usable store.
	Available() bool
}

// NewBackend returns the secret-store backend for the host OS.
func NewBackend() Backend {
	return newPlatformBackend()
}

// run executes an external store command under the lookup timeout and
// returns its trimmed stdout. Missing binaries, non-zero exits, and
// timeouts all collapse into ErrNotFound.
func run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var stdout bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", ErrNotFound
	}

	return strings.TrimSpace(stdout.String()), nil
}

// storeWithStdin executes a store command feeding value on stdin, under
// the same timeout policy as run.
func storeWithStdin(ctx context.Context, value, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(value)

	return cmd.Run()
}

// unavailableBackend reports every entry as absent. Used on platforms
// without a supported secret store.
type unavailableBackend struct{}

func (unavailableBackend) Lookup(context.Context, string, string) (string, error) {
	return "", ErrNotFound
}

func (unavailableBackend) Store(context.Context, string, string, string) error {
	return errors.New("no secret store available on this platform")
}

func (unavailableBackend) Delete(context.Context, string, string) error { return nil }

func (unavailableBackend) Available() bool { return false }
