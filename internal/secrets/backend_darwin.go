//go:build darwin

package secrets

import "context"

// keychainBackend talks to the macOS Keychain via the security command.
type keychainBackend struct{}

func newPlatformBackend() Backend {
	return keychainBackend{}
}

func (keychainBackend) Lookup(ctx context.Context, service, account string) (string, error) {
	out, err := run(ctx, "security", "find-generic-password", "-s", service, "-a", account, "-w")
	if err != nil || out == "" {
		return "", ErrNotFound
	}

	return out, nil
}

func (b keychainBackend) Store(ctx context.Context, service, account, value string) error {
	// Delete first so stale duplicates never shadow the new entry.
	_ = b.Delete(ctx, service, account)

	_, err := run(ctx, "security", "add-generic-password",
		"-s", service, "-a", account, "-w", value, "-U")

	return err
}

func (keychainBackend) Delete(ctx context.Context, service, account string) error {
	_, _ = run(ctx, "security", "delete-generic-password", "-s", service, "-a", account)
	return nil
}

func (keychainBackend) Available() bool { return true }
