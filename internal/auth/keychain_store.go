package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexjbarnes/xero-mcp/internal/secrets"
)

// tokenServiceSuffix completes the secret-store service name for a
// profile's token record ("SP-Xero" for keychain prefix "SP").
const tokenServiceSuffix = "-Xero"

// KeychainStore persists the TokenSet for one profile in the OS secret
// store. The store's own update semantics give atomic whole-record
// replacement; access control comes from the OS.
type KeychainStore struct {
	backend secrets.Backend
	service string
}

// NewKeychainStore creates a secret-store-backed token store for the
// given profile keychain prefix.
func NewKeychainStore(backend secrets.Backend, keychainPrefix string) *KeychainStore {
	return &KeychainStore{
		backend: backend,
		service: keychainPrefix + tokenServiceSuffix,
	}
}

func (s *KeychainStore) Save(tokens *TokenSet) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("serializing tokens: %w", err)
	}

	if err := s.backend.Store(context.Background(), s.service, secrets.Account, string(data)); err != nil {
		return fmt.Errorf("saving tokens to secret store: %w", err)
	}

	return nil
}

func (s *KeychainStore) Load() *TokenSet {
	data, err := s.backend.Lookup(context.Background(), s.service, secrets.Account)
	if err != nil || data == "" {
		return nil
	}

	var tokens TokenSet
	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		return nil
	}

	return &tokens
}

func (s *KeychainStore) Delete() error {
	return s.backend.Delete(context.Background(), s.service, secrets.Account)
}

func (s *KeychainStore) Exists() bool {
	return s.Load() != nil
}

func (s *KeychainStore) SetActiveTenant(idOrCode string) bool {
	return setActiveTenant(s, idOrCode)
}
