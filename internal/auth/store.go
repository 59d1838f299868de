package auth

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// storeDirPerm is the permission mode for the state directory
	// (~/.xero-mcp/).
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the token database file.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt
	// database lock.
	storeOpenTimeout = 5 * time.Second
)

var tokensBucket = []byte("tokens")

// TokenStore persists one TokenSet per profile. Load degrades to nil on
// any miss or corruption; Delete is idempotent.
type TokenStore interface {
	Save(tokens *TokenSet) error
	Load() *TokenSet
	Delete() error
	Exists() bool
	// SetActiveTenant rewrites the stored TenantID after resolving the
	// given tenant ID or short code against the stored tenant list.
	// Returns false without side effects on no match or no tokens.
	SetActiveTenant(idOrCode string) bool
}

// setActiveTenant implements the shared tenant-switch contract on top
// of any TokenStore.
func setActiveTenant(s TokenStore, idOrCode string) bool {
	tokens := s.Load()
	if tokens == nil {
		return false
	}

	id, ok := tokens.ResolveTenant(idOrCode)
	if !ok {
		return false
	}

	tokens.TenantID = id

	return s.Save(tokens) == nil
}

// BoltDB is the encrypted token database shared by all file-backed
// profile stores. Each profile's TokenSet is sealed with a key derived
// from machine+user identity and stored under its profile name; a
// record sealed elsewhere fails to open and reads as absent.
type BoltDB struct {
	db  *bolt.DB
	key []byte
}

// OpenBolt opens (creating if needed) the token database at path with
// the sealing key derived from this machine and user.
func OpenBolt(path string) (*BoltDB, error) {
	return OpenBoltWithIdentity(path, machineIdentity())
}

// OpenBoltWithIdentity opens the token database with an explicit
// key-derivation identity. Useful for tests that need a stable key.
func OpenBoltWithIdentity(path, identity string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("creating token store directory: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tokensBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing token store: %w", err)
	}

	return &BoltDB{db: db, key: deriveSealKey(identity)}, nil
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// ForProfile returns the TokenStore view for one profile name.
func (b *BoltDB) ForProfile(name string) TokenStore {
	return &boltStore{db: b, profile: name}
}

// DefaultBoltPath returns ~/.xero-mcp/tokens.db.
func DefaultBoltPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".xero-mcp", "tokens.db"), nil
}

// boltStore is one profile's slice of the shared encrypted database.
type boltStore struct {
	db      *BoltDB
	profile string
}

func (s *boltStore) Save(tokens *TokenSet) error {
	plaintext, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("serializing tokens: %w", err)
	}

	sealed, err := seal(s.db.key, plaintext)
	if err != nil {
		return fmt.Errorf("sealing tokens: %w", err)
	}

	err = s.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Put([]byte(s.profile), sealed)
	})
	if err != nil {
		return fmt.Errorf("persisting tokens: %w", err)
	}

	return nil
}

func (s *boltStore) Load() *TokenSet {
	var sealed []byte

	_ = s.db.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(tokensBucket).Get([]byte(s.profile)); v != nil {
			sealed = append([]byte(nil), v...)
		}

		return nil
	})

	if sealed == nil {
		return nil
	}

	plaintext, err := open(s.db.key, sealed)
	if err != nil {
		// Different machine/user or corrupt record: treat as absent.
		return nil
	}

	var tokens TokenSet
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil
	}

	return &tokens
}

func (s *boltStore) Delete() error {
	return s.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Delete([]byte(s.profile))
	})
}

func (s *boltStore) Exists() bool {
	return s.Load() != nil
}

func (s *boltStore) SetActiveTenant(idOrCode string) bool {
	return setActiveTenant(s, idOrCode)
}
