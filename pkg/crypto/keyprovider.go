package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
)

// KeyProvider supplies the symmetric key used to encrypt connector
// credentials. Injecting it keeps key sourcing (env var, key file, external
// secret store) out of the encryption and dispatch code paths.
type KeyProvider interface {
	// GetKey returns the key material. Implementations may return a raw
	// 32-byte key encoded as base64 or an arbitrary passphrase; see
	// NewCredentialEncryptor for how both are handled.
	GetKey() (string, error)
}

// EnvKeyProvider reads the key from an environment variable at construction
// time. The variable must be set; an empty key is a startup failure, not a
// runtime one.
type EnvKeyProvider struct {
	key string
}

// NewEnvKeyProvider reads envVar immediately and fails if it is unset.
func NewEnvKeyProvider(envVar string) (*EnvKeyProvider, error) {
	key := os.Getenv(envVar)
	if key == "" {
		return nil, fmt.Errorf("%s not set", envVar)
	}
	return &EnvKeyProvider{key: key}, nil
}

// GetKey returns the key captured at construction.
func (p *EnvKeyProvider) GetKey() (string, error) {
	return p.key, nil
}

// FileKeyProvider persists a randomly generated key to a local file on first
// use. If the file exists its contents are used as-is; if it cannot be
// written the generated key is held in memory only, which means all
// ciphertexts become unreadable after restart. Not suitable for production
// secret management; intended for development and single-node deployments.
type FileKeyProvider struct {
	path string

	mu  sync.Mutex
	key string
}

// NewFileKeyProvider creates a provider backed by the given key file path.
// The file is not touched until GetKey is first called.
func NewFileKeyProvider(path string) *FileKeyProvider {
	return &FileKeyProvider{path: path}
}

// GetKey loads the key file, generating and persisting a new 32-byte key if
// the file does not exist yet.
func (p *FileKeyProvider) GetKey() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != "" {
		return p.key, nil
	}

	if data, err := os.ReadFile(p.path); err == nil && len(data) > 0 {
		p.key = string(data)
		return p.key, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	key := base64.StdEncoding.EncodeToString(raw)

	// Best effort: keep the key in memory even if the filesystem is
	// read-only so the current process can still operate.
	if err := os.WriteFile(p.path, []byte(key), 0o600); err != nil {
		p.key = key
		return key, nil
	}

	p.key = key
	return key, nil
}
