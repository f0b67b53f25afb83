package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// Test key generated with: openssl rand -base64 32
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM=" // "test-key-for-unit-tests-32-bytes"

type staticKeyProvider string

func (p staticKeyProvider) GetKey() (string, error) { return string(p), nil }

func newTestEncryptor(t *testing.T, key string) *CredentialEncryptor {
	t.Helper()
	enc, err := NewCredentialEncryptor(staticKeyProvider(key))
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}
	return enc
}

func TestNewCredentialEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid 32-byte base64 key",
			key:     testKey,
			wantErr: false,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
			errMsg:  "invalid encryption key",
		},
		{
			name:    "passphrase (not base64) - hashed to 32 bytes",
			key:     "my-simple-passphrase",
			wantErr: false,
		},
		{
			name:    "short base64 key - hashed to 32 bytes",
			key:     base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key")),
			wantErr: false,
		},
		{
			name:    "long base64 key - hashed to 32 bytes",
			key:     base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 64))),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewCredentialEncryptor(staticKeyProvider(tt.key))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if enc == nil {
				t.Error("expected non-nil encryptor")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t, testKey)

	plaintexts := []string{
		"simple",
		`{"host":"db.internal","password":"s3cret!"}`,
		strings.Repeat("long payload ", 100),
		"unicode: héllo wörld 日本語",
	}

	for _, plaintext := range plaintexts {
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		if ciphertext == plaintext {
			t.Error("ciphertext equals plaintext")
		}

		decrypted, err := enc.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip mismatch: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptEmptyStringPassthrough(t *testing.T) {
	enc := newTestEncryptor(t, testKey)

	ciphertext, err := enc.Encrypt("")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if ciphertext != "" {
		t.Errorf("expected empty passthrough, got %q", ciphertext)
	}

	decrypted, err := enc.Decrypt("")
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if decrypted != "" {
		t.Errorf("expected empty passthrough, got %q", decrypted)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	enc1 := newTestEncryptor(t, testKey)
	enc2 := newTestEncryptor(t, "a-completely-different-passphrase")

	ciphertext, err := enc1.Encrypt("secret credentials")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	_, err = enc2.Decrypt(ciphertext)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecryptGarbage(t *testing.T) {
	enc := newTestEncryptor(t, testKey)

	for _, input := range []string{"not-base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := enc.Decrypt(input); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("Decrypt(%q): expected ErrDecryptionFailed, got %v", input, err)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	enc := newTestEncryptor(t, testKey)

	first, err := enc.Encrypt("same input")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := enc.Encrypt("same input")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if first == second {
		t.Error("expected unique nonces to produce distinct ciphertexts")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t, testKey)

	payload := map[string]any{
		"host":     "db.internal",
		"port":     float64(5432),
		"password": "hunter2",
	}

	ciphertext, err := enc.EncryptJSON(payload)
	if err != nil {
		t.Fatalf("EncryptJSON failed: %v", err)
	}

	decrypted, err := enc.DecryptJSON(ciphertext)
	if err != nil {
		t.Fatalf("DecryptJSON failed: %v", err)
	}

	if decrypted["host"] != "db.internal" || decrypted["port"] != float64(5432) || decrypted["password"] != "hunter2" {
		t.Errorf("round trip mismatch: %v", decrypted)
	}
}

func TestDecryptJSONEmpty(t *testing.T) {
	enc := newTestEncryptor(t, testKey)

	payload, err := enc.DecryptJSON("")
	if err != nil {
		t.Fatalf("DecryptJSON failed: %v", err)
	}
	if len(payload) != 0 {
		t.Errorf("expected empty map, got %v", payload)
	}
}
