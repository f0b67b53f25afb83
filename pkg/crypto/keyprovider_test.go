package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvKeyProvider(t *testing.T) {
	t.Setenv("TEST_PROXY_KEY", "some-key-material")

	provider, err := NewEnvKeyProvider("TEST_PROXY_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key, err := provider.GetKey()
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if key != "some-key-material" {
		t.Errorf("got %q", key)
	}
}

func TestEnvKeyProviderUnset(t *testing.T) {
	if _, err := NewEnvKeyProvider("TEST_PROXY_KEY_UNSET"); err == nil {
		t.Error("expected error for unset variable")
	}
}

func TestFileKeyProviderGeneratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	provider := NewFileKeyProvider(path)

	key, err := provider.GetKey()
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if key == "" {
		t.Fatal("expected generated key")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if string(data) != key {
		t.Error("persisted key differs from returned key")
	}

	// A second provider against the same file must load the same key.
	again, err := NewFileKeyProvider(path).GetKey()
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if again != key {
		t.Error("expected stable key across providers")
	}
}

func TestFileKeyProviderReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("preexisting-key"), 0o600); err != nil {
		t.Fatal(err)
	}

	key, err := NewFileKeyProvider(path).GetKey()
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if key != "preexisting-key" {
		t.Errorf("got %q", key)
	}
}
