package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromMap(t *testing.T) {
	t.Run("remote host requires ssl", func(t *testing.T) {
		cfg, err := ConfigFromMap(
			map[string]any{"host": "db.internal", "database": "app"},
			map[string]any{"username": "svc", "password": "pw"},
		)
		require.NoError(t, err)
		assert.Equal(t, "require", cfg.SSLMode)
		assert.Equal(t, 5432, cfg.Port)
	})

	t.Run("localhost disables ssl", func(t *testing.T) {
		cfg, err := ConfigFromMap(
			map[string]any{"host": "localhost", "database": "app"},
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, "disable", cfg.SSLMode)
		assert.Equal(t, "postgres", cfg.Username)
	})

	t.Run("explicit ssl_mode wins", func(t *testing.T) {
		cfg, err := ConfigFromMap(
			map[string]any{"host": "localhost", "database": "app", "ssl_mode": "verify-full"},
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, "verify-full", cfg.SSLMode)
	})
}

func TestConnectionString(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		Database: "app",
		Username: "svc",
		Password: "p@ss/word",
		SSLMode:  "require",
	}

	got := cfg.ConnectionString()
	assert.Contains(t, got, "db.internal:5433/app")
	assert.Contains(t, got, "sslmode=require")
	// Special characters in credentials must be escaped.
	assert.NotContains(t, got, "p@ss/word")
}
