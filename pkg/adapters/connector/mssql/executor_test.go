package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromMap(t *testing.T) {
	cfg, err := ConfigFromMap(
		map[string]any{"host": "sql.internal", "database": "app"},
		map[string]any{"username": "svc", "password": "pw"},
	)
	require.NoError(t, err)
	assert.Equal(t, 1433, cfg.Port)
	assert.Equal(t, "svc", cfg.Username)

	_, err = ConfigFromMap(map[string]any{"host": "sql.internal"}, nil)
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	t.Run("remote host encrypts", func(t *testing.T) {
		cfg := &Config{Host: "sql.internal", Port: 1433, Database: "app", Username: "svc", Password: "pw"}
		got := cfg.ConnectionString()
		assert.Contains(t, got, "sqlserver://")
		assert.Contains(t, got, "encrypt=true")
		assert.Contains(t, got, "database=app")
	})

	t.Run("localhost disables encryption", func(t *testing.T) {
		cfg := &Config{Host: "127.0.0.1", Port: 1433, Database: "app", Username: "sa"}
		assert.Contains(t, cfg.ConnectionString(), "encrypt=disable")
	})
}
