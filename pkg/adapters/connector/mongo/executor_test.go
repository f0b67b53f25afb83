package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromMap(t *testing.T) {
	cfg, err := ConfigFromMap(
		map[string]any{"host": "mongo.internal", "database": "app"},
		map[string]any{"username": "svc", "password": "pw"},
	)
	require.NoError(t, err)
	assert.Equal(t, 27017, cfg.Port)

	_, err = ConfigFromMap(map[string]any{"host": "mongo.internal"}, nil)
	assert.Error(t, err)
}

func TestURI(t *testing.T) {
	t.Run("with credentials", func(t *testing.T) {
		cfg := &Config{Host: "mongo.internal", Port: 27017, Database: "app", Username: "svc", Password: "p@ss"}
		uri := cfg.URI()
		assert.Contains(t, uri, "mongodb://")
		assert.Contains(t, uri, "authSource=admin")
		// Special characters must be escaped.
		assert.NotContains(t, uri, "p@ss@")
	})

	t.Run("without credentials", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 27017, Database: "app"}
		assert.Equal(t, "mongodb://localhost:27017/app", cfg.URI())
	})
}
