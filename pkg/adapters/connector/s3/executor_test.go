package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromMap(t *testing.T) {
	t.Run("bucket required", func(t *testing.T) {
		_, err := ConfigFromMap(map[string]any{})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, err := ConfigFromMap(map[string]any{"bucket": "data"})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", cfg.Region)
		assert.Empty(t, cfg.Endpoint)
	})

	t.Run("s3-compatible endpoint", func(t *testing.T) {
		cfg, err := ConfigFromMap(map[string]any{
			"bucket":   "data",
			"region":   "auto",
			"endpoint": "https://minio.internal:9000",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://minio.internal:9000", cfg.Endpoint)
		assert.Equal(t, "auto", cfg.Region)
	})
}
