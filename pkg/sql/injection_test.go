package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckParameterForInjection(t *testing.T) {
	t.Run("classic injection detected", func(t *testing.T) {
		result := CheckParameterForInjection("user_id", "1' OR '1'='1")
		require.NotNil(t, result)
		assert.True(t, result.IsSQLi)
		assert.Equal(t, "user_id", result.ParamName)
		assert.NotEmpty(t, result.Fingerprint)
	})

	t.Run("union select detected", func(t *testing.T) {
		result := CheckParameterForInjection("q", "x' UNION SELECT password FROM users--")
		require.NotNil(t, result)
		assert.True(t, result.IsSQLi)
	})

	t.Run("clean value passes", func(t *testing.T) {
		assert.Nil(t, CheckParameterForInjection("name", "alice"))
		assert.Nil(t, CheckParameterForInjection("city", "San Francisco"))
	})

	t.Run("non-string values skipped", func(t *testing.T) {
		assert.Nil(t, CheckParameterForInjection("count", 42))
		assert.Nil(t, CheckParameterForInjection("flag", true))
		assert.Nil(t, CheckParameterForInjection("ratio", 3.14))
		assert.Nil(t, CheckParameterForInjection("nothing", nil))
	})
}

func TestCheckAllParameters(t *testing.T) {
	t.Run("all clean", func(t *testing.T) {
		results := CheckAllParameters(map[string]any{
			"name":  "bob",
			"limit": 10,
		})
		assert.Empty(t, results)
	})

	t.Run("one dirty parameter reported", func(t *testing.T) {
		results := CheckAllParameters(map[string]any{
			"name":    "bob",
			"user_id": "1'; DROP TABLE users--",
		})
		require.Len(t, results, 1)
		assert.Equal(t, "user_id", results[0].ParamName)
	})
}
