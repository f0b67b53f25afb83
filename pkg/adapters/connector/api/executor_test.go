package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func TestConfigFromMap(t *testing.T) {
	t.Run("base_url required", func(t *testing.T) {
		_, err := ConfigFromMap(map[string]any{})
		assert.Error(t, err)
	})

	t.Run("url alias accepted", func(t *testing.T) {
		cfg, err := ConfigFromMap(map[string]any{"url": "https://api.example.com/"})
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, err := ConfigFromMap(map[string]any{"base_url": "https://api.example.com"})
		require.NoError(t, err)
		assert.Equal(t, "api_key", cfg.AuthType)
		assert.Equal(t, "X-API-Key", cfg.KeyHeader)
	})
}

func TestExecuteInjectsAPIKey(t *testing.T) {
	var gotKey, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[1,2,3]}`))
	}))
	defer upstream.Close()

	exec, err := NewExecutor(
		map[string]any{"base_url": upstream.URL},
		map[string]any{"api_key": "stored-secret-key"},
	)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), &connector.Operation{
		Method:   "GET",
		Endpoint: "v1/items",
		Headers:  map[string]string{"Authorization": "Bearer attacker-token"},
	})
	require.NoError(t, err)

	assert.Equal(t, "stored-secret-key", gotKey)
	assert.Equal(t, "Bearer attacker-token", gotAuth)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)

	data, ok := result.Data.(map[string]any)
	require.True(t, ok, "JSON response should be decoded")
	assert.Len(t, data["items"], 3)
}

func TestExecuteBearerOverridesCallerAuth(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	exec, err := NewExecutor(
		map[string]any{"base_url": upstream.URL, "auth_type": "bearer"},
		map[string]any{"token": "stored-token"},
	)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), &connector.Operation{
		Method:  "GET",
		Headers: map[string]string{"Authorization": "Bearer caller-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer stored-token", gotAuth)
}

func TestExecuteForwardsQueryAndReportsUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream broke"))
	}))
	defer upstream.Close()

	exec, err := NewExecutor(map[string]any{"base_url": upstream.URL, "auth_type": "none"}, nil)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), &connector.Operation{
		Method:      "GET",
		QueryParams: url.Values{"status": {"active"}},
	})
	require.NoError(t, err)

	// Upstream errors are in-band data, not executor failures.
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, http.StatusBadGateway, result.HTTPStatus)
	assert.Equal(t, "upstream broke", result.Data)
}

func TestExecuteUnreachableUpstream(t *testing.T) {
	exec, err := NewExecutor(map[string]any{"base_url": "http://127.0.0.1:1", "auth_type": "none"}, nil)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), &connector.Operation{Method: "GET"})
	assert.Error(t, err)
}
