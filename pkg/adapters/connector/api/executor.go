// Package api implements the executor for proxied REST backends. The proxy
// forwards the caller's path, query parameters, and body to the upstream
// base URL, injecting stored credentials so the caller never sees them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

const requestTimeout = 30 * time.Second

// maxResponseBytes caps how much of an upstream response is buffered and
// returned. Larger bodies are truncated with a note in the result.
const maxResponseBytes = 10 << 20

// Config holds the upstream API connection settings.
type Config struct {
	BaseURL   string
	AuthType  string // "api_key", "bearer", "basic", "none"
	KeyHeader string // header name for api_key auth, default X-API-Key
}

// ConfigFromMap parses decrypted connector config into an API Config.
func ConfigFromMap(config map[string]any) (*Config, error) {
	baseURL, err := connector.StringFromConfig(config, "base_url")
	if err != nil {
		// Some connectors store the target under url instead.
		baseURL, err = connector.StringFromConfig(config, "url")
		if err != nil {
			return nil, fmt.Errorf("base_url is required for api connectors")
		}
	}

	return &Config{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AuthType:  connector.OptionalString(config, "auth_type", "api_key"),
		KeyHeader: connector.OptionalString(config, "key_header", "X-API-Key"),
	}, nil
}

// Executor forwards operations to an upstream HTTP API.
type Executor struct {
	cfg         *Config
	credentials map[string]any
	client      *http.Client
}

var _ connector.Executor = (*Executor)(nil)

// NewExecutor creates an API executor from decrypted config and credentials.
func NewExecutor(config, credentials map[string]any) (connector.Executor, error) {
	cfg, err := ConfigFromMap(config)
	if err != nil {
		return nil, err
	}

	return &Executor{
		cfg:         cfg,
		credentials: credentials,
		client:      &http.Client{Timeout: requestTimeout},
	}, nil
}

// Execute performs one HTTP request against the upstream API. Upstream
// error statuses are reported in-band via Result.HTTPStatus, not as
// executor errors.
func (e *Executor) Execute(ctx context.Context, op *connector.Operation) (*connector.Result, error) {
	target := e.cfg.BaseURL
	if op.Endpoint != "" {
		target += "/" + strings.TrimLeft(op.Endpoint, "/")
	}
	if len(op.QueryParams) > 0 {
		target += "?" + op.QueryParams.Encode()
	}

	var body io.Reader
	if len(op.Body) > 0 {
		body = bytes.NewReader(op.Body)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}

	if len(op.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range op.Headers {
		req.Header.Set(name, value)
	}
	e.injectCredentials(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}

	result := &connector.Result{
		Status:      "success",
		HTTPStatus:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if strings.Contains(result.ContentType, "application/json") {
		var decoded any
		if err := json.Unmarshal(payload, &decoded); err == nil {
			result.Data = decoded
			return result, nil
		}
	}
	result.Data = string(payload)
	return result, nil
}

// injectCredentials adds stored auth material to the upstream request.
// Caller-supplied Authorization headers are overwritten so clients cannot
// substitute their own credentials.
func (e *Executor) injectCredentials(req *http.Request) {
	switch e.cfg.AuthType {
	case "bearer":
		if token, ok := e.credentials["token"].(string); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	case "basic":
		user, _ := e.credentials["username"].(string)
		pass, _ := e.credentials["password"].(string)
		if user != "" {
			req.SetBasicAuth(user, pass)
		}
	case "none":
	default:
		if key, ok := e.credentials["api_key"].(string); ok && key != "" {
			req.Header.Set(e.cfg.KeyHeader, key)
		}
	}
}
