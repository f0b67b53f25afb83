// Package connector defines the executor contract for proxied backends and
// a registry keyed by connector type. Each backend (api, mysql, postgres,
// clickhouse, mongodb, sqlserver, s3) registers a factory from init(); the
// dispatcher resolves a connector's type to a factory, builds an executor
// from the decrypted config and credentials, and runs exactly one operation
// against it.
package connector

import (
	"context"
	"fmt"
	"net/url"
)

// MaxQueryLimit is the hard cap on rows returned by query operations.
// This protects against unbounded queries that could exhaust the proxy.
const MaxQueryLimit = 1000

// Operation describes one proxied request in backend-neutral terms.
// SQL backends use Query/Params, the API backend uses Endpoint/QueryParams/
// Body, MongoDB uses Collection/Filter/Document, S3 uses Endpoint as object
// key and QueryParams for listing options.
type Operation struct {
	Method string // inbound HTTP verb
	Kind   string // "query", "execute", "find", "insert", "update", "delete", "list", "get", "request"

	// SQL backends
	Query  string
	Params []any

	// API and S3 backends
	Endpoint    string
	QueryParams url.Values
	Headers     map[string]string
	Body        []byte

	// MongoDB backend
	Collection string
	Filter     map[string]any
	Document   map[string]any

	Limit int
}

// Detail returns a short human-readable description of the operation for
// access logging. Callers sanitize it before persisting.
func (o *Operation) Detail() string {
	switch {
	case o.Query != "":
		return o.Query
	case o.Collection != "":
		return fmt.Sprintf("%s %s", o.Kind, o.Collection)
	case o.Endpoint != "":
		return o.Endpoint
	default:
		return o.Kind
	}
}

// ParameterValues flattens every caller-supplied value into a named map for
// injection screening. Positional SQL params become param_1, param_2, ...
func (o *Operation) ParameterValues() map[string]any {
	values := make(map[string]any)
	for i, p := range o.Params {
		values[fmt.Sprintf("param_%d", i+1)] = p
	}
	for name, vals := range o.QueryParams {
		for _, v := range vals {
			values[name] = v
		}
	}
	for name, v := range o.Filter {
		values["filter."+name] = v
	}
	return values
}

// Result is the normalized outcome of one executed operation. Executor
// failures are reported in-band: Status "error" with Error set, never a
// panic or an error that escapes the dispatcher.
type Result struct {
	Status       string           `json:"status"` // "success" or "error"
	Error        string           `json:"error,omitempty"`
	Columns      []string         `json:"columns,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowCount     int              `json:"row_count"`
	RowsAffected int64            `json:"rows_affected,omitempty"`
	Data         any              `json:"data,omitempty"`
	ContentType  string           `json:"content_type,omitempty"`
	HTTPStatus   int              `json:"http_status,omitempty"` // upstream status, API backend only
}

// Success wraps row results in a success Result.
func Success() *Result {
	return &Result{Status: "success"}
}

// Failure converts an executor error into an in-band error Result.
func Failure(err error) *Result {
	return &Result{Status: "error", Error: err.Error()}
}

// Executor runs operations against one backend using already-decrypted
// connection config and credentials. Implementations are stateless between
// calls: each Execute opens a fresh connection and closes it before
// returning. Blocking work is bounded by the context deadline the
// dispatcher sets.
type Executor interface {
	Execute(ctx context.Context, op *Operation) (*Result, error)
}
