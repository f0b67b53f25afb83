package handlers

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/services"
)

// maxProxyBodyBytes caps inbound proxy request bodies.
const maxProxyBodyBytes = 10 << 20

// proxyBody is the JSON envelope accepted on proxy requests. SQL connectors
// read query/params, MongoDB reads collection/operation/filter/document.
// API connectors receive the raw body as-is, so none of these fields are
// required.
type proxyBody struct {
	Query      string         `json:"query"`
	Params     []any          `json:"params"`
	Limit      int            `json:"limit"`
	Collection string         `json:"collection"`
	Operation  string         `json:"operation"`
	Filter     map[string]any `json:"filter"`
	Document   map[string]any `json:"document"`
}

// ProxyHandler handles the public dispatch endpoints. These routes carry no
// platform middleware: the dispatcher enforces auth and link policy itself,
// because public connectors and share links are reachable without a token.
type ProxyHandler struct {
	dispatcher services.DispatcherService
	logger     *zap.Logger
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(dispatcher services.DispatcherService, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{dispatcher: dispatcher, logger: logger}
}

// RegisterRoutes registers the dispatch routes on the given mux. The
// literal "share" segment takes precedence over the {proxy_type} wildcard.
func (h *ProxyHandler) RegisterRoutes(mux *http.ServeMux) {
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		mux.HandleFunc(method+" /api/proxy/share/{share_id}", h.DispatchShared)
		mux.HandleFunc(method+" /api/proxy/share/{share_id}/{endpoint...}", h.DispatchShared)
		mux.HandleFunc(method+" /api/proxy/{proxy_type}/{name}", h.DispatchDirect)
		mux.HandleFunc(method+" /api/proxy/{proxy_type}/{name}/{endpoint...}", h.DispatchDirect)
	}
}

// StandaloneMux returns a mux for one dedicated backend listener, where the
// backend type is fixed by the port rather than the path.
func (h *ProxyHandler) StandaloneMux(proxyType string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		mux.HandleFunc(method+" /{name}", h.standaloneDirect(proxyType))
		mux.HandleFunc(method+" /{name}/{endpoint...}", h.standaloneDirect(proxyType))
	}
	return mux
}

// ShareMux returns the mux for the dedicated share-link listener.
func (h *ProxyHandler) ShareMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		mux.HandleFunc(method+" /{share_id}", h.standaloneShared)
		mux.HandleFunc(method+" /{share_id}/{endpoint...}", h.standaloneShared)
	}
	return mux
}

func (h *ProxyHandler) standaloneDirect(proxyType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.buildRequest(w, r)
		if !ok {
			return
		}
		req.ProxyType = proxyType
		req.Name = r.PathValue("name")

		result, err := h.dispatcher.DispatchDirect(r.Context(), req)
		h.respond(w, result, err)
	}
}

func (h *ProxyHandler) standaloneShared(w http.ResponseWriter, r *http.Request) {
	req, ok := h.buildRequest(w, r)
	if !ok {
		return
	}
	req.ShareID = r.PathValue("share_id")

	result, err := h.dispatcher.DispatchShared(r.Context(), req)
	h.respond(w, result, err)
}

// DispatchDirect handles /api/proxy/{proxy_type}/{name}[/{endpoint...}].
func (h *ProxyHandler) DispatchDirect(w http.ResponseWriter, r *http.Request) {
	req, ok := h.buildRequest(w, r)
	if !ok {
		return
	}
	req.ProxyType = r.PathValue("proxy_type")
	req.Name = r.PathValue("name")

	result, err := h.dispatcher.DispatchDirect(r.Context(), req)
	h.respond(w, result, err)
}

// DispatchShared handles /api/proxy/share/{share_id}[/{endpoint...}].
func (h *ProxyHandler) DispatchShared(w http.ResponseWriter, r *http.Request) {
	req, ok := h.buildRequest(w, r)
	if !ok {
		return
	}
	req.ShareID = r.PathValue("share_id")

	result, err := h.dispatcher.DispatchShared(r.Context(), req)
	h.respond(w, result, err)
}

// buildRequest decodes the inbound request into a backend-neutral dispatch
// request. The raw body is preserved for API connectors; the JSON envelope
// fields are extracted for database connectors.
func (h *ProxyHandler) buildRequest(w http.ResponseWriter, r *http.Request) (*services.DispatchRequest, bool) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return nil, false
	}

	var body proxyBody
	if len(raw) > 0 {
		// Non-JSON bodies are legal for API connectors; the envelope stays
		// empty and the raw bytes are forwarded.
		_ = json.Unmarshal(raw, &body)
	}

	query := r.URL.Query()
	token := extractToken(r)
	// The token must never reach a downstream backend or an access log.
	query.Del("token")

	if body.Query == "" {
		body.Query = query.Get("query")
		query.Del("query")
	}
	if body.Limit == 0 {
		if v := query.Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				body.Limit = parsed
				query.Del("limit")
			}
		}
	}
	if body.Operation == "" {
		body.Operation = query.Get("operation")
		query.Del("operation")
	}

	headers := map[string]string{}
	for _, name := range []string{"Accept", "Content-Type"} {
		if v := r.Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	op := &connector.Operation{
		Method:      r.Method,
		Kind:        deriveKind(r.Method, &body),
		Query:       body.Query,
		Params:      body.Params,
		Endpoint:    r.PathValue("endpoint"),
		QueryParams: query,
		Headers:     headers,
		Body:        raw,
		Collection:  body.Collection,
		Filter:      body.Filter,
		Document:    body.Document,
		Limit:       body.Limit,
	}

	return &services.DispatchRequest{
		Token:     token,
		Method:    r.Method,
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
		Operation: op,
	}, true
}

// respond writes the dispatch outcome. Policy and platform errors map to
// HTTP status codes; backend failures arrive as in-band error results and
// go out with HTTP 200.
func (h *ProxyHandler) respond(w http.ResponseWriter, result *connector.Result, err error) {
	if err != nil {
		status := apperrors.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("dispatch failed", zap.Error(err))
			h.writeError(w, status, "internal_error", "Proxy dispatch failed")
			return
		}
		h.writeError(w, status, errorCode(err), publicMessage(err))
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write dispatch response", zap.Error(err))
	}
}

func (h *ProxyHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// errorCode picks the machine-readable code for a policy error.
func errorCode(err error) string {
	switch apperrors.HTTPStatus(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "invalid_request"
	}
}

// publicMessage keeps 404 responses generic so callers cannot probe for
// connector or tenant names.
func publicMessage(err error) string {
	if apperrors.HTTPStatus(err) == http.StatusNotFound {
		return "Proxy endpoint not found"
	}
	return err.Error()
}

// deriveKind picks the operation kind when the caller didn't name one.
func deriveKind(method string, body *proxyBody) string {
	if body.Operation != "" {
		return strings.ToLower(body.Operation)
	}
	if body.Query != "" {
		if connector.IsReadQuery(body.Query) {
			return "query"
		}
		return "execute"
	}
	if body.Collection != "" {
		switch method {
		case http.MethodPost:
			if body.Document != nil {
				return "insert"
			}
			return "find"
		case http.MethodPut, http.MethodPatch:
			return "update"
		case http.MethodDelete:
			return "delete"
		default:
			return "find"
		}
	}
	return ""
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
