package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/auth"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/services"
)

// TenantMiddleware wraps a handler with a tenant-scoped database connection.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ApiResponse wraps data in the format expected by the platform frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusUpdateRequest toggles a connector's active flag.
type StatusUpdateRequest struct {
	IsActive bool `json:"is_active"`
}

// ConnectorsHandler handles connector management HTTP requests. All routes
// require platform authentication and run in the caller's tenant scope.
type ConnectorsHandler struct {
	connectors services.ConnectorService
	links      services.ShareLinkService
	analytics  services.AnalyticsService
	logger     *zap.Logger
}

// NewConnectorsHandler creates a new connectors handler.
func NewConnectorsHandler(
	connectors services.ConnectorService,
	links services.ShareLinkService,
	analytics services.AnalyticsService,
	logger *zap.Logger,
) *ConnectorsHandler {
	return &ConnectorsHandler{
		connectors: connectors,
		links:      links,
		analytics:  analytics,
		logger:     logger,
	}
}

// RegisterRoutes registers the connector management routes on the given mux.
func (h *ConnectorsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/connectors",
		authMiddleware.RequireAuth(tenantMiddleware(h.List)))
	mux.HandleFunc("POST /api/connectors",
		authMiddleware.RequireAuth(tenantMiddleware(h.Create)))
	mux.HandleFunc("GET /api/connectors/types",
		authMiddleware.RequireAuth(h.Types))
	mux.HandleFunc("GET /api/connectors/{id}",
		authMiddleware.RequireAuth(tenantMiddleware(h.Get)))
	mux.HandleFunc("PUT /api/connectors/{id}",
		authMiddleware.RequireAuth(tenantMiddleware(h.Update)))
	mux.HandleFunc("PATCH /api/connectors/{id}/status",
		authMiddleware.RequireAuth(tenantMiddleware(h.UpdateStatus)))
	mux.HandleFunc("DELETE /api/connectors/{id}",
		authMiddleware.RequireAuth(tenantMiddleware(h.Delete)))

	mux.HandleFunc("POST /api/connectors/{id}/shared-links",
		authMiddleware.RequireAuth(tenantMiddleware(h.IssueLink)))
	mux.HandleFunc("GET /api/connectors/{id}/shared-links",
		authMiddleware.RequireAuth(tenantMiddleware(h.ListLinks)))
	mux.HandleFunc("DELETE /api/connectors/{id}/shared-links/{link_id}",
		authMiddleware.RequireAuth(tenantMiddleware(h.RevokeLink)))

	mux.HandleFunc("GET /api/connectors/{id}/stats",
		authMiddleware.RequireAuth(tenantMiddleware(h.Stats)))
	mux.HandleFunc("GET /api/connectors/{id}/logs",
		authMiddleware.RequireAuth(tenantMiddleware(h.Logs)))
}

// List handles GET /api/connectors.
func (h *ConnectorsHandler) List(w http.ResponseWriter, r *http.Request) {
	connectors, err := h.connectors.List(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to list connectors")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"connectors": connectors})
}

// Create handles POST /api/connectors.
func (h *ConnectorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, userID, err := auth.ExtractClaimsFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req services.CreateConnectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	c, err := h.connectors.Create(r.Context(), orgID, userID, &req)
	if err != nil {
		h.serviceError(w, err, "Failed to create connector")
		return
	}

	h.writeOK(w, http.StatusCreated, c)
}

// Types handles GET /api/connectors/types.
func (h *ConnectorsHandler) Types(w http.ResponseWriter, r *http.Request) {
	h.writeOK(w, http.StatusOK, map[string]any{"types": h.connectors.AvailableTypes()})
}

// Get handles GET /api/connectors/{id}.
func (h *ConnectorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.connectors.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get connector")
		return
	}
	h.writeOK(w, http.StatusOK, c)
}

// Update handles PUT /api/connectors/{id}.
func (h *ConnectorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdateConnectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	c, err := h.connectors.Update(r.Context(), id, &req)
	if err != nil {
		h.serviceError(w, err, "Failed to update connector")
		return
	}
	h.writeOK(w, http.StatusOK, c)
}

// UpdateStatus handles PATCH /api/connectors/{id}/status.
func (h *ConnectorsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.connectors.SetActive(r.Context(), id, req.IsActive); err != nil {
		h.serviceError(w, err, "Failed to update connector status")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"is_active": req.IsActive})
}

// Delete handles DELETE /api/connectors/{id}.
func (h *ConnectorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.connectors.Delete(r.Context(), id); err != nil {
		h.serviceError(w, err, "Failed to delete connector")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]string{"message": "Connector deleted"})
}

// IssueLink handles POST /api/connectors/{id}/shared-links.
func (h *ConnectorsHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	_, userID, err := auth.ExtractClaimsFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req services.IssueLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	origin := services.RequestOrigin{
		Host:           r.Host,
		ForwardedProto: r.Header.Get("X-Forwarded-Proto"),
		ForwardedSSL:   r.Header.Get("X-Forwarded-Ssl") == "on",
	}

	link, err := h.links.Issue(r.Context(), id, userID, &req, origin)
	if err != nil {
		h.serviceError(w, err, "Failed to issue share link")
		return
	}
	h.writeOK(w, http.StatusCreated, link)
}

// ListLinks handles GET /api/connectors/{id}/shared-links.
func (h *ConnectorsHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	links, err := h.links.List(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to list share links")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"shared_links": links})
}

// RevokeLink handles DELETE /api/connectors/{id}/shared-links/{link_id}.
func (h *ConnectorsHandler) RevokeLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	linkID, ok := h.pathID(w, r, "link_id")
	if !ok {
		return
	}

	if err := h.links.Revoke(r.Context(), id, linkID); err != nil {
		h.serviceError(w, err, "Failed to revoke share link")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]string{"message": "Share link revoked"})
}

// Stats handles GET /api/connectors/{id}/stats.
func (h *ConnectorsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	stats, err := h.analytics.Stats(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get connector stats")
		return
	}
	h.writeOK(w, http.StatusOK, stats)
}

// Logs handles GET /api/connectors/{id}/logs.
func (h *ConnectorsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_limit", "Limit must be an integer")
			return
		}
		limit = parsed
	}

	logs, err := h.analytics.RecentLogs(r.Context(), id, limit)
	if err != nil {
		h.serviceError(w, err, "Failed to get access logs")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *ConnectorsHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "Invalid identifier format")
		return uuid.Nil, false
	}
	return id, true
}

// serviceError maps a service-layer error onto an HTTP response without
// leaking internals. 5xx causes are logged, 4xx causes are returned as-is.
func (h *ConnectorsHandler) serviceError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(fallback, zap.Error(err))
		h.writeError(w, status, "internal_error", fallback)
		return
	}

	code := "request_failed"
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		code = "conflict"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrUnsupportedType):
		code = "invalid_request"
	}
	h.writeError(w, status, code, err.Error())
}

func (h *ConnectorsHandler) writeOK(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ConnectorsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
