package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Connector represents a registered proxy target: an external database,
// REST API, or object store whose real location and credentials are hidden
// behind the proxy. Connection config and credentials are encrypted at rest
// by the service layer and are never serialized into API responses.
type Connector struct {
	ID             uuid.UUID `json:"id"`
	ProxyID        string    `json:"proxy_id"` // public identifier used in proxy URLs
	Name           string    `json:"name"`
	ConnectorType  string    `json:"connector_type"` // "api", "mysql", "postgres", "clickhouse", "mongodb", "sqlserver", "s3"
	ProxyURL       string    `json:"proxy_url"`
	Description    string    `json:"description,omitempty"`
	AllowedOps     []string  `json:"allowed_operations"` // HTTP verbs permitted for direct dispatch
	IsActive       bool      `json:"is_active"`
	IsPublic       bool      `json:"is_public"`

	// Encrypted at rest, never serialized.
	EncryptedConfig      string `json:"-"`
	EncryptedCredentials string `json:"-"`

	OrganizationID uuid.UUID `json:"organization_id"`
	CreatedBy      string    `json:"created_by"`
	TotalRequests  int64     `json:"total_requests"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AllowsOperation reports whether the given HTTP method is permitted for
// direct (non-share-link) dispatch. An empty allow-list permits read-only
// access (GET) only.
func (c *Connector) AllowsOperation(method string) bool {
	if len(c.AllowedOps) == 0 {
		return strings.EqualFold(method, "GET")
	}
	for _, op := range c.AllowedOps {
		if strings.EqualFold(op, method) {
			return true
		}
	}
	return false
}
