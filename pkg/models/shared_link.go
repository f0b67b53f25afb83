package models

import (
	"time"

	"github.com/google/uuid"
)

// SharedProxyLink grants time/usage-limited access to a connector via an
// unguessable public token. Usage accounting is done with conditional
// UPDATEs in the repository so concurrent dispatches cannot race past
// MaxUses.
type SharedProxyLink struct {
	ID               uuid.UUID  `json:"id"`
	ShareID          string     `json:"share_id"` // public token, crypto-random
	ProxyConnectorID uuid.UUID  `json:"proxy_connector_id"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"` // nil = never expires
	MaxUses          *int       `json:"max_uses,omitempty"`   // nil = unlimited
	CurrentUses      int        `json:"current_uses"`
	IsActive         bool       `json:"is_active"`
	AllowedEndpoints []string   `json:"allowed_endpoints,omitempty"`
	RequiresAuth     bool       `json:"requires_authentication"`
	CreatedBy        string     `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Expired reports whether the link's expiry has passed at the given instant.
func (l *SharedProxyLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
