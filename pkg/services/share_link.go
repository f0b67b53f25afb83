package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/config"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/repositories"
)

// shareTokenBytes is the entropy of a share token before encoding. 32 bytes
// keeps tokens unguessable even if a large number of links is issued.
const shareTokenBytes = 32

// IssueLinkRequest carries the policy for a new shared link.
type IssueLinkRequest struct {
	// ExpiresInHours sets the link lifetime. Nil applies the configured
	// default; zero or negative means the link never expires.
	ExpiresInHours *int `json:"expires_in_hours"`

	// MaxUses caps total dispatches through the link. Nil means unlimited.
	MaxUses *int `json:"max_uses"`

	// AllowedEndpoints restricts API-connector links to specific path
	// prefixes. Empty permits all endpoints.
	AllowedEndpoints []string `json:"allowed_endpoints"`

	// RequiresAuth demands a valid platform token in addition to the link.
	RequiresAuth bool `json:"requires_authentication"`
}

// IssuedLink is a created link plus its resolved public URL.
type IssuedLink struct {
	*models.SharedProxyLink
	ShareURL string `json:"share_url"`
}

// RequestOrigin describes the inbound request's host and TLS hints, taken
// from forwarding headers. Share URLs are built from it so they point back
// at whatever host the client actually reached.
type RequestOrigin struct {
	Host           string
	ForwardedProto string // X-Forwarded-Proto
	ForwardedSSL   bool   // X-Forwarded-Ssl: on
}

// ShareLinkService issues, lists, and revokes shared proxy links.
type ShareLinkService interface {
	Issue(ctx context.Context, connectorID uuid.UUID, userID string, req *IssueLinkRequest, origin RequestOrigin) (*IssuedLink, error)
	List(ctx context.Context, connectorID uuid.UUID) ([]*models.SharedProxyLink, error)
	Revoke(ctx context.Context, connectorID, linkID uuid.UUID) error
}

type shareLinkService struct {
	links      repositories.SharedLinkRepository
	connectors repositories.ConnectorRepository
	cfg        *config.Config
	logger     *zap.Logger
}

// NewShareLinkService creates a new share link service.
func NewShareLinkService(
	links repositories.SharedLinkRepository,
	connectors repositories.ConnectorRepository,
	cfg *config.Config,
	logger *zap.Logger,
) ShareLinkService {
	return &shareLinkService{
		links:      links,
		connectors: connectors,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *shareLinkService) Issue(ctx context.Context, connectorID uuid.UUID, userID string, req *IssueLinkRequest, origin RequestOrigin) (*IssuedLink, error) {
	// Confirm the connector exists within the caller's tenant scope before
	// minting a token for it.
	if _, err := s.connectors.GetByID(ctx, connectorID); err != nil {
		return nil, err
	}

	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return nil, fmt.Errorf("%w: max_uses must be positive", apperrors.ErrValidation)
	}

	shareID, err := newShareToken()
	if err != nil {
		return nil, err
	}

	link := &models.SharedProxyLink{
		ShareID:          shareID,
		ProxyConnectorID: connectorID,
		ExpiresAt:        s.resolveExpiry(req.ExpiresInHours),
		MaxUses:          req.MaxUses,
		IsActive:         true,
		AllowedEndpoints: req.AllowedEndpoints,
		RequiresAuth:     req.RequiresAuth,
		CreatedBy:        userID,
	}

	if err := s.links.Create(ctx, link); err != nil {
		return nil, err
	}

	s.logger.Info("share link issued",
		zap.String("connector_id", connectorID.String()),
		zap.String("link_id", link.ID.String()),
		zap.Bool("has_expiry", link.ExpiresAt != nil),
		zap.Bool("has_max_uses", link.MaxUses != nil))

	return &IssuedLink{
		SharedProxyLink: link,
		ShareURL:        s.publicURL(origin, shareID),
	}, nil
}

func (s *shareLinkService) List(ctx context.Context, connectorID uuid.UUID) ([]*models.SharedProxyLink, error) {
	if _, err := s.connectors.GetByID(ctx, connectorID); err != nil {
		return nil, err
	}
	return s.links.ListByConnector(ctx, connectorID)
}

func (s *shareLinkService) Revoke(ctx context.Context, connectorID, linkID uuid.UUID) error {
	links, err := s.List(ctx, connectorID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if link.ID == linkID {
			return s.links.Revoke(ctx, linkID)
		}
	}
	return apperrors.ErrNotFound
}

// resolveExpiry converts the requested lifetime into an absolute timestamp,
// applying the configured default when the request carries none.
func (s *shareLinkService) resolveExpiry(expiresInHours *int) *time.Time {
	hours := s.cfg.Proxy.DefaultLinkExpiryHours
	if expiresInHours != nil {
		hours = *expiresInHours
	}
	if hours <= 0 {
		return nil
	}
	t := time.Now().Add(time.Duration(hours) * time.Hour)
	return &t
}

// publicURL builds the externally reachable share URL. The scheme follows
// TLS forwarding headers; localhost stays plain http unless configured
// otherwise.
func (s *shareLinkService) publicURL(origin RequestOrigin, shareID string) string {
	host := origin.Host
	if host == "" {
		return s.cfg.BaseURL + "/api/proxy/share/" + shareID
	}

	scheme := "http"
	switch {
	case s.cfg.ForceHTTPSURLs:
		scheme = "https"
	case strings.EqualFold(origin.ForwardedProto, "https") || origin.ForwardedSSL:
		scheme = "https"
	case strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1"):
		scheme = "http"
	case s.cfg.TLSCertPath != "":
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s/api/proxy/share/%s", scheme, host, shareID)
}

func newShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

var _ ShareLinkService = (*shareLinkService)(nil)
