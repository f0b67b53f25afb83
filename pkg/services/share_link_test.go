package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/config"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
)

func newShareLinkFixture(t *testing.T, cfg *config.Config) (ShareLinkService, *mockConnectorRepo, *mockLinkRepo) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{BaseURL: "http://localhost:8100"}
	}
	connectors := newMockConnectorRepo()
	links := newMockLinkRepo()
	svc := NewShareLinkService(links, connectors, cfg, zap.NewNop())
	return svc, connectors, links
}

func addTestConnector(connectors *mockConnectorRepo) *models.Connector {
	c := &models.Connector{
		ID:            uuid.New(),
		Name:          "orders",
		ConnectorType: "stub",
		IsActive:      true,
	}
	connectors.add(c)
	return c
}

func TestIssueLink(t *testing.T) {
	svc, connectors, links := newShareLinkFixture(t, nil)
	c := addTestConnector(connectors)

	issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{}, RequestOrigin{})
	require.NoError(t, err)

	// Tokens carry 32 bytes of entropy, base64url without padding.
	assert.Len(t, issued.ShareID, 43)
	assert.True(t, issued.IsActive)
	assert.Nil(t, issued.ExpiresAt, "no default expiry configured")
	assert.Nil(t, issued.MaxUses)
	assert.Equal(t, "user-1", issued.CreatedBy)
	assert.Contains(t, issued.ShareURL, "/api/proxy/share/"+issued.ShareID)

	_, ok := links.byShareID[issued.ShareID]
	assert.True(t, ok, "link must be persisted")
}

func TestIssueLinkTokensAreUnique(t *testing.T) {
	svc, connectors, _ := newShareLinkFixture(t, nil)
	c := addTestConnector(connectors)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{}, RequestOrigin{})
		require.NoError(t, err)
		assert.False(t, seen[issued.ShareID])
		seen[issued.ShareID] = true
	}
}

func TestIssueLinkUnknownConnector(t *testing.T) {
	svc, _, _ := newShareLinkFixture(t, nil)

	_, err := svc.Issue(context.Background(), uuid.New(), "user-1", &IssueLinkRequest{}, RequestOrigin{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIssueLinkValidatesMaxUses(t *testing.T) {
	svc, connectors, _ := newShareLinkFixture(t, nil)
	c := addTestConnector(connectors)

	zero := 0
	_, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{MaxUses: &zero}, RequestOrigin{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	five := 5
	issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{MaxUses: &five}, RequestOrigin{})
	require.NoError(t, err)
	require.NotNil(t, issued.MaxUses)
	assert.Equal(t, 5, *issued.MaxUses)
}

func TestIssueLinkExpiry(t *testing.T) {
	t.Run("explicit hours", func(t *testing.T) {
		svc, connectors, _ := newShareLinkFixture(t, nil)
		c := addTestConnector(connectors)

		hours := 24
		issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{ExpiresInHours: &hours}, RequestOrigin{})
		require.NoError(t, err)
		require.NotNil(t, issued.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), *issued.ExpiresAt, time.Minute)
	})

	t.Run("configured default applies when unset", func(t *testing.T) {
		cfg := &config.Config{Proxy: config.ProxyConfig{DefaultLinkExpiryHours: 72}}
		svc, connectors, _ := newShareLinkFixture(t, cfg)
		c := addTestConnector(connectors)

		issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{}, RequestOrigin{})
		require.NoError(t, err)
		require.NotNil(t, issued.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(72*time.Hour), *issued.ExpiresAt, time.Minute)
	})

	t.Run("zero hours means never", func(t *testing.T) {
		cfg := &config.Config{Proxy: config.ProxyConfig{DefaultLinkExpiryHours: 72}}
		svc, connectors, _ := newShareLinkFixture(t, cfg)
		c := addTestConnector(connectors)

		never := 0
		issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{ExpiresInHours: &never}, RequestOrigin{})
		require.NoError(t, err)
		assert.Nil(t, issued.ExpiresAt)
	})
}

func TestShareURLScheme(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *config.Config
		origin RequestOrigin
		want   string
	}{
		{
			name:   "forwarded proto https",
			cfg:    &config.Config{},
			origin: RequestOrigin{Host: "proxy.example.com", ForwardedProto: "https"},
			want:   "https://proxy.example.com/",
		},
		{
			name:   "forwarded ssl on",
			cfg:    &config.Config{},
			origin: RequestOrigin{Host: "proxy.example.com", ForwardedSSL: true},
			want:   "https://proxy.example.com/",
		},
		{
			name:   "localhost stays http",
			cfg:    &config.Config{TLSCertPath: "/etc/tls/cert.pem"},
			origin: RequestOrigin{Host: "localhost:8100"},
			want:   "http://localhost:8100/",
		},
		{
			name:   "force https overrides localhost",
			cfg:    &config.Config{ForceHTTPSURLs: true},
			origin: RequestOrigin{Host: "localhost:8100"},
			want:   "https://localhost:8100/",
		},
		{
			name:   "tls configured",
			cfg:    &config.Config{TLSCertPath: "/etc/tls/cert.pem"},
			origin: RequestOrigin{Host: "proxy.example.com"},
			want:   "https://proxy.example.com/",
		},
		{
			name:   "plain host without tls",
			cfg:    &config.Config{},
			origin: RequestOrigin{Host: "proxy.example.com"},
			want:   "http://proxy.example.com/",
		},
		{
			name:   "no host falls back to base url",
			cfg:    &config.Config{BaseURL: "http://localhost:8100"},
			origin: RequestOrigin{},
			want:   "http://localhost:8100/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, connectors, _ := newShareLinkFixture(t, tt.cfg)
			c := addTestConnector(connectors)

			issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{}, tt.origin)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(issued.ShareURL, tt.want),
				"got %q, want prefix %q", issued.ShareURL, tt.want)
		})
	}
}

func TestRevokeLink(t *testing.T) {
	svc, connectors, links := newShareLinkFixture(t, nil)
	c := addTestConnector(connectors)

	issued, err := svc.Issue(context.Background(), c.ID, "user-1", &IssueLinkRequest{}, RequestOrigin{})
	require.NoError(t, err)

	t.Run("revokes own link", func(t *testing.T) {
		require.NoError(t, svc.Revoke(context.Background(), c.ID, issued.ID))
		assert.Contains(t, links.revoked, issued.ID)
	})

	t.Run("unknown link id", func(t *testing.T) {
		err := svc.Revoke(context.Background(), c.ID, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("link belonging to another connector", func(t *testing.T) {
		other := addTestConnector(connectors)
		other.Name = "other"
		connectors.add(other)

		err := svc.Revoke(context.Background(), other.ID, issued.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
