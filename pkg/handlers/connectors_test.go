package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/auth"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/services"
)

const testOrgID = "7b8a4a3e-9a3f-4f0c-9a51-2f9d4f6f1a23"

// fakeAuthService accepts the literal token "good-token".
type fakeAuthService struct{}

func (fakeAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token != "good-token" {
		return nil, "", fmt.Errorf("invalid token")
	}
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		OrganizationID:   testOrgID,
	}
	return claims, token, nil
}

func (fakeAuthService) ValidateToken(tokenString string) (*auth.Claims, error) {
	return nil, fmt.Errorf("not used")
}

func (fakeAuthService) RequireOrgID(claims *auth.Claims) error {
	if claims.OrganizationID == "" {
		return fmt.Errorf("missing organization ID")
	}
	return nil
}

type fakeConnectorService struct {
	connector *models.Connector
	err       error
}

func (f *fakeConnectorService) Create(ctx context.Context, orgID uuid.UUID, userID string, req *services.CreateConnectorRequest) (*models.Connector, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.connector, nil
}
func (f *fakeConnectorService) Get(ctx context.Context, id uuid.UUID) (*models.Connector, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.connector, nil
}
func (f *fakeConnectorService) List(ctx context.Context) ([]*models.Connector, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Connector{f.connector}, nil
}
func (f *fakeConnectorService) Update(ctx context.Context, id uuid.UUID, req *services.UpdateConnectorRequest) (*models.Connector, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.connector, nil
}
func (f *fakeConnectorService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return f.err
}
func (f *fakeConnectorService) Delete(ctx context.Context, id uuid.UUID) error { return f.err }
func (f *fakeConnectorService) AvailableTypes() []connector.Info {
	return []connector.Info{{Type: "mysql", DisplayName: "MySQL"}}
}

type fakeShareLinkService struct {
	issued     *services.IssuedLink
	lastOrigin services.RequestOrigin
	err        error
}

func (f *fakeShareLinkService) Issue(ctx context.Context, connectorID uuid.UUID, userID string, req *services.IssueLinkRequest, origin services.RequestOrigin) (*services.IssuedLink, error) {
	f.lastOrigin = origin
	if f.err != nil {
		return nil, f.err
	}
	return f.issued, nil
}
func (f *fakeShareLinkService) List(ctx context.Context, connectorID uuid.UUID) ([]*models.SharedProxyLink, error) {
	return nil, f.err
}
func (f *fakeShareLinkService) Revoke(ctx context.Context, connectorID, linkID uuid.UUID) error {
	return f.err
}

type fakeAnalyticsService struct {
	err error
}

func (f *fakeAnalyticsService) Stats(ctx context.Context, connectorID uuid.UUID) (*models.ConnectorStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ConnectorStats{}, nil
}
func (f *fakeAnalyticsService) RecentLogs(ctx context.Context, connectorID uuid.UUID, limit int) ([]*models.ProxyAccessLog, error) {
	return nil, f.err
}

type connectorsFixture struct {
	mux        *http.ServeMux
	connectors *fakeConnectorService
	links      *fakeShareLinkService
}

func newConnectorsFixture() *connectorsFixture {
	connectors := &fakeConnectorService{
		connector: &models.Connector{ID: uuid.New(), Name: "orders", ConnectorType: "mysql"},
	}
	links := &fakeShareLinkService{
		issued: &services.IssuedLink{
			SharedProxyLink: &models.SharedProxyLink{ShareID: "tok"},
			ShareURL:        "http://localhost:8100/api/proxy/share/tok",
		},
	}

	mux := http.NewServeMux()
	handler := NewConnectorsHandler(connectors, links, &fakeAnalyticsService{}, zap.NewNop())
	authMW := auth.NewMiddleware(fakeAuthService{}, zap.NewNop())
	passthrough := func(next http.HandlerFunc) http.HandlerFunc { return next }
	handler.RegisterRoutes(mux, authMW, passthrough)

	return &connectorsFixture{mux: mux, connectors: connectors, links: links}
}

func (f *connectorsFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestConnectorsRequireAuth(t *testing.T) {
	f := newConnectorsFixture()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/connectors", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListConnectors(t *testing.T) {
	f := newConnectorsFixture()
	rec := f.do("GET", "/api/connectors", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestCreateConnector(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newConnectorsFixture()
		rec := f.do("POST", "/api/connectors", `{"name":"orders","connector_type":"mysql"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newConnectorsFixture()
		rec := f.do("POST", "/api/connectors", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := newConnectorsFixture()
		f.connectors.err = apperrors.ErrConflict
		rec := f.do("POST", "/api/connectors", `{"name":"orders","connector_type":"mysql"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "conflict")
	})

	t.Run("unsupported type", func(t *testing.T) {
		f := newConnectorsFixture()
		f.connectors.err = fmt.Errorf("%w: %q", apperrors.ErrUnsupportedType, "oracle")
		rec := f.do("POST", "/api/connectors", `{"name":"orders","connector_type":"oracle"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetConnector(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		f := newConnectorsFixture()
		rec := f.do("GET", "/api/connectors/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_id")
	})

	t.Run("not found", func(t *testing.T) {
		f := newConnectorsFixture()
		f.connectors.err = apperrors.ErrNotFound
		rec := f.do("GET", "/api/connectors/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConnectorTypes(t *testing.T) {
	f := newConnectorsFixture()
	rec := f.do("GET", "/api/connectors/types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mysql")
}

func TestIssueShareLink(t *testing.T) {
	f := newConnectorsFixture()
	req := httptest.NewRequest("POST", "/api/connectors/"+uuid.NewString()+"/shared-links", strings.NewReader(`{"max_uses":5}`))
	req.Header.Set("Authorization", "Bearer good-token")
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Host = "proxy.example.com"
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "proxy.example.com", f.links.lastOrigin.Host)
	assert.Equal(t, "https", f.links.lastOrigin.ForwardedProto)
}

func TestConnectorLogsLimitValidation(t *testing.T) {
	f := newConnectorsFixture()
	rec := f.do("GET", "/api/connectors/"+uuid.NewString()+"/logs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_limit")
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	f := newConnectorsFixture()
	f.connectors.err = fmt.Errorf("pg: connection to 10.0.0.5 refused")
	rec := f.do("GET", "/api/connectors", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
