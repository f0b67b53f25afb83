package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/audit"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/auth"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/config"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/crypto"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/logging"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/repositories"
	sqlcheck "github.com/syaikhipin/aidatasharing-sub001/pkg/sql"
)

// DispatchRequest carries everything the dispatcher needs to resolve and
// execute one proxied operation.
type DispatchRequest struct {
	// ProxyType and Name identify a connector on the direct path
	// (/api/proxy/{proxy_type}/{name}).
	ProxyType string
	Name      string

	// ShareID identifies a link on the shared path (/api/proxy/share/{id}).
	ShareID string

	// Token is the platform bearer token, if the caller sent one.
	Token string

	Method    string
	ClientIP  string
	UserAgent string

	Operation *connector.Operation
}

// DispatchScoper provides database connections for the public dispatch
// path. *database.ScopeProvider implements it.
type DispatchScoper interface {
	WithDispatchScope(ctx context.Context) (context.Context, func(), error)
}

// DispatcherService is the proxy's core: it resolves a connector, enforces
// access policy, and runs the operation against the backend. Backend
// failures come back in-band as error Results; only policy and platform
// failures are returned as errors.
type DispatcherService interface {
	// DispatchDirect handles /api/proxy/{proxy_type}/{name}.
	DispatchDirect(ctx context.Context, req *DispatchRequest) (*connector.Result, error)

	// DispatchShared handles /api/proxy/share/{share_id}.
	DispatchShared(ctx context.Context, req *DispatchRequest) (*connector.Result, error)
}

type dispatcherService struct {
	connectors repositories.ConnectorRepository
	links      repositories.SharedLinkRepository
	logs       repositories.AccessLogRepository
	encryptor  *crypto.CredentialEncryptor
	authSvc    auth.AuthService
	scopes     DispatchScoper
	auditor    *audit.SecurityAuditor
	logger     *zap.Logger

	timeout time.Duration
	// sem bounds concurrent downstream connections; nil means unbounded.
	sem chan struct{}
}

// NewDispatcherService creates the dispatcher.
func NewDispatcherService(
	connectors repositories.ConnectorRepository,
	links repositories.SharedLinkRepository,
	logs repositories.AccessLogRepository,
	encryptor *crypto.CredentialEncryptor,
	authSvc auth.AuthService,
	scopes DispatchScoper,
	auditor *audit.SecurityAuditor,
	cfg *config.ProxyConfig,
	logger *zap.Logger,
) DispatcherService {
	var sem chan struct{}
	if cfg.MaxConcurrentDispatches > 0 {
		sem = make(chan struct{}, cfg.MaxConcurrentDispatches)
	}

	return &dispatcherService{
		connectors: connectors,
		links:      links,
		logs:       logs,
		encryptor:  encryptor,
		authSvc:    authSvc,
		scopes:     scopes,
		auditor:    auditor,
		logger:     logger,
		timeout:    time.Duration(cfg.DispatchTimeoutSeconds) * time.Second,
		sem:        sem,
	}
}

func (s *dispatcherService) DispatchDirect(ctx context.Context, req *DispatchRequest) (*connector.Result, error) {
	ctx, cleanup, err := s.scopes.WithDispatchScope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer cleanup()

	proxyType := connector.NormalizeType(req.ProxyType)
	if !connector.IsRegistered(proxyType) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedType, req.ProxyType)
	}

	c, link, err := s.resolveDirect(ctx, proxyType, req.Name)
	if err != nil {
		return nil, err
	}

	if c.ConnectorType != proxyType {
		return nil, apperrors.ErrTypeMismatch
	}

	return s.run(ctx, c, link, req)
}

func (s *dispatcherService) DispatchShared(ctx context.Context, req *DispatchRequest) (*connector.Result, error) {
	ctx, cleanup, err := s.scopes.WithDispatchScope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer cleanup()

	link, err := s.lookupLink(ctx, req.ShareID)
	if err != nil {
		return nil, err
	}

	c, err := s.lookupLinkTarget(ctx, link)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, c, link, req)
}

// resolveDirect finds the target connector for a direct dispatch: exact
// name, then case-insensitive partial name, then the name treated as a
// share token. All misses collapse into the same generic not-found error so
// callers cannot probe for connector names.
func (s *dispatcherService) resolveDirect(ctx context.Context, proxyType, name string) (*models.Connector, *models.SharedProxyLink, error) {
	c, err := s.connectors.GetByName(ctx, name)
	if err == nil {
		return c, nil, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to resolve connector: %w", err)
	}

	link, err := s.lookupLink(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	c, err = s.lookupLinkTarget(ctx, link)
	if err != nil {
		return nil, nil, err
	}
	return c, link, nil
}

// lookupLinkTarget loads the connector a link points at. An inactive target
// reads as not-found; platform failures keep their identity so they surface
// as 500s rather than 404s.
func (s *dispatcherService) lookupLinkTarget(ctx context.Context, link *models.SharedProxyLink) (*models.Connector, error) {
	c, err := s.connectors.GetByID(ctx, link.ProxyConnectorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve link target: %w", err)
	}
	if !c.IsActive {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}

func (s *dispatcherService) lookupLink(ctx context.Context, shareID string) (*models.SharedProxyLink, error) {
	link, err := s.links.GetByShareID(ctx, shareID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve shared link: %w", err)
	}
	if !link.IsActive {
		return nil, apperrors.ErrNotFound
	}
	return link, nil
}

// run enforces access policy and executes the operation. Every dispatch
// attempt against a resolved connector produces exactly one access log row,
// whether it succeeds, is denied, or fails downstream. The connector's
// total_requests counter only moves on successful dispatches.
func (s *dispatcherService) run(ctx context.Context, c *models.Connector, link *models.SharedProxyLink, req *DispatchRequest) (*connector.Result, error) {
	start := time.Now()

	result, err := s.authorizeAndExecute(ctx, c, link, req)

	s.logAccess(ctx, c, req, result, err, time.Since(start))
	if err == nil && result != nil && result.Status == "success" {
		if recErr := s.connectors.RecordAccess(ctx, c.ID); recErr != nil {
			s.logger.Warn("failed to record connector access",
				zap.String("connector_id", c.ID.String()),
				zap.Error(recErr))
		}
	}

	return result, err
}

func (s *dispatcherService) authorizeAndExecute(ctx context.Context, c *models.Connector, link *models.SharedProxyLink, req *DispatchRequest) (*connector.Result, error) {
	if link != nil {
		if err := s.authorizeLink(ctx, c, link, req); err != nil {
			return nil, err
		}
	} else {
		if err := s.authorizeDirect(ctx, c, req); err != nil {
			return nil, err
		}
	}

	if err := s.screenParameters(ctx, c, req); err != nil {
		return nil, err
	}

	return s.execute(ctx, c, req.Operation)
}

// authorizeDirect enforces token and operation policy for the direct path.
// Private connectors require a platform token from the owning organization;
// a token for the wrong organization gets the same generic not-found as a
// nonexistent connector.
func (s *dispatcherService) authorizeDirect(ctx context.Context, c *models.Connector, req *DispatchRequest) error {
	if !c.IsPublic {
		if req.Token == "" {
			return apperrors.ErrAuthRequired
		}
		claims, err := s.authSvc.ValidateToken(req.Token)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrAuthRequired, err)
		}
		if claims.OrganizationID != c.OrganizationID.String() {
			return apperrors.ErrNotFound
		}
	}

	if !c.AllowsOperation(req.Method) {
		return apperrors.ErrMethodNotAllowed
	}
	return nil
}

// authorizeLink enforces shared link policy: expiry, endpoint restrictions,
// optional platform auth, and the usage cap. The usage cap is consumed with
// a conditional UPDATE so concurrent requests cannot exceed it.
func (s *dispatcherService) authorizeLink(ctx context.Context, c *models.Connector, link *models.SharedProxyLink, req *DispatchRequest) error {
	if link.Expired(time.Now()) {
		s.auditor.LogLinkPolicyViolation(ctx, c.ID, link.ShareID, "expired", req.ClientIP)
		return apperrors.ErrLinkExpired
	}

	if link.RequiresAuth {
		if req.Token == "" {
			return apperrors.ErrAuthRequired
		}
		if _, err := s.authSvc.ValidateToken(req.Token); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrAuthRequired, err)
		}
	}

	if len(link.AllowedEndpoints) > 0 && !endpointAllowed(link.AllowedEndpoints, req.Operation.Endpoint) {
		s.auditor.LogLinkPolicyViolation(ctx, c.ID, link.ShareID, "endpoint_not_allowed", req.ClientIP)
		return fmt.Errorf("%w: endpoint not covered by this link", apperrors.ErrForbidden)
	}

	if _, err := s.links.ConsumeUse(ctx, link.ShareID); err != nil {
		if errors.Is(err, apperrors.ErrUsageLimitExceeded) {
			s.auditor.LogLinkPolicyViolation(ctx, c.ID, link.ShareID, "usage_limit_exceeded", req.ClientIP)
			return apperrors.ErrUsageLimitExceeded
		}
		return fmt.Errorf("failed to consume link use: %w", err)
	}

	return nil
}

// screenParameters runs libinjection over every caller-supplied value.
// A hit is audited and rejected before any executor sees the operation.
func (s *dispatcherService) screenParameters(ctx context.Context, c *models.Connector, req *DispatchRequest) error {
	hits := sqlcheck.CheckAllParameters(req.Operation.ParameterValues())
	if len(hits) == 0 {
		return nil
	}

	for _, hit := range hits {
		s.auditor.LogInjectionAttempt(ctx, c.ID, audit.SQLInjectionDetails{
			ParamName:   hit.ParamName,
			ParamValue:  fmt.Sprintf("%v", hit.ParamValue),
			Fingerprint: hit.Fingerprint,
			Connector:   c.Name,
		}, req.ClientIP)
	}

	return fmt.Errorf("%w: parameter %q rejected", apperrors.ErrValidation, hits[0].ParamName)
}

// execute builds the executor and runs the operation under the dispatch
// semaphore and timeout. Backend failures are converted to in-band error
// results here.
func (s *dispatcherService) execute(ctx context.Context, c *models.Connector, op *connector.Operation) (*connector.Result, error) {
	factory := connector.GetFactory(c.ConnectorType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedType, c.ConnectorType)
	}

	cfg, err := s.encryptor.DecryptJSON(c.EncryptedConfig)
	if err != nil {
		return nil, decryptErr(err)
	}
	creds, err := s.encryptor.DecryptJSON(c.EncryptedCredentials)
	if err != nil {
		return nil, decryptErr(err)
	}

	exec, err := factory(cfg, creds)
	if err != nil {
		// Misconfigured connector, not a backend fault.
		return connector.Failure(err), nil
	}

	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := exec.Execute(execCtx, op)
	if err != nil {
		s.logger.Warn("executor failure",
			zap.String("connector_id", c.ID.String()),
			zap.String("connector_type", c.ConnectorType),
			zap.String("error", logging.SanitizeError(err)))
		return connector.Failure(errors.New(logging.SanitizeError(err))), nil
	}
	return result, nil
}

// logAccess appends one access log row for the dispatch attempt. Log
// failures never fail the dispatch.
func (s *dispatcherService) logAccess(ctx context.Context, c *models.Connector, req *DispatchRequest, result *connector.Result, err error, elapsed time.Duration) {
	status := apperrors.HTTPStatus(err)
	success := err == nil && (result == nil || result.Status == "success")

	entry := &models.ProxyAccessLog{
		ProxyConnectorID: c.ID,
		UserID:           auth.GetUserIDFromContext(ctx),
		ClientIP:         req.ClientIP,
		UserAgent:        req.UserAgent,
		OperationType:    req.Method,
		OperationDetail:  logging.SanitizeOperation(req.Operation.Detail()),
		StatusCode:       status,
		Success:          success,
		ExecutionTimeMs:  elapsed.Milliseconds(),
	}
	if err != nil {
		entry.ErrorMessage = logging.SanitizeError(err)
	} else if result != nil && result.Status == "error" {
		entry.ErrorMessage = logging.TruncateString(result.Error, 500)
	}

	if logErr := s.logs.Insert(ctx, entry); logErr != nil {
		s.logger.Error("failed to write access log",
			zap.String("connector_id", c.ID.String()),
			zap.Error(logErr))
	}
}

func endpointAllowed(allowed []string, endpoint string) bool {
	normalized := "/" + strings.TrimLeft(endpoint, "/")
	for _, prefix := range allowed {
		p := "/" + strings.TrimLeft(prefix, "/")
		if normalized == p || strings.HasPrefix(normalized, strings.TrimRight(p, "/")+"/") {
			return true
		}
	}
	return false
}

func decryptErr(err error) error {
	if errors.Is(err, crypto.ErrDecryptionFailed) {
		return apperrors.ErrCredentialsKeyMismatch
	}
	return fmt.Errorf("failed to decrypt connector secrets: %w", err)
}

var _ DispatcherService = (*dispatcherService)(nil)
