// Package services contains the business logic layer between HTTP handlers
// and repositories.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/crypto"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/repositories"
)

// CreateConnectorRequest carries the fields for registering a connector.
// Config holds connection settings (host, port, database, base_url, bucket),
// Credentials holds secrets (password, api_key, access keys). Both are
// encrypted before they reach the repository and never returned to clients.
type CreateConnectorRequest struct {
	Name          string         `json:"name"`
	ConnectorType string         `json:"connector_type"`
	Description   string         `json:"description"`
	AllowedOps    []string       `json:"allowed_operations"`
	IsPublic      bool           `json:"is_public"`
	Config        map[string]any `json:"config"`
	Credentials   map[string]any `json:"credentials"`
}

// UpdateConnectorRequest carries mutable connector fields. Nil Config or
// Credentials keep the stored encrypted values.
type UpdateConnectorRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	AllowedOps  []string       `json:"allowed_operations"`
	IsPublic    bool           `json:"is_public"`
	Config      map[string]any `json:"config,omitempty"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// ConnectorService manages proxy connector registration and lifecycle.
type ConnectorService interface {
	Create(ctx context.Context, orgID uuid.UUID, userID string, req *CreateConnectorRequest) (*models.Connector, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Connector, error)
	List(ctx context.Context) ([]*models.Connector, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateConnectorRequest) (*models.Connector, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error

	// AvailableTypes lists the registered executor backends, sorted by type.
	AvailableTypes() []connector.Info
}

type connectorService struct {
	repo      repositories.ConnectorRepository
	encryptor *crypto.CredentialEncryptor
	logger    *zap.Logger
}

// NewConnectorService creates a new connector service.
func NewConnectorService(
	repo repositories.ConnectorRepository,
	encryptor *crypto.CredentialEncryptor,
	logger *zap.Logger,
) ConnectorService {
	return &connectorService{
		repo:      repo,
		encryptor: encryptor,
		logger:    logger,
	}
}

func (s *connectorService) Create(ctx context.Context, orgID uuid.UUID, userID string, req *CreateConnectorRequest) (*models.Connector, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}

	connectorType := connector.NormalizeType(req.ConnectorType)
	if !connector.IsRegistered(connectorType) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedType, req.ConnectorType)
	}

	encryptedConfig, err := s.encryptor.EncryptJSON(req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt connector config: %w", err)
	}
	encryptedCredentials, err := s.encryptor.EncryptJSON(req.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt connector credentials: %w", err)
	}

	proxyID := uuid.NewString()
	c := &models.Connector{
		ProxyID:              proxyID,
		Name:                 strings.TrimSpace(req.Name),
		ConnectorType:        connectorType,
		ProxyURL:             fmt.Sprintf("/api/proxy/%s/%s", connectorType, strings.TrimSpace(req.Name)),
		Description:          req.Description,
		AllowedOps:           normalizeOps(req.AllowedOps),
		IsActive:             true,
		IsPublic:             req.IsPublic,
		EncryptedConfig:      encryptedConfig,
		EncryptedCredentials: encryptedCredentials,
		OrganizationID:       orgID,
		CreatedBy:            userID,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("connector created",
		zap.String("connector_id", c.ID.String()),
		zap.String("connector_type", c.ConnectorType),
		zap.String("name", c.Name))

	return c, nil
}

func (s *connectorService) Get(ctx context.Context, id uuid.UUID) (*models.Connector, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *connectorService) List(ctx context.Context) ([]*models.Connector, error) {
	return s.repo.List(ctx)
}

func (s *connectorService) Update(ctx context.Context, id uuid.UUID, req *UpdateConnectorRequest) (*models.Connector, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		existing.Name = strings.TrimSpace(req.Name)
		existing.ProxyURL = fmt.Sprintf("/api/proxy/%s/%s", existing.ConnectorType, existing.Name)
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.AllowedOps != nil {
		existing.AllowedOps = normalizeOps(req.AllowedOps)
	}
	existing.IsPublic = req.IsPublic

	// Empty strings signal "keep stored value" to the repository.
	existing.EncryptedConfig = ""
	existing.EncryptedCredentials = ""
	if req.Config != nil {
		existing.EncryptedConfig, err = s.encryptor.EncryptJSON(req.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt connector config: %w", err)
		}
	}
	if req.Credentials != nil {
		existing.EncryptedCredentials, err = s.encryptor.EncryptJSON(req.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt connector credentials: %w", err)
		}
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *connectorService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info("connector status changed",
		zap.String("connector_id", id.String()),
		zap.Bool("is_active", active))
	return nil
}

func (s *connectorService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("connector deleted", zap.String("connector_id", id.String()))
	return nil
}

func (s *connectorService) AvailableTypes() []connector.Info {
	types := connector.RegisteredTypes()
	sort.Slice(types, func(i, j int) bool { return types[i].Type < types[j].Type })
	return types
}

func normalizeOps(ops []string) []string {
	normalized := make([]string, 0, len(ops))
	for _, op := range ops {
		if v := strings.ToUpper(strings.TrimSpace(op)); v != "" {
			normalized = append(normalized, v)
		}
	}
	return normalized
}

var _ ConnectorService = (*connectorService)(nil)
