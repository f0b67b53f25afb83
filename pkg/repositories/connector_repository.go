// Package repositories contains the PostgreSQL data access layer. All
// repositories read their connection from the tenant scope placed in the
// request context; management paths carry an org-scoped connection, the
// public dispatch path carries an unscoped one.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/database"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
)

const connectorColumns = `id, proxy_id, name, connector_type, proxy_url, description,
		allowed_operations, is_active, is_public, encrypted_config, encrypted_credentials,
		organization_id, created_by, total_requests, last_accessed_at, created_at, updated_at`

// ConnectorRepository defines data access for proxy connectors. Config and
// credentials are stored as encrypted TEXT; encryption is handled by the
// service layer.
type ConnectorRepository interface {
	// Create inserts a new connector. Returns apperrors.ErrConflict if the
	// name is already taken within the organization.
	Create(ctx context.Context, c *models.Connector) error

	// GetByID retrieves a connector by primary key.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Connector, error)

	// GetByProxyID retrieves a connector by its public proxy identifier.
	GetByProxyID(ctx context.Context, proxyID string) (*models.Connector, error)

	// GetByName resolves an active connector by name: exact match first,
	// then a case-insensitive partial match. Type is not part of the lookup;
	// the dispatcher compares the stored type so a mismatch can be reported
	// rather than masked as not-found.
	GetByName(ctx context.Context, name string) (*models.Connector, error)

	// List retrieves all connectors visible in the current tenant scope.
	List(ctx context.Context) ([]*models.Connector, error)

	// Update modifies mutable connector fields. Empty encrypted values keep
	// the stored ones.
	Update(ctx context.Context, c *models.Connector) error

	// SetActive toggles the connector's active flag.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// Delete removes a connector and its dependent links and logs.
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordAccess atomically bumps total_requests and last_accessed_at.
	// Called once per dispatch; never fails a dispatch on error.
	RecordAccess(ctx context.Context, id uuid.UUID) error
}

type connectorRepository struct{}

// NewConnectorRepository creates a new connector repository.
func NewConnectorRepository() ConnectorRepository {
	return &connectorRepository{}
}

func (r *connectorRepository) Create(ctx context.Context, c *models.Connector) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO proxy_connectors (proxy_id, name, connector_type, proxy_url, description,
			allowed_operations, is_active, is_public, encrypted_config, encrypted_credentials,
			organization_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := scope.Conn.QueryRow(ctx, query,
		c.ProxyID,
		c.Name,
		c.ConnectorType,
		c.ProxyURL,
		c.Description,
		c.AllowedOps,
		c.IsActive,
		c.IsPublic,
		c.EncryptedConfig,
		c.EncryptedCredentials,
		c.OrganizationID,
		c.CreatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create connector: %w", err)
	}

	return nil
}

func (r *connectorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Connector, error) {
	return r.getOne(ctx, `SELECT `+connectorColumns+` FROM proxy_connectors WHERE id = $1`, id)
}

func (r *connectorRepository) GetByProxyID(ctx context.Context, proxyID string) (*models.Connector, error) {
	return r.getOne(ctx, `SELECT `+connectorColumns+` FROM proxy_connectors WHERE proxy_id = $1`, proxyID)
}

func (r *connectorRepository) GetByName(ctx context.Context, name string) (*models.Connector, error) {
	c, err := r.getOne(ctx, `
		SELECT `+connectorColumns+`
		FROM proxy_connectors
		WHERE name = $1 AND is_active = true`,
		name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// Fall back to a case-insensitive partial match, oldest first so the
	// resolution is stable.
	return r.getOne(ctx, `
		SELECT `+connectorColumns+`
		FROM proxy_connectors
		WHERE name ILIKE '%' || $1 || '%' AND is_active = true
		ORDER BY created_at ASC
		LIMIT 1`,
		name)
}

func (r *connectorRepository) getOne(ctx context.Context, query string, args ...any) (*models.Connector, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	c, err := scanConnector(scope.Conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get connector: %w", err)
	}
	return c, nil
}

func (r *connectorRepository) List(ctx context.Context) ([]*models.Connector, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + connectorColumns + ` FROM proxy_connectors ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}
	defer rows.Close()

	var connectors []*models.Connector
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connector: %w", err)
		}
		connectors = append(connectors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connectors: %w", err)
	}

	return connectors, nil
}

func (r *connectorRepository) Update(ctx context.Context, c *models.Connector) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	// COALESCE/NULLIF keeps stored secrets when the update carries none.
	query := `
		UPDATE proxy_connectors
		SET name = $2,
			proxy_url = $3,
			description = $4,
			allowed_operations = $5,
			is_public = $6,
			encrypted_config = COALESCE(NULLIF($7, ''), encrypted_config),
			encrypted_credentials = COALESCE(NULLIF($8, ''), encrypted_credentials),
			updated_at = $9
		WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query,
		c.ID, c.Name, c.ProxyURL, c.Description, c.AllowedOps, c.IsPublic,
		c.EncryptedConfig, c.EncryptedCredentials, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to update connector: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *connectorRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `UPDATE proxy_connectors SET is_active = $2, updated_at = $3 WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update connector status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *connectorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM proxy_connectors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connector: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *connectorRepository) RecordAccess(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	// Single atomic UPDATE so concurrent dispatches never lose increments.
	query := `
		UPDATE proxy_connectors
		SET total_requests = total_requests + 1, last_accessed_at = $2
		WHERE id = $1`

	if _, err := scope.Conn.Exec(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnector(row rowScanner) (*models.Connector, error) {
	var c models.Connector
	var description, createdBy *string
	err := row.Scan(
		&c.ID,
		&c.ProxyID,
		&c.Name,
		&c.ConnectorType,
		&c.ProxyURL,
		&description,
		&c.AllowedOps,
		&c.IsActive,
		&c.IsPublic,
		&c.EncryptedConfig,
		&c.EncryptedCredentials,
		&c.OrganizationID,
		&createdBy,
		&c.TotalRequests,
		&c.LastAccessedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description != nil {
		c.Description = *description
	}
	if createdBy != nil {
		c.CreatedBy = *createdBy
	}
	return &c, nil
}

var _ ConnectorRepository = (*connectorRepository)(nil)
