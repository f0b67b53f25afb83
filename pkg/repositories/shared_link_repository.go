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

const sharedLinkColumns = `id, share_id, proxy_connector_id, expires_at, max_uses,
		current_uses, is_active, allowed_endpoints, requires_authentication, created_by, created_at`

// SharedLinkRepository defines data access for shared proxy links.
type SharedLinkRepository interface {
	// Create inserts a new shared link.
	Create(ctx context.Context, link *models.SharedProxyLink) error

	// GetByShareID retrieves a link by its public token.
	GetByShareID(ctx context.Context, shareID string) (*models.SharedProxyLink, error)

	// ListByConnector retrieves all links for one connector, newest first.
	ListByConnector(ctx context.Context, connectorID uuid.UUID) ([]*models.SharedProxyLink, error)

	// ConsumeUse atomically increments current_uses, failing with
	// apperrors.ErrUsageLimitExceeded when the link is already at max_uses.
	// The check and increment happen in one conditional UPDATE so N
	// concurrent callers can never push a link past its limit.
	ConsumeUse(ctx context.Context, shareID string) (int, error)

	// Revoke deactivates a link.
	Revoke(ctx context.Context, id uuid.UUID) error
}

type sharedLinkRepository struct{}

// NewSharedLinkRepository creates a new shared link repository.
func NewSharedLinkRepository() SharedLinkRepository {
	return &sharedLinkRepository{}
}

func (r *sharedLinkRepository) Create(ctx context.Context, link *models.SharedProxyLink) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	link.CreatedAt = time.Now()

	query := `
		INSERT INTO shared_proxy_links (share_id, proxy_connector_id, expires_at, max_uses,
			is_active, allowed_endpoints, requires_authentication, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := scope.Conn.QueryRow(ctx, query,
		link.ShareID,
		link.ProxyConnectorID,
		link.ExpiresAt,
		link.MaxUses,
		link.IsActive,
		link.AllowedEndpoints,
		link.RequiresAuth,
		link.CreatedBy,
		link.CreatedAt,
	).Scan(&link.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create shared link: %w", err)
	}

	return nil
}

func (r *sharedLinkRepository) GetByShareID(ctx context.Context, shareID string) (*models.SharedProxyLink, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + sharedLinkColumns + ` FROM shared_proxy_links WHERE share_id = $1`

	link, err := scanSharedLink(scope.Conn.QueryRow(ctx, query, shareID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shared link: %w", err)
	}
	return link, nil
}

func (r *sharedLinkRepository) ListByConnector(ctx context.Context, connectorID uuid.UUID) ([]*models.SharedProxyLink, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT ` + sharedLinkColumns + `
		FROM shared_proxy_links
		WHERE proxy_connector_id = $1
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, connectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared links: %w", err)
	}
	defer rows.Close()

	var links []*models.SharedProxyLink
	for rows.Next() {
		link, err := scanSharedLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shared link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shared links: %w", err)
	}

	return links, nil
}

func (r *sharedLinkRepository) ConsumeUse(ctx context.Context, shareID string) (int, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE shared_proxy_links
		SET current_uses = current_uses + 1
		WHERE share_id = $1
		  AND (max_uses IS NULL OR current_uses < max_uses)
		RETURNING current_uses`

	var currentUses int
	err := scope.Conn.QueryRow(ctx, query, shareID).Scan(&currentUses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the link does not exist or its uses are exhausted;
			// callers that already loaded the link treat this as exhausted.
			return 0, apperrors.ErrUsageLimitExceeded
		}
		return 0, fmt.Errorf("failed to consume link use: %w", err)
	}

	return currentUses, nil
}

func (r *sharedLinkRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `UPDATE shared_proxy_links SET is_active = false WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke shared link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanSharedLink(row rowScanner) (*models.SharedProxyLink, error) {
	var link models.SharedProxyLink
	var createdBy *string
	err := row.Scan(
		&link.ID,
		&link.ShareID,
		&link.ProxyConnectorID,
		&link.ExpiresAt,
		&link.MaxUses,
		&link.CurrentUses,
		&link.IsActive,
		&link.AllowedEndpoints,
		&link.RequiresAuth,
		&createdBy,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdBy != nil {
		link.CreatedBy = *createdBy
	}
	return &link, nil
}

var _ SharedLinkRepository = (*sharedLinkRepository)(nil)
