package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/database"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
)

// AccessLogRepository defines data access for proxy access logs. The table
// is append-only on the request path; reads serve the analytics endpoints.
type AccessLogRepository interface {
	// Insert appends one access log row.
	Insert(ctx context.Context, entry *models.ProxyAccessLog) error

	// Stats aggregates log rows for one connector.
	Stats(ctx context.Context, connectorID uuid.UUID) (*models.ConnectorStats, error)

	// Recent returns the newest log rows for one connector, capped at limit.
	Recent(ctx context.Context, connectorID uuid.UUID, limit int) ([]*models.ProxyAccessLog, error)
}

type accessLogRepository struct{}

// NewAccessLogRepository creates a new access log repository.
func NewAccessLogRepository() AccessLogRepository {
	return &accessLogRepository{}
}

func (r *accessLogRepository) Insert(ctx context.Context, entry *models.ProxyAccessLog) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		INSERT INTO proxy_access_logs (proxy_connector_id, user_id, client_ip, user_agent,
			operation_type, operation_detail, status_code, success, error_message, execution_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query,
		entry.ProxyConnectorID,
		nullIfEmpty(entry.UserID),
		entry.ClientIP,
		nullIfEmpty(entry.UserAgent),
		entry.OperationType,
		entry.OperationDetail,
		entry.StatusCode,
		entry.Success,
		nullIfEmpty(entry.ErrorMessage),
		entry.ExecutionTimeMs,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert access log: %w", err)
	}

	return nil
}

func (r *accessLogRepository) Stats(ctx context.Context, connectorID uuid.UUID) (*models.ConnectorStats, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COUNT(*) FILTER (WHERE NOT success),
			COALESCE(AVG(execution_time_ms), 0),
			MAX(created_at)
		FROM proxy_access_logs
		WHERE proxy_connector_id = $1`

	stats := &models.ConnectorStats{ProxyConnectorID: connectorID}
	err := scope.Conn.QueryRow(ctx, query, connectorID).Scan(
		&stats.TotalRequests,
		&stats.SuccessCount,
		&stats.ErrorCount,
		&stats.AvgExecutionMs,
		&stats.LastAccessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate access logs: %w", err)
	}

	return stats, nil
}

func (r *accessLogRepository) Recent(ctx context.Context, connectorID uuid.UUID, limit int) ([]*models.ProxyAccessLog, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, proxy_connector_id, user_id, client_ip, user_agent,
			operation_type, operation_detail, status_code, success, error_message,
			execution_time_ms, created_at
		FROM proxy_access_logs
		WHERE proxy_connector_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := scope.Conn.Query(ctx, query, connectorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list access logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ProxyAccessLog
	for rows.Next() {
		var entry models.ProxyAccessLog
		var userID, userAgent, errorMessage *string
		err := rows.Scan(
			&entry.ID,
			&entry.ProxyConnectorID,
			&userID,
			&entry.ClientIP,
			&userAgent,
			&entry.OperationType,
			&entry.OperationDetail,
			&entry.StatusCode,
			&entry.Success,
			&errorMessage,
			&entry.ExecutionTimeMs,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access log: %w", err)
		}
		if userID != nil {
			entry.UserID = *userID
		}
		if userAgent != nil {
			entry.UserAgent = *userAgent
		}
		if errorMessage != nil {
			entry.ErrorMessage = *errorMessage
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access logs: %w", err)
	}

	return entries, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ AccessLogRepository = (*accessLogRepository)(nil)
