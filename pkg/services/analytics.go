package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/models"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/repositories"
)

// AnalyticsService exposes per-connector usage statistics and recent access
// logs. Reads run in the caller's tenant scope so owners only see their own
// connectors' traffic.
type AnalyticsService interface {
	Stats(ctx context.Context, connectorID uuid.UUID) (*models.ConnectorStats, error)
	RecentLogs(ctx context.Context, connectorID uuid.UUID, limit int) ([]*models.ProxyAccessLog, error)
}

type analyticsService struct {
	logs       repositories.AccessLogRepository
	connectors repositories.ConnectorRepository
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(logs repositories.AccessLogRepository, connectors repositories.ConnectorRepository) AnalyticsService {
	return &analyticsService{logs: logs, connectors: connectors}
}

func (s *analyticsService) Stats(ctx context.Context, connectorID uuid.UUID) (*models.ConnectorStats, error) {
	if _, err := s.connectors.GetByID(ctx, connectorID); err != nil {
		return nil, err
	}
	return s.logs.Stats(ctx, connectorID)
}

func (s *analyticsService) RecentLogs(ctx context.Context, connectorID uuid.UUID, limit int) ([]*models.ProxyAccessLog, error) {
	if _, err := s.connectors.GetByID(ctx, connectorID); err != nil {
		return nil, err
	}
	return s.logs.Recent(ctx, connectorID, limit)
}

var _ AnalyticsService = (*analyticsService)(nil)
