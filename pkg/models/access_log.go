package models

import (
	"time"

	"github.com/google/uuid"
)

// ProxyAccessLog is an append-only record of a single dispatch attempt.
// Rows are never updated or deleted in the request path; the analytics
// endpoints read them back.
type ProxyAccessLog struct {
	ID               uuid.UUID `json:"id"`
	ProxyConnectorID uuid.UUID `json:"proxy_connector_id"`
	UserID           string    `json:"user_id,omitempty"`
	ClientIP         string    `json:"client_ip"`
	UserAgent        string    `json:"user_agent,omitempty"`
	OperationType    string    `json:"operation_type"`   // HTTP method or SQL/Mongo operation kind
	OperationDetail  string    `json:"operation_detail"` // sanitized query / endpoint
	StatusCode       int       `json:"status_code"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ExecutionTimeMs  int64     `json:"execution_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// ConnectorStats aggregates access-log rows for one connector.
type ConnectorStats struct {
	ProxyConnectorID uuid.UUID `json:"proxy_connector_id"`
	TotalRequests    int64     `json:"total_requests"`
	SuccessCount     int64     `json:"success_count"`
	ErrorCount       int64     `json:"error_count"`
	AvgExecutionMs   float64   `json:"avg_execution_time_ms"`
	LastAccessedAt   *time.Time `json:"last_accessed_at,omitempty"`
}
