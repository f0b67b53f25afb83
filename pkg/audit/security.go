// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy
// parsing and integration with security information and event management
// systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and
// alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection detects SQL
	// injection patterns in proxied operation parameters.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventLinkPolicyViolation is logged when a shared link is used past
	// its expiry or usage limit.
	EventLinkPolicyViolation SecurityEventType = "link_policy_violation"
	// EventDispatch is logged for successful dispatches (optional, can be
	// high volume).
	EventDispatch SecurityEventType = "proxy_dispatch"
)

// SecurityEvent represents an auditable security event with all relevant
// context for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   SecurityEventType `json:"event_type"`
	ConnectorID uuid.UUID         `json:"connector_id"`
	UserID      string            `json:"user_id,omitempty"`
	ClientIP    string            `json:"client_ip,omitempty"`
	Details     any               `json:"details"`
	Severity    string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a detected SQL injection attempt.
type SQLInjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
	Connector   string `json:"connector"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger
// namespace for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	securityLogger := logger.Named("security_audit")
	return &SecurityAuditor{logger: securityLogger}
}

// LogInjectionAttempt records a detected SQL injection attempt with full
// context. Logged at ERROR level with "critical" severity for immediate
// alerting.
func (a *SecurityAuditor) LogInjectionAttempt(
	ctx context.Context,
	connectorID uuid.UUID,
	details SQLInjectionDetails,
	clientIP string,
) {
	userID := auth.GetUserIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventSQLInjectionAttempt,
		ConnectorID: connectorID,
		UserID:      userID,
		ClientIP:    clientIP,
		Details:     details,
		Severity:    "critical",
	}

	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("connector_id", connectorID.String()),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "critical"),
	)
}

// LogLinkPolicyViolation records a shared-link access attempt past its
// expiry or usage limit. Logged at WARN level; these are usually stale
// clients, not attacks.
func (a *SecurityAuditor) LogLinkPolicyViolation(
	ctx context.Context,
	connectorID uuid.UUID,
	shareID, reason, clientIP string,
) {
	userID := auth.GetUserIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventLinkPolicyViolation,
		ConnectorID: connectorID,
		UserID:      userID,
		ClientIP:    clientIP,
		Details: map[string]string{
			"share_id": shareID,
			"reason":   reason,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Shared link policy violation",
		zap.String("event_json", string(eventJSON)),
		zap.String("connector_id", connectorID.String()),
		zap.String("share_id", shareID),
		zap.String("reason", reason),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "warning"),
	)
}
