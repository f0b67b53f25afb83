package connector

import (
	"strings"
	"sync"
)

// Info describes a registered executor for API discovery.
type Info struct {
	Type        string `json:"type"`         // "mysql", "postgres", "api", ...
	DisplayName string `json:"display_name"` // "MySQL", "PostgreSQL"
	Description string `json:"description"`
}

// Registration contains info plus the factory for creating executors.
// Factories receive the decrypted connection config and credentials.
type Registration struct {
	Info    Info
	Factory func(config, credentials map[string]any) (Executor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each executor package's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredTypes returns info for all registered executors.
// Used by the connectors API to tell clients which backend types exist.
func RegisteredTypes() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Info, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetFactory returns the executor factory for a connector type.
// Returns nil if the type is not registered.
func GetFactory(connectorType string) func(config, credentials map[string]any) (Executor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[connectorType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an executor type is available.
func IsRegistered(connectorType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[connectorType]
	return ok
}

// NormalizeType maps accepted aliases onto registry keys so that proxy
// paths like /api/proxy/postgresql/... resolve the postgres executor.
func NormalizeType(connectorType string) string {
	switch strings.ToLower(connectorType) {
	case "postgresql", "pg":
		return "postgres"
	case "mongo":
		return "mongodb"
	case "mssql", "sql-server":
		return "sqlserver"
	case "rest", "http":
		return "api"
	default:
		return strings.ToLower(connectorType)
	}
}
