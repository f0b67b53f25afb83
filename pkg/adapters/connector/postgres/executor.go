// Package postgres implements the proxied query executor for PostgreSQL
// backends using pgx. Each Execute opens a fresh single connection so
// credentials never outlive the request.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

// Config holds PostgreSQL connection settings from decrypted connector
// config.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// ConfigFromMap parses decrypted config and credentials into a Config.
func ConfigFromMap(config, credentials map[string]any) (*Config, error) {
	host, err := connector.StringFromConfig(config, "host")
	if err != nil {
		return nil, err
	}
	database, err := connector.StringFromConfig(config, "database")
	if err != nil {
		return nil, err
	}

	username := connector.OptionalString(credentials, "username", "")
	if username == "" {
		username = connector.OptionalString(credentials, "user", "postgres")
	}

	sslMode := connector.OptionalString(config, "ssl_mode", "")
	if sslMode == "" {
		if connector.IsLocalHost(host) {
			sslMode = "disable"
		} else {
			sslMode = "require"
		}
	}

	return &Config{
		Host:     host,
		Port:     connector.IntFromConfig(config, "port", 5432),
		Database: database,
		Username: username,
		Password: connector.OptionalString(credentials, "password", ""),
		SSLMode:  sslMode,
	}, nil
}

// ConnectionString builds the pgx connection URL.
func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host, c.Port, c.Database, c.SSLMode)
}

// Executor runs SQL operations against one PostgreSQL backend.
type Executor struct {
	cfg *Config
}

var _ connector.Executor = (*Executor)(nil)

// NewExecutor creates a PostgreSQL executor from decrypted config and
// credentials.
func NewExecutor(config, credentials map[string]any) (connector.Executor, error) {
	cfg, err := ConfigFromMap(config, credentials)
	if err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg}, nil
}

func (e *Executor) Execute(ctx context.Context, op *connector.Operation) (*connector.Result, error) {
	conn, err := pgx.Connect(ctx, e.cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer conn.Close(ctx)

	if connector.IsReadQuery(op.Query) {
		return queryRows(ctx, conn, op)
	}

	tag, err := conn.Exec(ctx, op.Query, op.Params...)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}
	return &connector.Result{Status: "success", RowsAffected: tag.RowsAffected()}, nil
}

func queryRows(ctx context.Context, conn *pgx.Conn, op *connector.Operation) (*connector.Result, error) {
	rows, err := conn.Query(ctx, op.Query, op.Params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	columns := make([]string, len(descs))
	for i, d := range descs {
		columns[i] = d.Name
	}

	limit := connector.ClampLimit(op.Limit)
	result := &connector.Result{
		Status:  "success",
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() && result.RowCount < limit {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
