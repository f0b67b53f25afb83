// Package mssql implements the proxied query executor for SQL Server
// backends using database/sql with the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

// Config holds SQL Server connection settings from decrypted connector
// config.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
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
		username = connector.OptionalString(credentials, "user", "sa")
	}

	return &Config{
		Host:     host,
		Port:     connector.IntFromConfig(config, "port", 1433),
		Database: database,
		Username: username,
		Password: connector.OptionalString(credentials, "password", ""),
	}, nil
}

// ConnectionString builds the sqlserver driver URL. Encryption is enabled
// for remote hosts and disabled on loopback.
func (c *Config) ConnectionString() string {
	encrypt := "true"
	if connector.IsLocalHost(c.Host) {
		encrypt = "disable"
	}

	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
	q := u.Query()
	q.Set("database", c.Database)
	q.Set("encrypt", encrypt)
	q.Set("dial timeout", "10")
	u.RawQuery = q.Encode()
	return u.String()
}

// Executor runs SQL operations against one SQL Server backend.
type Executor struct {
	cfg *Config
}

var _ connector.Executor = (*Executor)(nil)

// NewExecutor creates a SQL Server executor from decrypted config and
// credentials.
func NewExecutor(config, credentials map[string]any) (connector.Executor, error) {
	cfg, err := ConfigFromMap(config, credentials)
	if err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg}, nil
}

func (e *Executor) Execute(ctx context.Context, op *connector.Operation) (*connector.Result, error) {
	db, err := sql.Open("sqlserver", e.cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if !connector.IsReadQuery(op.Query) {
		res, err := db.ExecContext(ctx, op.Query, op.Params...)
		if err != nil {
			return nil, fmt.Errorf("statement failed: %w", err)
		}
		affected, _ := res.RowsAffected()
		return &connector.Result{Status: "success", RowsAffected: affected}, nil
	}

	rows, err := db.QueryContext(ctx, op.Query, op.Params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	limit := connector.ClampLimit(op.Limit)
	result := &connector.Result{
		Status:  "success",
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() && result.RowCount < limit {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
