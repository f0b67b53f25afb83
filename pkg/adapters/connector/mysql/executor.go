// Package mysql implements the proxied query executor for MySQL backends
// using database/sql with the go-sql-driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

// Config holds MySQL connection settings from decrypted connector config.
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
		username = connector.OptionalString(credentials, "user", "root")
	}

	return &Config{
		Host:     host,
		Port:     connector.IntFromConfig(config, "port", 3306),
		Database: database,
		Username: username,
		Password: connector.OptionalString(credentials, "password", ""),
	}, nil
}

// DSN builds the driver connection string. TLS is preferred for remote
// hosts and skipped for loopback.
func (c *Config) DSN() string {
	mc := gomysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Timeout = 10 * time.Second
	if !connector.IsLocalHost(c.Host) {
		mc.TLSConfig = "preferred"
	}
	return mc.FormatDSN()
}

// Executor runs SQL operations against one MySQL backend, opening a fresh
// connection per call.
type Executor struct {
	cfg *Config
}

var _ connector.Executor = (*Executor)(nil)

// NewExecutor creates a MySQL executor from decrypted config and credentials.
func NewExecutor(config, credentials map[string]any) (connector.Executor, error) {
	cfg, err := ConfigFromMap(config, credentials)
	if err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg}, nil
}

func (e *Executor) Execute(ctx context.Context, op *connector.Operation) (*connector.Result, error) {
	db, err := sql.Open("mysql", e.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if connector.IsReadQuery(op.Query) {
		return queryRows(ctx, db, op)
	}
	return execStatement(ctx, db, op)
}

func queryRows(ctx context.Context, db *sql.DB, op *connector.Operation) (*connector.Result, error) {
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
		values := make([]sql.RawBytes, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if values[i] == nil {
				row[col] = nil
			} else {
				row[col] = string(values[i])
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

func execStatement(ctx context.Context, db *sql.DB, op *connector.Operation) (*connector.Result, error) {
	res, err := db.ExecContext(ctx, op.Query, op.Params...)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}
	affected, _ := res.RowsAffected()
	return &connector.Result{Status: "success", RowsAffected: affected}, nil
}
