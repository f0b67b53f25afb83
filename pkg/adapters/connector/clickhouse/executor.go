// Package clickhouse implements the proxied query executor for ClickHouse
// backends using the native protocol client.
package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

// Config holds ClickHouse connection settings from decrypted connector
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

	username := connector.OptionalString(credentials, "username", "")
	if username == "" {
		username = connector.OptionalString(credentials, "user", "default")
	}

	return &Config{
		Host:     host,
		Port:     connector.IntFromConfig(config, "port", 9000),
		Database: connector.OptionalString(config, "database", "default"),
		Username: username,
		Password: connector.OptionalString(credentials, "password", ""),
	}, nil
}

// Executor runs SQL operations against one ClickHouse backend.
type Executor struct {
	cfg *Config
}

var _ connector.Executor = (*Executor)(nil)

// NewExecutor creates a ClickHouse executor from decrypted config and
// credentials.
func NewExecutor(config, credentials map[string]any) (connector.Executor, error) {
	cfg, err := ConfigFromMap(config, credentials)
	if err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg}, nil
}

func (e *Executor) open() (clickhouse.Conn, error) {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)},
		Auth: clickhouse.Auth{
			Database: e.cfg.Database,
			Username: e.cfg.Username,
			Password: e.cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	}
	if !connector.IsLocalHost(e.cfg.Host) {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return clickhouse.Open(opts)
}

func (e *Executor) Execute(ctx context.Context, op *connector.Operation) (*connector.Result, error) {
	conn, err := e.open()
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer conn.Close()

	if !connector.IsReadQuery(op.Query) {
		if err := conn.Exec(ctx, op.Query, op.Params...); err != nil {
			return nil, fmt.Errorf("statement failed: %w", err)
		}
		return &connector.Result{Status: "success"}, nil
	}

	rows, err := conn.Query(ctx, op.Query, op.Params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	columns := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = ct.Name()
	}

	limit := connector.ClampLimit(op.Limit)
	result := &connector.Result{
		Status:  "success",
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() && result.RowCount < limit {
		// ClickHouse requires scan targets of the exact column type.
		scanArgs := make([]any, len(columnTypes))
		for i, ct := range columnTypes {
			scanArgs[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = reflect.ValueOf(scanArgs[i]).Elem().Interface()
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
