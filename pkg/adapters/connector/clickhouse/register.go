package clickhouse

import (
	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func init() {
	connector.Register(connector.Registration{
		Info: connector.Info{
			Type:        "clickhouse",
			DisplayName: "ClickHouse",
			Description: "Execute SQL against a ClickHouse database with stored credentials",
		},
		Factory: NewExecutor,
	})
}
