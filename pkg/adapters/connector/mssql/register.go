package mssql

import (
	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func init() {
	connector.Register(connector.Registration{
		Info: connector.Info{
			Type:        "sqlserver",
			DisplayName: "SQL Server",
			Description: "Execute SQL against a Microsoft SQL Server database with stored credentials",
		},
		Factory: NewExecutor,
	})
}
