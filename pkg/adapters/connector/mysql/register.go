package mysql

import (
	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func init() {
	connector.Register(connector.Registration{
		Info: connector.Info{
			Type:        "mysql",
			DisplayName: "MySQL",
			Description: "Execute SQL against a MySQL database with stored credentials",
		},
		Factory: NewExecutor,
	})
}
