package postgres

import (
	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func init() {
	connector.Register(connector.Registration{
		Info: connector.Info{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Execute SQL against a PostgreSQL database with stored credentials",
		},
		Factory: NewExecutor,
	})
}
