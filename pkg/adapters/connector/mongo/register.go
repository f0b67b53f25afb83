package mongo

import (
	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func init() {
	connector.Register(connector.Registration{
		Info: connector.Info{
			Type:        "mongodb",
			DisplayName: "MongoDB",
			Description: "Run document operations against a MongoDB database with stored credentials",
		},
		Factory: NewExecutor,
	})
}
