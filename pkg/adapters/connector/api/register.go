package api

import (
	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func init() {
	connector.Register(connector.Registration{
		Info: connector.Info{
			Type:        "api",
			DisplayName: "REST API",
			Description: "Forward requests to an upstream HTTP API with stored credentials",
		},
		Factory: NewExecutor,
	})
}
