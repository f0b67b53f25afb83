package s3

import (
	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

func init() {
	connector.Register(connector.Registration{
		Info: connector.Info{
			Type:        "s3",
			DisplayName: "S3 Object Store",
			Description: "Read objects from S3 or S3-compatible storage with stored credentials",
		},
		Factory: NewExecutor,
	})
}
