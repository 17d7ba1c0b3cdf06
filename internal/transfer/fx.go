package transfer

import (
	"github.com/partnerpay/settlo/internal/transfer/repository"
	"github.com/partnerpay/settlo/internal/transfer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transfer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
