package wallet

import (
	"github.com/partnerpay/settlo/internal/wallet/repository"
	"github.com/partnerpay/settlo/internal/wallet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
