package commission

import (
	"github.com/partnerpay/settlo/internal/commission/repository"
	"github.com/partnerpay/settlo/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
