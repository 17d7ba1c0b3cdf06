package mapping

import (
	"github.com/partnerpay/settlo/internal/mapping/repository"
	"github.com/partnerpay/settlo/internal/mapping/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mapping.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
