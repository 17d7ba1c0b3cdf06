package scheme

import (
	"github.com/partnerpay/settlo/internal/scheme/repository"
	"github.com/partnerpay/settlo/internal/scheme/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scheme.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
