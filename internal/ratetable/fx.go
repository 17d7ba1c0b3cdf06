package ratetable

import (
	"github.com/partnerpay/settlo/internal/ratetable/repository"
	"github.com/partnerpay/settlo/internal/ratetable/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratetable.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
