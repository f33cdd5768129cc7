package entitlement

import (
	"github.com/paperifyhq/paperify/internal/entitlement/repository"
	"github.com/paperifyhq/paperify/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
