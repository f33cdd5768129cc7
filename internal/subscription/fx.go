package subscription

import (
	"github.com/paperifyhq/paperify/internal/subscription/repository"
	"github.com/paperifyhq/paperify/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
