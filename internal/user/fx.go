package user

import (
	"github.com/paperifyhq/paperify/internal/user/repository"
	"github.com/paperifyhq/paperify/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
