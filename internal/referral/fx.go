package referral

import (
	"github.com/paperifyhq/paperify/internal/referral/repository"
	"github.com/paperifyhq/paperify/internal/referral/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
