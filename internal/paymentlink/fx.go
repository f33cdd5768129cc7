package paymentlink

import (
	"github.com/paperifyhq/paperify/internal/paymentlink/repository"
	"github.com/paperifyhq/paperify/internal/paymentlink/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentlink.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewSigner),
	fx.Provide(service.NewService),
)
