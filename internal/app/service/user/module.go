package user

import (
	"go.uber.org/fx"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
)

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewService, fx.As(fx.Self()), fx.As(new(billing.UserStore)))),
)
