package subscription

import (
	"go.uber.org/fx"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
)

// Module exposes the subscription service via Fx, both as itself and as the
// billing store.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewService, fx.As(fx.Self()), fx.As(new(billing.Store)))),
)
