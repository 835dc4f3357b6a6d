package billing

import "go.uber.org/fx"

// Module exposes the verifier, reconciler and checkout service via Fx.
// Provider, UserStore and Store are bound by their implementing packages.
var Module = fx.Options(
	fx.Provide(NewVerifier),
	fx.Provide(NewReconciler),
	fx.Provide(NewService),
)
