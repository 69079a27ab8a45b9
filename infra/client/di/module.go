package backenddi

import (
	"context"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/backend"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"backend_client",

	// [CONSTRUCTOR] Provides the breaker-guarded REST client
	fx.Provide(backend.New),

	// [LIFECYCLE] Drops pooled connections on app shutdown
	fx.Invoke(func(lc fx.Lifecycle, client *backend.Client) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}),
)
