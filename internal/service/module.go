package service

import (
	"context"
	"log/slog"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/backend"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service/grid"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		fx.Annotate(
			NewDeliveryService,
			fx.As(new(Deliverer)),
		),
		NewRouteTable,
		NewSessionRegistry,

		// [BACKEND_PORTS] The REST client serves both login and grid fetches
		func(c *backend.Client) Authenticator { return c },
		func(c *backend.Client) grid.Getter { return c },

		func(cfg *config.Config, logger *slog.Logger) Dialer {
			return func(token string) DialFunc {
				return SocketDialer(cfg, token, logger.With("component", "socket"))
			}
		},
	),

	// [LIFECYCLE] Every live socket is closed before the process exits
	fx.Invoke(func(lc fx.Lifecycle, r *SessionRegistry) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				r.Close()
				return nil
			},
		})
	}),
)

// NewRouteTable builds the destination table from the configured overrides.
func NewRouteTable(cfg *config.Config, logger *slog.Logger) *route.Table {
	overrides, unknown := route.Overrides(cfg.Routes)
	for _, key := range unknown {
		logger.Warn("ROUTE_OVERRIDE_IGNORED", "key", key)
	}
	return route.NewTable(overrides)
}
