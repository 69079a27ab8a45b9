package pubsub

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module("relay",
	fx.Provide(
		NewPublisherProvider,

		// [RELAY_SELECTION] Disabled driver yields a no-op dispatcher
		func(lc fx.Lifecycle, pp *PublisherProvider, logger *slog.Logger) (EventDispatcher, error) {
			pub, err := pp.Build()
			if err != nil {
				return nil, err
			}
			if pub == nil {
				return NewNopDispatcher(), nil
			}

			d := NewEventDispatcher(pub, logger)
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return d.Close()
				},
			})
			return d, nil
		},
	),
)
