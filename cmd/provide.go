package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
	"github.com/ThreeDotsLabs/watermill"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// LogSink is where human-facing log output goes (stderr for the server, a file for the tui).
type LogSink struct {
	io.Writer
}

// ProvideLogger builds the process logger. The level lives in a LevelVar so a
// config reload can change it in place.
func ProvideLogger(cfg *config.Config, sink LogSink) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch cfg.Log.Format {
	case "json":
		h = slog.NewJSONHandler(sink, opts)
	case "otel":
		// [OTEL_BRIDGE] Records go to the global OTel logger provider and are mirrored locally
		h = slogmulti.Fanout(
			slog.NewJSONHandler(sink, opts),
			leveled(level, otelslog.NewHandler(ServiceName)),
		)
	default:
		h = slog.NewTextHandler(sink, opts)
	}

	logger := slog.New(h).With(
		slog.String("service", ServiceName),
		slog.String("version", version),
	)
	slog.SetDefault(logger)
	return logger, level
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With(slog.String("component", "watermill")))
}

// ProvideTracerProvider installs the SDK tracer provider globally. Spans stay
// in-process until an exporter is registered on it.
func ProvideTracerProvider(lc fx.Lifecycle) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.namespace", ServiceNamespace),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

// WatchConfig hot-reloads the log level and notification routes.
func WatchConfig(loader *config.Loader, level *slog.LevelVar, routes *route.Table, logger *slog.Logger) {
	loader.Watch(logger, func(cfg *config.Config) {
		level.Set(cfg.Log.SlogLevel())

		overrides, unknown := route.Overrides(cfg.Routes)
		for _, key := range unknown {
			logger.Warn("ROUTE_OVERRIDE_IGNORED", "key", key)
		}
		routes.Reload(overrides)
	})
}

// leveled gates h on the process level. The otelslog handler defers to the logger
// provider, which knows nothing of the LevelVar.
func leveled(level slog.Leveler, h slog.Handler) slog.Handler {
	gate := slogmulti.NewEnabledInlineMiddleware(
		func(ctx context.Context, l slog.Level, next func(context.Context, slog.Level) bool) bool {
			return l >= level.Level() && next(ctx, l)
		},
	)
	return slogmulti.Pipe(gate).Handler(h)
}
