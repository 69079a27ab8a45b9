package cmd

import (
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	backenddi "github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/di"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/adapter/pubsub"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/registry"
	httphandler "github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/http"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// NewApp composes the console server.
func NewApp(cfg *config.Config, loader *config.Loader, sink LogSink) *fx.App {
	return fx.New(
		core(cfg, loader, sink),
		httphandler.Module,
	)
}

// NewTUIApp composes everything but the HTTP surface.
func NewTUIApp(cfg *config.Config, loader *config.Loader, sink LogSink, extra ...fx.Option) *fx.App {
	return fx.New(
		core(cfg, loader, sink),
		fx.Options(extra...),
	)
}

func core(cfg *config.Config, loader *config.Loader, sink LogSink) fx.Option {
	return fx.Options(
		fx.Supply(cfg, loader, sink),
		fx.Provide(
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideTracerProvider,
		),
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
		fx.Invoke(
			WatchConfig,
			// [TRACING] Install the provider before any span is started
			func(*sdktrace.TracerProvider) {},
		),
		backenddi.Module,
		registry.Module,
		pubsub.Module,
		service.Module,
	)
}
