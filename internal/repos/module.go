package repos

import (
	"context"

	"github.com/go-core-fx/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"repos",
		logger.WithNamedLogger("repos"),
		fx.Provide(func() *Metrics { return NewMetrics(prometheus.DefaultRegisterer) }, fx.Private),
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, registry *Registry, config Config) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := registry.Restore(ctx); err != nil {
						return err
					}
					registry.StartAutoRefresh(config.RefreshInterval)
					return nil
				},
				OnStop: func(_ context.Context) error {
					return registry.Close()
				},
			})
		}),
	)
}
