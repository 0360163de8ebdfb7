package deriv_websocket

import (
	"context"

	"go.uber.org/fx"

	"smc_bot/internal/modules/config"
	"smc_bot/internal/modules/deriv_websocket/service"
	health "smc_bot/internal/modules/health/service"
)

func newClient(cfg *config.Config, state *health.State) *service.Client {
	return service.NewClient(service.Config{
		URL:          cfg.Deriv.URL,
		AppID:        cfg.Deriv.AppID,
		PingInterval: cfg.Deriv.PingInterval,
		ReconnectMin: cfg.Deriv.ReconnectMin,
		ReconnectMax: cfg.Deriv.ReconnectMax,
		MaxCandles:   cfg.Deriv.MaxCandles,
		HistoryCount: cfg.Analysis.CandleCount,
	}, state)
}

// Module provides the Deriv market data client. Streams are opened lazily
// by subscribers and closed on shutdown.
func Module() fx.Option {
	return fx.Module("deriv_websocket",
		fx.Provide(newClient),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					c.Close()
					return nil
				},
			})
		}),
	)
}
