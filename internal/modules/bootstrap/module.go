package bootstrap

import (
	"context"

	"go.uber.org/fx"

	bootstrap "smc_bot/internal/modules/bootstrap/service"
	"smc_bot/internal/modules/config"
	signals "smc_bot/internal/modules/signals/service"
	telegram "smc_bot/internal/modules/telegram_bot/service"
	"smc_bot/pkg/logger"
)

func newWarmuper(gen *signals.Generator, sender *telegram.Sender) *bootstrap.Warmuper {
	return bootstrap.NewWarmuper(gen, sender, 4)
}

// Module primes the candle streams of the scan symbols in the background.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(newWarmuper),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *bootstrap.Warmuper) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						n := wu.Warmup(ctx, cfg.Analysis.Symbols)
						logger.Info("[BOOT] warmup done: %d/%d symbols", n, len(cfg.Analysis.Symbols))
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
