package signals

import (
	"context"

	"go.uber.org/fx"

	"smc_bot/internal/modules/config"
	deriv "smc_bot/internal/modules/deriv_websocket/service"
	news "smc_bot/internal/modules/news/service"
	"smc_bot/internal/modules/signals/service"
	storage "smc_bot/internal/modules/storage/service"
	telegram "smc_bot/internal/modules/telegram_bot/service"
)

func newSettings(cfg *config.Config) (*service.SettingsStore, error) {
	return service.NewSettingsStore(cfg.Analysis.SettingsFile)
}

func newGenerator(
	cfg *config.Config,
	feed *deriv.Client,
	store storage.Store,
	nf *news.Finnhub,
	sender *telegram.Sender,
	settings *service.SettingsStore,
) *service.Generator {
	return service.NewGenerator(service.Config{
		UserID:     cfg.Service.UserID,
		Timeframe:  cfg.Analysis.Timeframe,
		CandleWait: cfg.Analysis.CandleWait,
	}, feed, store, nf, sender, settings)
}

func newScanner(cfg *config.Config, gen *service.Generator, settings *service.SettingsStore) *service.Scanner {
	return service.NewScanner(service.ScannerConfig{
		Symbols:  cfg.Analysis.Symbols,
		Interval: cfg.Analysis.ScanInterval,
		Spacing:  cfg.Analysis.ScanSpacing,
	}, gen, settings)
}

func Module() fx.Option {
	return fx.Module("signals",
		fx.Provide(
			newSettings,
			newGenerator,
			newScanner,
		),
		fx.Invoke(func(lc fx.Lifecycle, gen *service.Generator, sc *service.Scanner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					sc.Start(context.Background())
					return nil
				},
				OnStop: func(context.Context) error {
					sc.Stop()
					gen.Close()
					return nil
				},
			})
		}),
	)
}
