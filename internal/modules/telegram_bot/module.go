package telegram

import (
	"context"

	"go.uber.org/fx"

	"smc_bot/internal/modules/config"
	signals "smc_bot/internal/modules/signals/service"
	storage "smc_bot/internal/modules/storage/service"
	"smc_bot/internal/modules/telegram_bot/service"
	tracker "smc_bot/internal/modules/tracker/service"
)

func newSender(cfg *config.Config) (*service.Sender, error) {
	return service.NewSender(cfg.Telegram.Token, cfg.Telegram.ChatID)
}

func newCommands(
	cfg *config.Config,
	sender *service.Sender,
	gen *signals.Generator,
	tr *tracker.Tracker,
	store storage.Store,
	settings *signals.SettingsStore,
) *service.Commands {
	return service.NewCommands(sender, cfg.Service.UserID, gen, tr, store, settings)
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			newSender,
			newCommands,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, c *service.Commands) {
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						c.Start(context.Background())
						return nil
					},
					OnStop: func(context.Context) error {
						c.Stop()
						return nil
					},
				})
			},
		),
	)
}
