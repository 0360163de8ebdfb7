package tracker

import (
	"context"

	"go.uber.org/fx"

	"smc_bot/internal/modules/config"
	deriv "smc_bot/internal/modules/deriv_websocket/service"
	"smc_bot/internal/modules/health"
	storage "smc_bot/internal/modules/storage/service"
	telegram "smc_bot/internal/modules/telegram_bot/service"
	"smc_bot/internal/modules/tracker/service"
)

func newTracker(cfg *config.Config, store storage.Store, feed *deriv.Client, sender *telegram.Sender) *service.Tracker {
	return service.NewTracker(service.Config{
		UserID:         cfg.Service.UserID,
		PersistRetries: cfg.Tracker.PersistRetries,
		PersistBackoff: cfg.Tracker.PersistBackoff,
		ResyncEvery:    cfg.Tracker.ResyncInterval,
	}, store, feed, sender)
}

func Module() fx.Option {
	return fx.Module("tracker",
		fx.Provide(
			newTracker,
			func(t *service.Tracker) health.Watched { return t },
		),
		fx.Invoke(func(lc fx.Lifecycle, tr *service.Tracker) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					// the start ctx expires once fx is up; workers need their own
					return tr.Start(context.Background())
				},
				OnStop: func(context.Context) error {
					tr.Stop()
					return nil
				},
			})
		}),
	)
}
