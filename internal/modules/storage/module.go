package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"smc_bot/internal/modules/config"
	"smc_bot/internal/modules/storage/service"
	"smc_bot/pkg/db"
	"smc_bot/pkg/logger"
)

func newStore(lc fx.Lifecycle, cfg *config.Config) (service.Store, error) {
	ctx := context.Background()

	switch cfg.Storage.Backend {
	case "postgres":
		poolMaster, err := db.NewPool(ctx, db.PoolConfig{
			DSN: cfg.Storage.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create poolMaster: %w", err)
		}
		if err = poolMaster.Ping(ctx); err != nil {
			poolMaster.Close()
			return nil, err
		}
		tx := db.NewPgTxManager(poolMaster)
		if cfg.Storage.Migrate {
			if err := db.Migrate(ctx, tx.Conn()); err != nil {
				tx.Close()
				return nil, err
			}
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				tx.Close()
				return nil
			},
		})
		logger.Info("[STORAGE] postgres ready")
		return service.NewPostgres(tx), nil

	case "firebase":
		fb, err := service.NewFirebase(ctx, service.FirebaseConfig{
			DatabaseURL:     cfg.Storage.Firebase.DatabaseURL,
			CredentialsFile: cfg.Storage.Firebase.CredentialsFile,
			Path:            cfg.Storage.Firebase.Path,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("[STORAGE] firebase ready at %s", cfg.Storage.Firebase.DatabaseURL)
		return fb, nil

	default:
		logger.Warn("[STORAGE] in-memory store, signals are lost on restart")
		return service.NewMemory(), nil
	}
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(newStore),
	)
}
