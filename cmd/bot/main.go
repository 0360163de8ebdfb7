package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"smc_bot/internal/modules/api"
	"smc_bot/internal/modules/bootstrap"
	"smc_bot/internal/modules/config"
	deriv "smc_bot/internal/modules/deriv_websocket"
	"smc_bot/internal/modules/health"
	"smc_bot/internal/modules/news"
	"smc_bot/internal/modules/signals"
	"smc_bot/internal/modules/storage"
	telegram "smc_bot/internal/modules/telegram_bot"
	"smc_bot/internal/modules/tracker"
	"smc_bot/pkg/logger"
	"smc_bot/pkg/tracing"
)

func initLogging(lc fx.Lifecycle, cfg *config.Config) error {
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return err
	}
	logger.SetServiceName(cfg.Service.Name)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Sync()
			return nil
		},
	})
	return nil
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if !cfg.Tracing.Enabled {
		return nil
	}
	tracing.SetServiceName(cfg.Service.Name)
	_, closer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Tracing.Host,
		Port: cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		config.Module(),
		fx.Module("logging", fx.Invoke(initLogging)),
		fx.Module("tracing", fx.Invoke(initTracing)),
		storage.Module(),
		deriv.Module(),
		news.Module(),
		telegram.Module(),
		signals.Module(),
		tracker.Module(),
		bootstrap.Module(),
		api.Module(),
		health.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
