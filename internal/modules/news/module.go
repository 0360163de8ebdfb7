package news

import (
	"go.uber.org/fx"

	"smc_bot/internal/modules/config"
	"smc_bot/internal/modules/news/service"
	"smc_bot/pkg/logger"
)

func newFinnhub(cfg *config.Config) *service.Finnhub {
	f := service.NewFinnhub(service.Config{
		URL:      cfg.News.URL,
		APIKey:   cfg.News.APIKey,
		CacheTTL: cfg.News.CacheTTL,
		Timeout:  cfg.News.Timeout,
	})
	if !f.Enabled() {
		logger.Warn("[NEWS] no finnhub api key, news bias disabled")
	}
	return f
}

func Module() fx.Option {
	return fx.Module("news",
		fx.Provide(newFinnhub),
	)
}
