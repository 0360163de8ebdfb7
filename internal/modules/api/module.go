package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"smc_bot/internal/modules/api/service"
	"smc_bot/internal/modules/config"
	news "smc_bot/internal/modules/news/service"
	signals "smc_bot/internal/modules/signals/service"
	storage "smc_bot/internal/modules/storage/service"
	tracker "smc_bot/internal/modules/tracker/service"
	"smc_bot/pkg/logger"
)

func newHandler(
	cfg *config.Config,
	gen *signals.Generator,
	tr *tracker.Tracker,
	store storage.Store,
	settings *signals.SettingsStore,
	nf *news.Finnhub,
) *service.Handler {
	return service.NewHandler(cfg.Service.UserID, gen, tr, store, settings, nf)
}

func newRouter(cfg *config.Config, h *service.Handler) *gin.Engine {
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	h.Register(r)
	return r
}

func runHTTP(lc fx.Lifecycle, cfg *config.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("[API] listening on %s", addr)
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("[API] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(newHandler, newRouter),
		fx.Invoke(runHTTP),
	)
}
