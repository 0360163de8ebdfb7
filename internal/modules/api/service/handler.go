package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smc_bot/internal/helper"
	"smc_bot/internal/models"
	news "smc_bot/internal/modules/news/service"
	signals "smc_bot/internal/modules/signals/service"
	tracker "smc_bot/internal/modules/tracker/service"
	"smc_bot/internal/smc"
	"smc_bot/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Generator interface {
	Generate(ctx context.Context, symbol string) (models.Signal, error)
	Analyze(ctx context.Context, symbol string) (smc.Report, error)
}

type Tracking interface {
	Track(ctx context.Context, id string) (models.Signal, error)
	Untrack(ctx context.Context, id string) error
	Forget(id string)
	Open() []models.Signal
	Stats(ctx context.Context) (models.Stats, error)
}

type Store interface {
	Get(ctx context.Context, id string) (models.Signal, error)
	List(ctx context.Context, userID string, limit int) ([]models.Signal, error)
	Delete(ctx context.Context, id string) error
}

type Settings interface {
	Get() signals.Settings
	Set(s signals.Settings) error
	Toggle(name string) (bool, error)
}

// NewsReader returns nil when there is no fundamental read for symbol.
type NewsReader interface {
	Analyze(ctx context.Context, symbol string) (*news.Report, error)
}

// Handler exposes signals, tracking, analysis and settings over HTTP.
type Handler struct {
	userID   string
	gen      Generator
	tracker  Tracking
	store    Store
	settings Settings
	news     NewsReader
}

func NewHandler(userID string, gen Generator, tr Tracking, store Store, settings Settings, nr NewsReader) *Handler {
	return &Handler{userID: userID, gen: gen, tracker: tr, store: store, settings: settings, news: nr}
}

func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/signals", h.listSignals)
	api.POST("/signals", h.generateSignal)
	api.GET("/signals/:id", h.getSignal)
	api.DELETE("/signals/:id", h.deleteSignal)
	api.POST("/signals/:id/track", h.trackSignal)
	api.DELETE("/signals/:id/track", h.untrackSignal)

	api.GET("/tracker/open", h.openSignals)
	api.GET("/stats", h.stats)

	api.GET("/analysis/:symbol", h.analysis)
	api.GET("/news/:symbol", h.newsBias)

	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.putSettings)
	api.POST("/settings/:name/toggle", h.toggleSetting)
}

type generateRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (h *Handler) listSignals(c *gin.Context) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			abort(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(v, maxLimit)
	}
	list, err := h.store.List(c.Request.Context(), h.userID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []models.Signal{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) generateSignal(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "symbol is required")
		return
	}
	sig, err := h.gen.Generate(c.Request.Context(), helper.NormSymbol(req.Symbol))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sig)
}

func (h *Handler) getSignal(c *gin.Context) {
	sig, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (h *Handler) deleteSignal(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.tracker.Forget(id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) trackSignal(c *gin.Context) {
	sig, err := h.tracker.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (h *Handler) untrackSignal(c *gin.Context) {
	if err := h.tracker.Untrack(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) openSignals(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Open())
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.tracker.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) analysis(c *gin.Context) {
	r, err := h.gen.Analyze(c.Request.Context(), helper.NormSymbol(c.Param("symbol")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) newsBias(c *gin.Context) {
	symbol := helper.NormSymbol(c.Param("symbol"))
	r, err := h.news.Analyze(c.Request.Context(), symbol)
	if err != nil {
		fail(c, err)
		return
	}
	if r == nil {
		abort(c, http.StatusNotFound, "no news bias for "+symbol)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

// putSettings merges the body over the current settings, so partial
// documents only change the keys they carry.
func (h *Handler) putSettings(c *gin.Context) {
	s := h.settings.Get()
	if err := c.ShouldBindJSON(&s); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.Set(s); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) toggleSetting(c *gin.Context) {
	name := c.Param("name")
	v, err := h.settings.Toggle(name)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "enabled": v})
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSignalNotFound):
		abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrClosed), errors.Is(err, tracker.ErrNotTradeable):
		abort(c, http.StatusConflict, err.Error())
	case errors.Is(err, signals.ErrInsufficientData):
		abort(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		abort(c, http.StatusGatewayTimeout, err.Error())
	default:
		logger.Error("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		abort(c, http.StatusInternalServerError, "internal error")
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
