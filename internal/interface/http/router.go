package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/todoc/internal/domain/auth"
	"github.com/yanqian/todoc/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, sessions *SessionHandler, authSvc auth.Service, gatherer prometheus.Gatherer, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled && gatherer != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1", rateLimitMiddleware(cfg.HTTP.RateLimit, logger), authMiddleware(authSvc))
	{
		api.GET("/kids", handler.ListKids)
		api.GET("/kids/:kidId/days/:date", handler.GetDay)
		api.GET("/kids/:kidId/months/:year/:month", handler.GetMonth)
		api.POST("/kids/:kidId/records/:category", handler.CreateRecord)
		api.PATCH("/kids/:kidId/records/:category/:id", handler.UpdateRecord)
		api.DELETE("/kids/:kidId/records/:id", handler.DeleteRecord)

		api.POST("/records/edit-intent", handler.EditIntent)
		api.GET("/records/:category/new-intent", handler.NewIntent)

		api.GET("/ai/modes", sessions.Modes)
		api.POST("/ai/chat", sessions.Chat)
		api.GET("/ai/sessions", sessions.ListSessions)
		api.GET("/ai/sessions/:id", sessions.GetSession)
		api.PUT("/ai/sessions/:id", sessions.PutSession)
		api.DELETE("/ai/sessions/:id", sessions.DeleteSession)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, servedLocally(metricsPath(cfg)), logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func metricsPath(cfg *config.Config) string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return cfg.Metrics.Path
}
