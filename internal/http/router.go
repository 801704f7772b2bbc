package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(cfg.Logger))
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Scheduler, cfg.Version)
	router.GET("/health", health.Status)

	api := router.Group("/api")
	{
		if cfg.Converter != nil {
			api.POST("/convert", NewConvertController(cfg.Converter).Convert)
		}
		api.POST("/items", NewItemsController(cfg.Logger).Build)
		api.POST("/duplicates", NewDuplicatesController(cfg.Logger).Detect)

		if cfg.Importer != nil {
			api.POST("/import", NewImportController(cfg.Importer, cfg.Logger).Import)
		}
		if cfg.History != nil {
			runs := NewRunsController(cfg.History, cfg.Logger)
			api.GET("/runs", runs.List)
			api.GET("/runs/:id", runs.Get)
		}
		if cfg.Scheduler != nil {
			schedule := NewScheduleController(cfg.Scheduler)
			api.GET("/schedule", schedule.Status)
			api.POST("/schedule/run", schedule.Run)
		}
	}

	return router
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := logger.Info()
		if c.Writer.Status() >= 500 {
			ev = logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
