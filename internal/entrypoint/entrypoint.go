package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/config"
	http_controllers "github.com/mrlokans/bibsync/internal/http"
	"github.com/mrlokans/bibsync/internal/logging"
	"github.com/mrlokans/bibsync/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, logger zerolog.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	// kill (no param) default sends syscall.SIGTERM, kill -2 is syscall.SIGINT
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no new runs start during shutdown
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info().Msg("server exiting")
	return nil
}

// Run starts the HTTP API. When SYNC_FILE is set and group credentials are
// present, the scheduled sync runs alongside it.
func Run(cfg *config.Config, version string) error {
	session := logging.Open(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
	}, "serve")
	defer session.Close()
	logger := session.Logger

	logger.Info().Str("version", version).Msg("starting bibsync")

	remote := cfg.Validate() == nil
	if !remote {
		logger.Warn().Msg("ZOTERO_GROUP_ID or ZOTERO_API_KEY not set, import endpoints are disabled")
	}

	app, err := NewApp(cfg, logger, AppOptions{Remote: remote})
	if err != nil {
		return err
	}
	defer app.Close()

	routerCfg := http_controllers.RouterConfig{
		Converter: app.Pipeline,
		Database:  app.DB,
		Logger:    logger,
		Version:   version,
	}
	if remote {
		routerCfg.Importer = app.Pipeline
	}
	if app.History != nil {
		routerCfg.History = app.History
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.SyncScheduler
	if remote && cfg.Schedule.File != "" {
		sched = scheduler.NewSyncScheduler(cfg.Schedule.Cron, scheduler.FileJob(app.Pipeline, cfg.Schedule.File, logger), logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		routerCfg.Scheduler = sched
	}

	gin.SetMode(gin.ReleaseMode)
	router := http_controllers.NewRouter(routerCfg)

	return Serve(router, cfg, logger, func(context.Context) {
		if sched != nil {
			sched.Stop()
		}
	})
}
