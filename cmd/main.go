package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/api/handlers"
	"github.com/slotheather55/webspark-sub000/internal/api/routes"
	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/services"
	"github.com/slotheather55/webspark-sub000/internal/session"
	"github.com/slotheather55/webspark-sub000/internal/store"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	macros, err := store.NewMacroStore(cfg.Storage.MacroDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open macro store")
	}

	driver := browser.NewChrome(browser.ChromeOptions{
		Headless:  cfg.Chrome.Headless,
		UserAgent: cfg.Chrome.UserAgent,
		ViewportW: cfg.Chrome.ViewportW,
		ViewportH: cfg.Chrome.ViewportH,
	})

	manager := session.NewManager(driver, cfg, macros, logger)

	reportDir := filepath.Join(filepath.Dir(cfg.Storage.MacroDir), "reports")
	scheduler := services.NewScheduler(manager, cfg.Scheduler, reportDir, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	gin.SetMode(cfg.Server.Mode)
	handlers.Init(manager, logger)
	router := routes.SetupRoutes()

	// Graceful shutdown: stop the scheduler, then every live session.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info().Msg("shutting down")

		scheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		manager.StopAll(ctx)

		logger.Info().Msg("shutdown complete")
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("server starting")

	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
