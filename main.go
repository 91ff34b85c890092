package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"recolookup/internal/config"
	"recolookup/internal/container"
	"recolookup/internal/logging"
	"recolookup/ui"
)

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	appConfig, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  appConfig.Logging.Level,
		Format: appConfig.Logging.Format,
	})
	if envErr != nil {
		logging.Debug().Msg("no .env file found, using system environment variables")
	}
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(appConfig)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build container")
	}

	// A failed table is reported by /api/health and shown as unavailable; the server still starts.
	if err := c.LoadTables(ctx); err != nil {
		logging.Warn().Err(err).Msg("starting with tables unavailable")
	}

	app, err := ui.NewApp(ui.Config{
		Port:           appConfig.Server.Port,
		AllowedOrigins: appConfig.Server.AllowedOrigins,
		RateLimit:      appConfig.Server.RateLimit,
		RateWindow:     appConfig.Server.RateWindow,
	}, c.Recommendations)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize UI")
	}

	if err := app.Start(ctx); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
	logging.Info().Msg("server stopped")
}
