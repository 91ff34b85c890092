package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"recolookup/internal/api"
	"recolookup/internal/config"
	"recolookup/internal/container"
	"recolookup/internal/logging"
)

// JSON API only, without the HTML pages or /metrics
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build container")
	}
	if err := c.LoadTables(ctx); err != nil {
		logging.Warn().Err(err).Msg("starting with tables unavailable")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(api.NewRecommendationHandler(c.Recommendations)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to listen")
	}

	logging.Info().Str("addr", srv.Addr).Msg("starting API server")
	if err := serve(ctx, srv, ln); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

// serve runs srv on ln until ctx is cancelled and returns once in-flight
// requests have drained
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	if err := <-done; err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logging.Info().Msg("API server stopped")
	return nil
}
