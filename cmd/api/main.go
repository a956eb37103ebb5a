package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/providers/image"
	"studio/internal/studio"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	generator, synthetic, err := image.FromConfig(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image provider")
	}
	if synthetic {
		logger.Warn().Str("provider", cfg.ImageProvider).Msg("no provider credentials; photos will be composed locally")
	}

	session := studio.NewSession(studio.Options{
		Generator:         generator,
		GenerationTimeout: cfg.GenerationTimeout,
		Logger:            &logger,
	})

	app := handlers.NewApp(session, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		GenerateLimitPerMinute: cfg.RateLimitPerMin,
		AllowedOrigins:         cfg.CORSAllowedOrigins,
		TrustProxyHeaders:      cfg.TrustProxyHeaders,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("provider", cfg.ImageProvider).Msg("studio listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
