package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procurement/internal/config"
	"procurement/internal/logger"
	"procurement/internal/proxy"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "development", "procurement-proxy")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.Env, "procurement-proxy")
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	fwd := proxy.New(cfg.ProxyUpstream, cfg.ProxyMountPrefix, &http.Client{Timeout: cfg.HTTPTimeout}, log)

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))

	fwd.RegisterRoutes(&router.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.ProxyPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.ProxyPort).Str("upstream", cfg.ProxyUpstream).Msg("proxy listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("proxy failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
