// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/latent-forge/internal/config"
	"github.com/yourusername/latent-forge/internal/gan"
	"github.com/yourusername/latent-forge/internal/inject"
	"github.com/yourusername/latent-forge/internal/logging"
)

const (
	serviceName    = "gan-art-generator"
	serviceVersion = "1.0.0"

	shutdownTimeout = 30 * time.Second
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.AppEnv).With().Str("service", serviceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector := inject.Setup(ctx, cfg, logger)
	svc, err := do.Invoke[*gan.Service](injector)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build service")
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestID(), logging.AccessLog(logger))
	router.Use(cors.New(corsConfig(cfg)))
	setupRoutes(router, cfg, svc)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := startJobs(gctx, g, injector, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to start workers")
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("mode", cfg.GinMode).Str("backend", cfg.Backend).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
	if err := stopJobs(injector, logger); err != nil {
		logger.Error().Err(err).Msg("failed to stop workers cleanly")
	}
	logger.Info().Msg("server stopped")
}

// handleHealth はヘルスチェックエンドポイントのハンドラーを返します。
func handleHealth(cfg *config.Config) gin.HandlerFunc {
	return gan.HealthHandler(gan.HealthInfo{
		Service: serviceName,
		Version: serviceVersion,
		Backend: cfg.Backend,
	})
}

// setupRoutes は生成APIとヘルスチェックを登録します。
func setupRoutes(router *gin.Engine, cfg *config.Config, svc gan.JobService) {
	router.GET("/health", handleHealth(cfg))
	router.POST("/generate", gan.GenerateHandler(svc, gan.HandlerOptions{
		SyncTimeout: cfg.SyncTimeout,
	}))
	router.GET("/result/:id", gan.ResultHandler(svc))
}

func corsConfig(cfg *config.Config) cors.Config {
	corsConfig := cors.DefaultConfig()
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	if len(origins) == 1 && strings.TrimSpace(origins[0]) == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		logging.RequestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{logging.RequestIDHeader}
	return corsConfig
}
