package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"label-checker/internal/api"
	"label-checker/internal/core/ai/cache"
	"label-checker/internal/core/ai/provider"
	"label-checker/internal/core/ai/queue"
	aiservice "label-checker/internal/core/ai/service"
	"label-checker/internal/core/allergen"
	"label-checker/internal/core/analysis"
	"label-checker/internal/core/image"
	"label-checker/internal/core/ocr"
	"label-checker/internal/core/product"
	"label-checker/internal/core/service"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/infrastructure/storage"
	"label-checker/internal/pkg/common"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir, false); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("config loaded",
		zap.String("env", cfg.App.Env),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.Bool("openrouter_configured", cfg.OpenRouter.Available()),
		zap.Bool("ocr_configured", cfg.OCR.Available()),
		zap.String("ai_mode", cfg.AI.Mode),
	)

	table, err := allergen.LoadTable(cfg.Reference.Path)
	if err != nil {
		common.LogFatal("Failed to load reference data", zap.Error(err))
	}

	defaultMode, err := analysis.ParseMode(cfg.AI.Mode, analysis.ModeAuto)
	if err != nil {
		common.LogFatal("Invalid AI mode", zap.String("mode", cfg.AI.Mode))
	}

	var model provider.Provider
	if cfg.OpenRouter.Available() {
		model = service.NewOpenRouterService(cfg.OpenRouter)
	}

	cacheManager := cache.NewManager(cfg.Cache)
	if cfg.Cache.Enabled && cacheManager == nil {
		common.LogFatal("Failed to initialize cache manager")
	}
	ai := aiservice.NewService(model, cacheManager, queue.NewManager(cfg.Queue))
	defer ai.Close()

	redisCtx, cancelRedis := context.WithTimeout(context.Background(), 5*time.Second)
	redis, err := cache.NewService(redisCtx, cfg.Redis)
	cancelRedis()
	if err != nil {
		common.LogFatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	analysisService := analysis.NewService(analysis.Deps{
		Matcher:  allergen.NewMatcher(table),
		Model:    ai,
		OCR:      ocr.NewClient(cfg.OCR),
		Products: product.NewClient(cfg.OpenFoodFacts, redis),
		Images:   image.NewService(cfg.Image),
	}, cfg.Analysis, defaultMode)

	services := api.Services{
		Analysis: analysisService,
		AI:       ai,
		Redis:    redis,
	}
	if cfg.Storage.Path != "" {
		profiles, err := storage.NewSQLiteStorage(cfg.Storage.Path)
		if err != nil {
			common.LogFatal("Failed to open profile storage", zap.Error(err), zap.String("path", cfg.Storage.Path))
		}
		defer profiles.Close()
		services.Profiles = profiles
	}

	router, err := api.SetupRouter(cfg, services)
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("starting server",
			zap.String("version", cfg.App.Version),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("server exited")
}
