package api

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-checker/internal/api/handlers"
	"label-checker/internal/api/handlers/health"
	labelHandler "label-checker/internal/api/handlers/label"
	profileHandler "label-checker/internal/api/handlers/profile"
	"label-checker/internal/api/middleware"
	"label-checker/internal/core/ai/cache"
	aiservice "label-checker/internal/core/ai/service"
	"label-checker/internal/core/analysis"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/infrastructure/storage"
	"label-checker/internal/pkg/common"
)

// Services are the collaborators the routes are built on. AI, Profiles
// and Redis may be nil.
type Services struct {
	Analysis *analysis.Service
	AI       *aiservice.Service
	Profiles *storage.SQLiteStorage
	Redis    *cache.Service
}

// SetupRouter builds the gin engine.
func SetupRouter(cfg *config.Config, svc Services) (*gin.Engine, error) {
	if svc.Analysis == nil {
		return nil, errors.New("analysis service is required")
	}

	common.LogDebug("starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	router.Use(cors.New(corsConfig(cfg.Server.AllowOrigins)))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	if cfg.Server.RequestTimeout > 0 {
		router.Use(requestTimeout(cfg.Server.RequestTimeout))
	}

	deps := map[string]health.Pinger{"redis": svc.Redis}
	if svc.Profiles != nil {
		deps["storage"] = svc.Profiles
	}
	healthHandler := health.NewHandler(cfg.App.Version, svc.AI, svc.Analysis.OCRAvailable, deps)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	var profiles labelHandler.ProfileReader
	if svc.Profiles != nil {
		profiles = svc.Profiles
	}
	labels := labelHandler.NewHandler(svc.Analysis, profiles)
	dedup := middleware.Deduplication(cfg.DedupWindow)

	api := router.Group("/api/v1")
	{
		analyzeGroup := api.Group("/analyze")
		{
			analyzeGroup.POST("", dedup, labels.HandleAnalyzeImage)
			analyzeGroup.POST("/text", dedup, labels.HandleAnalyzeText)
			analyzeGroup.GET("/allergens", labels.HandleListAllergens)
			analyzeGroup.GET("/preferences", labels.HandleListPreferences)
			analyzeGroup.GET("/cautions", labels.HandleListCautions)
		}

		api.GET("/barcode/:barcode", labels.HandleBarcode)

		if svc.Profiles != nil {
			profilesHandler := profileHandler.NewHandler(svc.Profiles, svc.Analysis.Matcher().Table())
			profileGroup := api.Group("/profiles")
			{
				profileGroup.PUT("/:id", profilesHandler.HandleSave)
				profileGroup.GET("/:id", profilesHandler.HandleGet)
				profileGroup.DELETE("/:id", profilesHandler.HandleDelete)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, common.ErrNotFound)
	})

	common.LogDebug("router setup completed",
		zap.Bool("ai_available", svc.AI.Available()),
		zap.Bool("ocr_available", svc.Analysis.OCRAvailable()),
		zap.Bool("profiles_enabled", svc.Profiles != nil),
		zap.Bool("redis_enabled", svc.Redis.Enabled()),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

// requestTimeout bounds each request's context. Handlers map the
// resulting deadline errors to 504.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			common.LogWarn("request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", d),
			)
		}
	}
}

// corsConfig allows every origin when the list is empty or contains "*".
// Credentials are only allowed for an explicit origin list.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
