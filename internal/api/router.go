package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/api/handlers/health"
	recipeHandler "recipe-aggregator/internal/api/handlers/recipe"
	"recipe-aggregator/internal/api/middleware"
	"recipe-aggregator/internal/core/image"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/storage"
	"recipe-aggregator/internal/pkg/common"
)

const (
	timeoutDuration = 120 * time.Second
	// request body limit (1MB); search filters and saved recipes are small
	maxBodySize = 1 << 20
)

// SetupRouter builds the gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, service *search.Service, likedStore storage.LikedStore, enricher *image.Enricher) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Deduplication(cfg))

	// request timeout plus handler dependencies on the context
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("image_enricher", enricher)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
		}
	})

	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	{
		suggestions := recipeHandler.NewHandler(service)
		saved := recipeHandler.NewSavedHandler(likedStore)

		recipes := api.Group("/recipes")
		{
			recipes.POST("/search", suggestions.HandleSearch)
			recipes.POST("/generate", suggestions.HandleGenerate)
			recipes.POST("/discover", suggestions.HandleDiscover)
			recipes.POST("/nutrition", suggestions.HandleNutrition)
			recipes.POST("/customise", suggestions.HandleCustomise)
			recipes.POST("/save", saved.HandleSave)
		}

		api.GET("/shopping-list", saved.HandleShoppingList)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
