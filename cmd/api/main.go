package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recipe-aggregator/internal/api"
	"recipe-aggregator/internal/core/cache"
	"recipe-aggregator/internal/core/image"
	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/storage"
	"recipe-aggregator/internal/pkg/common"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// batch cache and show history share one backend
	store, err := newStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache store", zap.Error(err))
	}
	defer store.Close()

	var recipeCache *cache.RecipeCache
	if cfg.Cache.Enabled {
		recipeCache = cache.NewRecipeCache(store)
	}
	history := cache.NewTracker(store)

	likedStore, err := newLikedStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize liked-recipe store", zap.Error(err))
	}
	defer likedStore.Close()

	spoonacular := provider.NewSpoonacularClient(cfg)
	generative := provider.NewGenerativeClient(cfg)
	edamam := provider.NewEdamamClient(cfg)
	enricher := image.NewEnricher(provider.NewUnsplashClient(cfg), cfg.Image)

	service := search.NewService(recipeCache, history, spoonacular, edamam, generative, spoonacular, enricher)

	router, err := api.SetupRouter(cfg, service, likedStore, enricher)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
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
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}

func newStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Enabled && cfg.Cache.Backend == "redis" {
		return cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.TTL)
	}
	return cache.NewMemoryStore(cfg.Cache.TTL), nil
}

func newLikedStore(cfg *config.Config) (storage.LikedStore, error) {
	if cfg.Store.Enabled {
		return storage.NewPostgresLikedStore(cfg.Store.DSN)
	}
	return storage.NewMemoryLikedStore(), nil
}
