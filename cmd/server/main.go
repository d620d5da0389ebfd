package main

import (
	"context"
	defError "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"constructure/internal/access"
	"constructure/internal/auth"
	"constructure/internal/cache"
	"constructure/internal/config"
	"constructure/internal/course"
	"constructure/internal/db"
	"constructure/internal/graph"
	"constructure/internal/logger"
	"constructure/internal/middleware"
	"constructure/internal/user"
	"constructure/internal/utils"
	"constructure/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	// Connect to database
	database, err := db.Open(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Migrate database schema
	if err := db.Migrate(database); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Seed database with demo data
	if cfg.Seed {
		if err := db.Seed(context.Background(), database, log); err != nil {
			log.Fatal().Err(err).Msg("failed to seed database")
		}
	}

	// Redis is optional; a nil client disables the cache
	redisClient := cache.Connect(context.Background(), cfg.RedisAddress, log)
	courseCache := cache.New(redisClient)
	pool := worker.NewWorkerPool(cfg.WorkerPoolSize, log)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	utils.RegisterJSONTagNames()

	// Initialize repositories and services
	guard := access.NewGuard(access.NewGormStore(database))

	userService := user.NewService(user.NewRepository(database), tokens, log)
	courseService := course.NewService(
		course.NewRepository(database),
		guard,
		userService,
		courseCache,
		pool,
		cfg.CourseListCacheTTL,
		log,
	)
	graphService := graph.NewService(graph.NewRepository(database), guard, courseService, log)

	// Initialize handlers
	userHandler := user.NewHandler(userService, cfg.RefreshTokenTTL, cfg.IsProduction(), log)
	courseHandler := course.NewHandler(courseService)
	graphHandler := graph.NewHandler(graphService)
	authMiddleware := &middleware.Auth{UserService: userService, Tokens: tokens}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(cors.New(corsConfig(cfg)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	api := router.Group("/api")
	userHandler.RegisterRoutes(api.Group("/auth"), api.Group("/users"), authMiddleware.Authenticate())

	courses := api.Group("/courses", authMiddleware.Authenticate())
	courseGroup := courseHandler.RegisterRoutes(courses)
	graphHandler.RegisterRoutes(courseGroup)

	// Server configuration
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Str("port", cfg.ServerPort).Str("env", cfg.Environment).Msg("server listening")
		err := server.ListenAndServe()
		if err != nil && !defError.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	shutdown(log, pool, database, redisClient)
	log.Info().Msg("server shutdown complete")
}

func corsConfig(cfg *config.Config) cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if cfg.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.CORSOrigin}
		corsConfig.AllowCredentials = true
	}
	return corsConfig
}

// shutdown drains pending cache writes before closing the stores they use
func shutdown(log zerolog.Logger, pool *worker.WorkerPool, database *gorm.DB, redisClient *redis.Client) {
	pool.Shutdown()

	if err := db.Close(database); err != nil {
		log.Error().Err(err).Msg("database close error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("redis close error")
		}
	}
}
