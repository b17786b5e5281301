package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authHandler "callmate-backend/internal/handler/http/auth"
	callHandler "callmate-backend/internal/handler/http/call"
	"callmate-backend/internal/middleware"
	pgRepo "callmate-backend/internal/repository/postgres"
	redisRepo "callmate-backend/internal/repository/redis"
	authService "callmate-backend/internal/service/auth"
	callService "callmate-backend/internal/service/call"
	"callmate-backend/internal/signaling"
	"callmate-backend/pkg/constants"
	"callmate-backend/pkg/database"
	"callmate-backend/pkg/env"
	"callmate-backend/pkg/jwt"
	"callmate-backend/pkg/logger"
	"callmate-backend/pkg/metrics"
)

func main() {
	logger.InitDefault()
	defer logger.Sync()

	ctx := context.Background()
	productionMode := os.Getenv("ENV") == "production"

	// 1. JWT manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		logger.Log.Fatal("JWT_SECRET must be at least 32 characters")
	}

	tokenTTL := env.GetDuration("JWT_TOKEN_TTL", constants.TokenExpiry)
	jwtManager := jwt.NewJWTManager(jwtSecret, tokenTTL)

	// 2. PostgreSQL with exponential backoff retry
	dbConfig := &database.PostgresConfig{
		Host:     env.GetString("DB_HOST", "localhost"),
		Port:     env.GetInt("DB_PORT", 5432),
		User:     env.GetString("DB_USER", "postgres"),
		Password: env.GetStringFromFile("DB_PASSWORD", ""),
		Database: env.GetString("DB_NAME", "callmate"),
		SSLMode:  env.GetString("DB_SSL_MODE", "disable"),
	}

	db := connectWithRetry(ctx, dbConfig)
	defer db.Close()
	logger.Log.Info("connected to PostgreSQL", zap.String("host", dbConfig.Host))

	appMetrics := metrics.NewMetrics("api-server")

	userRepo := pgRepo.NewUserRepository(db.Pool, appMetrics)
	callRepo := pgRepo.NewCallRepository(db.Pool, appMetrics)

	// 3. Redis; sessions, revocation, and rate limiting degrade without it
	redisConfig := &database.RedisConfig{
		Host:     env.GetString("REDIS_HOST", "localhost"),
		Port:     env.GetInt("REDIS_PORT", 6379),
		Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
		DB:       0,
		PoolSize: 10,
	}

	var sessionRepo authService.SessionRepository
	var revocationChecker middleware.RevocationChecker
	var loginLimiter *middleware.RateLimiter

	redisDB, err := database.NewRedisDB(redisConfig)
	if err != nil {
		logger.Log.Warn("failed to connect to Redis, running without sessions and revocation", zap.Error(err))
	} else {
		defer redisDB.Close()
		sessionRepo = redisRepo.NewSessionRepository(redisDB.Client)
		revocationChecker = middleware.NewRedisRevocationChecker(redisDB.Client)
		loginLimiter = middleware.NewRateLimiter(redisDB.Client, env.GetInt("AUTH_RATE_LIMIT", 20), time.Minute)
		logger.Log.Info("connected to Redis", zap.String("host", redisConfig.Host))
	}

	// 4. Signaling provider
	providerKey := env.GetStringFromFile("SIGNALING_API_KEY", "")
	providerSecret := env.GetStringFromFile("SIGNALING_API_SECRET", "")
	providerURL := env.GetString("SIGNALING_BASE_URL", "https://video.stream-io-api.com")
	if providerSecret == "" {
		if productionMode {
			logger.Log.Fatal("SIGNALING_API_SECRET is required in production mode")
		}
		logger.Log.Warn("SIGNALING_API_SECRET not set, call creation will run degraded")
	}
	provider := signaling.NewStreamProvider(providerKey, providerSecret, providerURL)

	// 5. Metrics middleware
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 6. Services and handlers
	authSvc := authService.NewService(userRepo, sessionRepo, jwtManager, provider, appMetrics)
	callSvc := callService.NewService(callRepo, provider, appMetrics)

	authHdlr := authHandler.NewHandler(authSvc)
	callHdlr := callHandler.NewHandler(callSvc)

	// 7. Router
	if productionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	router.GET("/health", func(c *gin.Context) {
		poolStats := db.Stats()
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "api-server",
			"time":    time.Now().UTC(),
			"db": gin.H{
				"total_conns":    poolStats.TotalConns(),
				"idle_conns":     poolStats.IdleConns(),
				"acquired_conns": poolStats.AcquiredConns(),
			},
		})
	})
	router.GET("/metrics", middleware.MetricsHandler())

	authRoutes := router.Group("/auth")
	if loginLimiter != nil {
		authRoutes.Use(loginLimiter.Middleware())
	}
	{
		authRoutes.POST("/register", authHdlr.Register)
		authRoutes.POST("/login", authHdlr.Login)
	}

	authProtected := router.Group("/auth")
	authProtected.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
	{
		authProtected.GET("/me", authHdlr.Me)
		authProtected.POST("/logout", authHdlr.Logout)
	}

	calls := router.Group("/calls")
	calls.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
	{
		calls.POST("", callHdlr.CreateCall)
		calls.GET("", callHdlr.ListCalls)
		calls.GET("/:id", callHdlr.GetCallDetails)
		calls.POST("/:id/join", callHdlr.JoinCall)
		calls.POST("/:id/leave", callHdlr.LeaveCall)
		calls.POST("/:id/end", callHdlr.EndCall)
	}

	// 8. Start server in goroutine
	port := env.GetString("PORT", "8080")
	addr := fmt.Sprintf(":%s", port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Log.Info("api-server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	shutdownOnSignal(server, quit, constants.GracefulShutdownTimeout)

	logger.Log.Info("server exited")
}

// shutdownOnSignal blocks until a signal arrives, then drains in-flight
// requests within the given window before forcing the server down.
func shutdownOnSignal(server *http.Server, quit <-chan os.Signal, timeout time.Duration) {
	<-quit

	logger.Log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server forced to shutdown", zap.Error(err))
	}
}

// connectWithRetry dials PostgreSQL with exponential backoff. Persistence
// is mandatory; the process exits when every attempt fails.
func connectWithRetry(ctx context.Context, config *database.PostgresConfig) *database.PostgresDB {
	maxRetries := 5
	baseDelay := 1 * time.Second
	maxDelay := 30 * time.Second

	db, err := database.NewPostgresDB(ctx, config)
	if err == nil {
		return db
	}

	for attempt := 2; attempt <= maxRetries; attempt++ {
		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
		if delay > maxDelay {
			delay = maxDelay
		}
		logger.Log.Warn("PostgreSQL connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		time.Sleep(delay)

		db, err = database.NewPostgresDB(ctx, config)
		if err == nil {
			return db
		}
	}

	logger.Log.Fatal("failed to connect to PostgreSQL", zap.Int("attempts", maxRetries), zap.Error(err))
	return nil
}
