package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/davidesra/fittrack/internal/auth"
	"github.com/davidesra/fittrack/internal/config"
	"github.com/davidesra/fittrack/internal/custody"
	"github.com/davidesra/fittrack/internal/garmin"
	"github.com/davidesra/fittrack/internal/handlers"
	"github.com/davidesra/fittrack/internal/metrics"
	"github.com/davidesra/fittrack/internal/middleware"
	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/services"
	"github.com/davidesra/fittrack/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	garminCustody := setupCustody(cfg)

	garminClient := garmin.NewClient(garmin.Config{
		Credentials: garmin.Credentials{
			ConsumerKey:    cfg.GarminConsumerKey,
			ConsumerSecret: cfg.GarminConsumerSecret,
		},
		RequestTokenURL: cfg.GarminRequestTokenURL,
		AuthorizeURL:    cfg.GarminAuthorizeURL,
		AccessTokenURL:  cfg.GarminAccessTokenURL,
		APIBaseURL:      cfg.GarminAPIBaseURL,
		Timeout:         cfg.GarminTimeout,
	})
	if cfg.GarminEnabled() {
		log.Printf("Garmin integration enabled: callback=%s", cfg.GarminCallbackURL)
	} else {
		log.Println("Garmin integration disabled (no consumer credentials)")
	}

	userService := services.NewUserService(db)
	garminService := services.NewGarminService(
		garminClient,
		db,
		cfg.GarminCallbackURL,
		cfg.GarminSyncWindowDays,
	)
	workoutService := services.NewWorkoutService(db)
	goalService := services.NewGoalService(db)

	authHandler := handlers.NewAuthHandler(userService, cfg.BaseURL, prometheusMetrics)
	garminHandler := handlers.NewGarminHandler(garminService, garminCustody, prometheusMetrics)
	workoutHandler := handlers.NewWorkoutHandler(workoutService, prometheusMetrics)
	goalHandler := handlers.NewGoalHandler(goalService)

	setupGinMode(cfg)
	r := gin.New()
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode, // Lax so the Garmin callback carries the session
	})
	r.Use(sessions.Sessions("fittrack_session", sessionStore))

	r.GET("/health", createHealthCheckHandler(db))

	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	rateLimiters, redisClient := setupRateLimiting(cfg)

	r.POST("/login", rateLimiters.login, authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	if cfg.GoogleOAuthEnabled {
		googleProvider := auth.NewGoogleProvider(auth.GoogleProviderConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       cfg.GoogleScopes,
		})
		googleHandler := handlers.NewGoogleHandler(
			googleProvider,
			userService,
			cfg.BaseURL,
			prometheusMetrics,
		)
		r.GET("/auth/login/google", googleHandler.Login)
		r.GET("/auth/callback/google", googleHandler.Callback)
		log.Printf("Google sign-in configured: redirect=%s", cfg.GoogleRedirectURL)
	}

	// The Garmin callback is browser-navigated and must answer with a
	// redirect, so it sits outside the JSON-401 auth group. The handler
	// checks the session itself.
	r.GET("/api/garmin/callback", garminHandler.Callback)

	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.GET("/me", authHandler.Me)

		api.GET("/garmin/connect", garminHandler.Connect)
		api.GET("/garmin/status", garminHandler.Status)
		api.POST("/garmin/sync", rateLimiters.sync, garminHandler.Sync)
		api.POST("/garmin/disconnect", garminHandler.Disconnect)

		api.POST("/workouts", workoutHandler.Create)
		api.GET("/workouts", workoutHandler.List)
		api.DELETE("/workouts/:id", workoutHandler.Delete)

		api.GET("/goals", goalHandler.Get)
		api.PUT("/goals", goalHandler.Update)
	}

	log.Printf("FitTrack server starting on %s", cfg.ServerAddr)
	log.Printf("Base URL: %s", cfg.BaseURL)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	if redisClient != nil {
		m.AddShutdownJob(func() error {
			log.Println("Closing Redis connection...")
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing Redis client: %v", err)
				return err
			}
			log.Println("Redis connection closed")
			return nil
		})
	}

	m.AddShutdownJob(func() error {
		log.Println("Closing database connection...")
		return db.Close()
	})

	if cfg.MetricsEnabled {
		addMetricsGaugeUpdateJob(m, db, prometheusMetrics)
	}

	<-m.Done()
}

// setupCustody picks the custody backend holding the in-flight OAuth
// request token pair between the connect redirect and the callback.
func setupCustody(cfg *config.Config) custody.Custody {
	switch cfg.CustodyBackend {
	case config.CustodyBackendMemory:
		log.Println("Custody backend: memory (single instance only)")
		return custody.NewMemoryCustody(cfg.CustodyTTL, cfg.IsProduction)
	case config.CustodyBackendRedis:
		c, err := custody.NewRedisCustody(
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			cfg.CustodyTTL,
			cfg.IsProduction,
		)
		if err != nil {
			log.Fatalf("Failed to initialize redis custody: %v", err)
		}
		log.Printf("Custody backend: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c
	default:
		log.Println("Custody backend: cookie")
		return custody.NewCookieCustody(cfg.CustodyTTL, cfg.IsProduction)
	}
}

func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login gin.HandlerFunc
	sync  gin.HandlerFunc
}

// setupRateLimiting configures rate limiting based on configuration. Returns
// the middlewares and an optional shared Redis client that needs cleanup on
// shutdown.
func setupRateLimiting(cfg *config.Config) (rateLimitMiddlewares, *redis.Client) {
	noOpMiddleware := func(c *gin.Context) { c.Next() }
	if !cfg.EnableRateLimit {
		return rateLimitMiddlewares{login: noOpMiddleware, sync: noOpMiddleware}, nil
	}

	log.Printf("Rate limiting enabled (store: %s)", cfg.RateLimitStore)

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)
	var sharedRedisClient *redis.Client

	if storeType == middleware.RateLimitStoreRedis {
		var err error
		sharedRedisClient, err = middleware.CreateRedisClient(
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
		)
		if err != nil {
			log.Fatalf("Failed to create shared Redis client: %v", err)
		}
		log.Printf("Redis rate limiting configured: %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)
	} else {
		log.Printf("In-memory rate limiting configured (single instance only)")
	}

	createLimiter := func(requestsPerMinute int, endpoint string) gin.HandlerFunc {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       sharedRedisClient,
			CleanupInterval:   cfg.RateLimitCleanup,
		})
		if err != nil {
			log.Fatalf("Failed to create rate limiter for %s: %v", endpoint, err)
		}
		return limiter
	}

	return rateLimitMiddlewares{
		login: createLimiter(cfg.LoginRateLimit, "/login"),
		sync:  createLimiter(cfg.SyncRateLimit, "/api/garmin/sync"),
	}, sharedRedisClient
}

// addMetricsGaugeUpdateJob refreshes the connected-users and
// workouts-by-source gauges once a minute.
func addMetricsGaugeUpdateJob(m *graceful.Manager, db *store.Store, rec metrics.Recorder) {
	update := func() {
		if count, err := db.CountConnectedUsers(); err == nil {
			rec.SetConnectedUsers(int(count))
		}
		for _, source := range []string{models.WorkoutSourceManual, models.WorkoutSourceGarmin} {
			if count, err := db.CountWorkoutsBySource(source); err == nil {
				rec.SetWorkoutsBySource(source, int(count))
			}
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		update()
		for {
			select {
			case <-ticker.C:
				update()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
		return
	}
	gin.SetMode(gin.DebugMode)
}
