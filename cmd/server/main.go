package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/storepulse/backend/docs"
	connectionapp "github.com/storepulse/backend/internal/application/connection"
	dashboardapp "github.com/storepulse/backend/internal/application/dashboard"
	insightapp "github.com/storepulse/backend/internal/application/insight"
	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/infrastructure/analytics"
	"github.com/storepulse/backend/internal/infrastructure/auth"
	"github.com/storepulse/backend/internal/infrastructure/cache"
	"github.com/storepulse/backend/internal/infrastructure/config"
	"github.com/storepulse/backend/internal/infrastructure/crypto"
	"github.com/storepulse/backend/internal/infrastructure/ecommerce"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/oauth"
	"github.com/storepulse/backend/internal/infrastructure/persistence"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"github.com/storepulse/backend/internal/interfaces/http/handler"
	"github.com/storepulse/backend/internal/interfaces/http/middleware"
	"github.com/storepulse/backend/internal/interfaces/http/router"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			StorePulse API
//	@version		1.0
//	@description	Merchant dashboard combining Shopify store data with Google Analytics 4 traffic.

//	@contact.name	StorePulse Support
//	@contact.url	https://github.com/storepulse/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Bootstrap logger for telemetry setup; replaced once the OTEL log bridge exists
	bootLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.Telemetry.ServiceName,
	}, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: loggerProvider,
		Level:          logger.ParseLevel(cfg.Log.Level),
	}))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting StorePulse",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	metrics := telemetry.NopMetrics()
	if meterProvider.IsEnabled() {
		metrics, err = telemetry.NewMetrics(meterProvider.Meter(telemetry.MeterName))
		if err != nil {
			log.Fatal("Failed to create service metrics", zap.Error(err))
		}
	}

	// Credential store
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		dbTracing.DBSystem = telemetry.DBSystemFor(cfg.Database.Driver)
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		if err := telemetry.NewDBTracingPlugin(dbTracing, log).RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}
	if meterProvider.IsEnabled() {
		if sqlDB, err := db.DB.DB(); err == nil {
			reg, err := telemetry.RegisterDBPoolMetrics(meterProvider.Meter(telemetry.MeterName), sqlDB)
			if err != nil {
				log.Warn("Database pool metrics disabled", zap.Error(err))
			} else {
				defer func() { _ = reg.Unregister() }()
			}
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	cipher, err := crypto.NewCipher(cfg.Crypto.SecretKey)
	if err != nil {
		log.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}
	credentials := persistence.NewGormCredentialStore(db.DB, cipher)

	// Result cache
	store, err := cache.NewStoreFactory(cfg.Redis, cfg.Cache.RedisEnabled,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create result cache", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing result cache", zap.Error(err))
		}
	}()
	results := cache.NewResultCache(store, cfg.Cache.KeyPrefix, metrics)

	readiness := map[string]handler.Pinger{"database": db}
	var stateGuard auth.StateGuard = auth.NewInMemoryStateGuard()
	if redisStore, ok := store.(*cache.RedisStore); ok {
		stateGuard = auth.NewRedisStateGuard(redisStore.Client(), cfg.Cache.KeyPrefix)
		readiness["redis"] = redisStore
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// Providers
	shopify, err := ecommerce.NewShopifyAdapter(ecommerce.ShopifyConfigFrom(cfg.Commerce), credentials,
		ecommerce.WithMetrics(metrics),
	)
	if err != nil {
		log.Fatal("Failed to create commerce adapter", zap.Error(err))
	}

	var (
		consent   connectionapp.Consent
		refresher oauth.Refresher
	)
	oauthClient, err := analytics.NewOAuthClient(cfg.Traffic)
	switch {
	case errors.Is(err, analytics.ErrOAuthNotConfigured):
		log.Warn("Analytics OAuth client not configured, traffic authorization disabled")
	case err != nil:
		log.Fatal("Failed to create analytics OAuth client", zap.Error(err))
	default:
		consent = oauthClient
		refresher = oauthClient
	}

	tokens := oauth.NewTokenManager("ga4", credentials, refresher,
		oauth.WithExpirySkew(cfg.OAuth.ExpirySkew),
		oauth.WithMetrics(metrics),
	)
	ga4 := analytics.NewGA4Adapter(analytics.GA4ConfigFrom(cfg.Traffic), tokens,
		analytics.WithMetrics(metrics),
	)

	// Application services
	insights, err := insightapp.NewService(credentials, shopify, ga4, results, insightapp.Config{
		Thresholds: insight.Thresholds{
			LowStock:    cfg.Insight.LowStock,
			HighStock:   cfg.Insight.HighStock,
			HighTraffic: cfg.Insight.HighTraffic,
			LowTraffic:  cfg.Insight.LowTraffic,
		},
		ProductLimit: cfg.Insight.ProductLimit,
		TTL:          cfg.Cache.InsightsTTL,
	})
	if err != nil {
		log.Fatal("Invalid insight configuration", zap.Error(err))
	}
	dashboards := dashboardapp.NewService(credentials, shopify, ga4, insights, results, metrics, dashboardapp.Config{
		TTL:          cfg.Cache.DashboardTTL,
		FetchTimeout: cfg.Dashboard.FetchTimeout,
	})
	connections := connectionapp.NewService(credentials, jwtService, stateGuard, consent, results)

	// HTTP
	middleware.SetupValidator()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Server span, then error status on the way out
	// 4. Metrics - Request counters and latency
	// 5. Logger - Log requests
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       meterProvider.IsEnabled(),
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	if !cfg.IsProduction() {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	healthHandler := handler.NewHealthHandler(cfg.App.Name, version, readiness)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.APIGroups(router.Handlers{
		Health:      healthHandler,
		Dashboard:   handler.NewDashboardHandler(dashboards, insights),
		Connections: handler.NewConnectionHandler(connections),
	},
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		middleware.TracingAttributeInjector(),
	)...)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush telemetry after the last request has been served
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logger": loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited")
}
