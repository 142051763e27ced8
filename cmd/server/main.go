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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	appfinance "github.com/cargoledger/backend/internal/application/finance"
	appidentity "github.com/cargoledger/backend/internal/application/identity"
	apppartner "github.com/cargoledger/backend/internal/application/partner"
	appreport "github.com/cargoledger/backend/internal/application/report"
	appshipping "github.com/cargoledger/backend/internal/application/shipping"
	"github.com/cargoledger/backend/internal/domain/identity"
	"github.com/cargoledger/backend/internal/infrastructure/auth"
	"github.com/cargoledger/backend/internal/infrastructure/config"
	"github.com/cargoledger/backend/internal/infrastructure/logger"
	"github.com/cargoledger/backend/internal/infrastructure/persistence"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
	"github.com/cargoledger/backend/internal/interfaces/http/handler"
	"github.com/cargoledger/backend/internal/interfaces/http/middleware"
	"github.com/cargoledger/backend/internal/interfaces/http/router"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting cargoledger server",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}()

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider,
			logger.ParseLevel(cfg.Log.Level))
		log = telemetry.BridgeLogger(log, otelCore)
	}

	if cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			log.Warn("failed to enable database tracing", zap.Error(err))
		}
	}

	var businessMetrics *telemetry.BusinessMetrics
	if bm, err := telemetry.NewBusinessMetrics(meterProvider.Meter("cargoledger")); err != nil {
		log.Warn("failed to initialize business metrics", zap.Error(err))
	} else {
		businessMetrics = bm
	}

	var blacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("redis unavailable, falling back to in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = redisBlacklist
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// Repositories
	shipmentRepo := persistence.NewGormShipmentRepository(db.DB, cfg.Database.LockTimeout)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	rateRepo := persistence.NewGormExchangeRateRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	reportRepo := persistence.NewGormReportRepository(db.DB)
	txManager := persistence.NewGormTransactionManager(db.DB)

	// Application services
	shipmentSvc := appshipping.NewShipmentService(
		shipmentRepo, paymentRepo, rateRepo, movementRepo, supplierRepo, auditRepo,
		txManager, businessMetrics, log)
	settlementSvc := appfinance.NewSettlementService(
		shipmentRepo, paymentRepo, auditRepo, txManager, businessMetrics, log)
	rateSvc := appfinance.NewExchangeRateService(rateRepo, log)
	supplierSvc := apppartner.NewSupplierService(supplierRepo, shipmentRepo, log)
	userSvc := appidentity.NewUserService(userRepo, auditRepo, log)
	authSvc := appidentity.NewAuthService(userRepo, jwtService, blacklist, log)
	reportSvc := appreport.NewReportService(reportRepo, supplierRepo, log)

	// HTTP handlers
	shipmentHandler := handler.NewShipmentHandler(shipmentSvc)
	paymentHandler := handler.NewPaymentHandler(settlementSvc)
	rateHandler := handler.NewExchangeRateHandler(rateSvc)
	supplierHandler := handler.NewSupplierHandler(supplierSvc)
	userHandler := handler.NewUserHandler(userSvc)
	authHandler := handler.NewAuthHandler(authSvc, userSvc, cfg.JWT.RefreshTokenExpiration)
	reportHandler := handler.NewReportHandler(reportSvc)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, cfg.App.Env)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("invalid trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	engine.GET("/health", healthHandler(db, log))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/system/ping",
		},
		Logger: log,
	}))

	var loginGuards []gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		loginGuards = append(loginGuards, middleware.RateLimit(authLimiter))
	}

	authGroup := router.NewDomainGroup("auth", "/auth")
	authGroup.POST("/login", append(loginGuards, authHandler.Login)...)
	authGroup.POST("/refresh", append(loginGuards, authHandler.Refresh)...)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.POST("/logout-all", authHandler.LogoutAll)
	authGroup.GET("/me", authHandler.Me)

	shipments := router.NewDomainGroup("shipments", "/shipments")
	shipments.
		POST("", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.Create).
		GET("", middleware.RequirePermission(identity.PermShipmentRead), shipmentHandler.List).
		GET("/:id", middleware.RequirePermission(identity.PermShipmentRead), shipmentHandler.Get).
		PUT("/:id/items", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.UpdateItems).
		PUT("/:id/shipping", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.SaveShippingDetails).
		PUT("/:id/clearance", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.SaveClearance).
		POST("/:id/confirm", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.ConfirmPurchase).
		POST("/:id/receive", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.MarkReceived).
		POST("/:id/archive", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.Archive).
		DELETE("/:id", middleware.RequirePermission(identity.PermShipmentWrite), shipmentHandler.Delete).
		GET("/:id/payments", middleware.RequirePermission(identity.PermPaymentRead), paymentHandler.ListByShipment)

	payments := router.NewDomainGroup("payments", "/payments")
	payments.
		POST("", middleware.RequirePermission(identity.PermPaymentWrite), paymentHandler.Record).
		GET("", middleware.RequirePermission(identity.PermPaymentRead), paymentHandler.List)

	rates := router.NewDomainGroup("rates", "/rates")
	rates.
		POST("", middleware.RequirePermission(identity.PermRateWrite), rateHandler.Create).
		GET("", middleware.RequirePermission(identity.PermRateRead), rateHandler.List).
		GET("/latest", middleware.RequirePermission(identity.PermRateRead), rateHandler.Latest)

	suppliers := router.NewDomainGroup("suppliers", "/suppliers")
	suppliers.
		POST("", middleware.RequirePermission(identity.PermSupplierWrite), supplierHandler.Create).
		GET("", middleware.RequirePermission(identity.PermSupplierRead), supplierHandler.List).
		GET("/:id", middleware.RequirePermission(identity.PermSupplierRead), supplierHandler.Get).
		PUT("/:id", middleware.RequirePermission(identity.PermSupplierWrite), supplierHandler.Update).
		PATCH("/:id/active", middleware.RequirePermission(identity.PermSupplierWrite), supplierHandler.SetActive).
		DELETE("/:id", middleware.RequirePermission(identity.PermSupplierWrite), supplierHandler.Delete)

	reports := router.NewDomainGroup("reports", "/reports")
	reports.Use(middleware.RequirePermission(identity.PermReportRead))
	reports.
		GET("/dashboard", reportHandler.Dashboard).
		GET("/suppliers/balances", reportHandler.SupplierBalances).
		GET("/suppliers/:id/statement", reportHandler.SupplierStatement).
		GET("/movements", reportHandler.MovementLedger)

	users := router.NewDomainGroup("users", "/users")
	users.
		POST("/me/password", userHandler.ChangePassword).
		POST("", middleware.RequirePermission(identity.PermUserManage), userHandler.Create).
		GET("", middleware.RequirePermission(identity.PermUserManage), userHandler.List).
		GET("/:id", middleware.RequirePermission(identity.PermUserManage), userHandler.Get).
		POST("/:id/password-reset", middleware.RequirePermission(identity.PermUserManage), userHandler.ResetPassword).
		PATCH("/:id/role", middleware.RequirePermission(identity.PermUserManage), userHandler.ChangeRole).
		PATCH("/:id/active", middleware.RequirePermission(identity.PermUserManage), userHandler.SetActive)

	system := router.NewDomainGroup("system", "/system")
	system.
		GET("/ping", systemHandler.Ping).
		GET("/info", systemHandler.Info)

	r.Register(authGroup).
		Register(shipments).
		Register(payments).
		Register(rates).
		Register(suppliers).
		Register(reports).
		Register(users).
		Register(system)
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
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// healthHandler reports liveness along with database connectivity
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		overall := "ok"
		dbStatus := "up"
		if err := db.Ping(); err != nil {
			log.Error("health check database ping failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			overall = "degraded"
			dbStatus = "down"
		}
		c.JSON(status, gin.H{
			"status":   overall,
			"time":     time.Now().UTC().Format(time.RFC3339),
			"database": dbStatus,
		})
	}
}
