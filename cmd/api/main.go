package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/docuvault-io/docuvault-api/api/swagger"
	"github.com/docuvault-io/docuvault-api/internal/handler"
	"github.com/docuvault-io/docuvault-api/internal/middleware"
	"github.com/docuvault-io/docuvault-api/internal/models"
	"github.com/docuvault-io/docuvault-api/internal/realtime"
	"github.com/docuvault-io/docuvault-api/internal/repository"
	"github.com/docuvault-io/docuvault-api/internal/service"
	"github.com/docuvault-io/docuvault-api/internal/session"
	"github.com/docuvault-io/docuvault-api/pkg/cache"
	"github.com/docuvault-io/docuvault-api/pkg/config"
	"github.com/docuvault-io/docuvault-api/pkg/database"
	"github.com/docuvault-io/docuvault-api/pkg/jobs"
	"github.com/docuvault-io/docuvault-api/pkg/logger"
	corsmiddleware "github.com/docuvault-io/docuvault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/docuvault-io/docuvault-api/pkg/middleware/requestid"
	"github.com/docuvault-io/docuvault-api/pkg/storage"
)

// @title DocuVault API
// @version 1.0.0
// @description Multi-tenant document store with session-revocable auth and realtime delivery
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it the server runs in a degraded stateless
	// mode where refresh tokens cannot be revoked and presence is disabled.
	var sessionStore session.Store
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running stateless (revocation and presence disabled)", "error", err)
		redisClient = nil
		sessionStore = session.NewStatelessStore()
	} else {
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient, cfg.Session.TTL, logr)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Cache.DefaultTTL, logr, false)
	}

	tokenSvc, err := service.NewTokenService(cfg.JWT)
	if err != nil {
		logr.Sugar().Fatalw("failed to init token service", "error", err)
	}

	objectStore, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("failed to init object store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	hub := realtime.NewHub(sessionStore, metricsSvc, logr)

	authSvc := service.NewAuthService(userRepo, sessionStore, tokenSvc, validator.New(), logr)
	notificationSvc := service.NewNotificationService(notificationRepo, hub, logr)

	notifyQueue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		Logger:     logr,
	})
	notifyQueue.Start(ctx)
	defer notifyQueue.Stop()

	documentSvc := service.NewDocumentService(documentRepo, objectStore, signer, cacheSvc, hub, notifyQueue, logr)
	categorySvc := service.NewCategoryService(categoryRepo, cacheSvc, hub)

	gateway := realtime.NewGateway(hub, tokenSvc, realtime.GatewayConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SendQueueSize:  cfg.Realtime.SendQueueSize,
		AccessCookie:   handler.AccessCookieName,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		PongTimeout:    cfg.Realtime.PongTimeout,
		PingInterval:   cfg.Realtime.PingInterval,
	}, logr)

	cookies := handler.CookieWriter{
		Domain:     cfg.Cookies.Domain,
		Secure:     cfg.Cookies.Secure,
		AuthPath:   cfg.APIPrefix + "/auth",
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}

	authHandler := handler.NewAuthHandler(authSvc, cookies)
	documentHandler := handler.NewDocumentHandler(documentSvc, cfg.Storage.MaxUploadBytes)
	categoryHandler := handler.NewCategoryHandler(categorySvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	presenceHandler := handler.NewPresenceHandler(sessionStore)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "stateless": redisClient == nil})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/ws", gateway.Handle)

	requireAuth := middleware.Auth(tokenSvc, handler.AccessCookieName)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		api.GET("/files/:token", documentHandler.Download)

		protected := api.Group("", requireAuth)
		{
			protected.GET("/documents", documentHandler.List)
			protected.POST("/documents", documentHandler.Upload)
			protected.GET("/documents/:id", documentHandler.Get)
			protected.PUT("/documents/:id", documentHandler.Update)
			protected.DELETE("/documents/:id", documentHandler.Delete)
			protected.GET("/documents/:id/download-url", documentHandler.DownloadURL)

			protected.GET("/categories", categoryHandler.List)
			protected.POST("/categories", middleware.RequireRoles(models.RoleAdmin), categoryHandler.Create)

			protected.GET("/notifications", notificationHandler.List)
			protected.POST("/notifications/:id/read", notificationHandler.MarkRead)

			protected.GET("/presence/online", presenceHandler.Online)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "stateless", redisClient == nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
