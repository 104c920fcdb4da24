package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/studysync/studysync-api/api/swagger"
	"github.com/studysync/studysync-api/internal/handler"
	"github.com/studysync/studysync-api/internal/middleware"
	"github.com/studysync/studysync-api/internal/models"
	"github.com/studysync/studysync-api/internal/repository"
	"github.com/studysync/studysync-api/internal/service"
	"github.com/studysync/studysync-api/pkg/cache"
	"github.com/studysync/studysync-api/pkg/config"
	"github.com/studysync/studysync-api/pkg/database"
	"github.com/studysync/studysync-api/pkg/jobs"
	"github.com/studysync/studysync-api/pkg/logger"
	corsmiddleware "github.com/studysync/studysync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studysync/studysync-api/pkg/middleware/requestid"
	"github.com/studysync/studysync-api/pkg/storage"
)

// @title StudySync API
// @version 1.0.0
// @description Study platform backend: sessions, flashcards, groups and analytics
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	metricsService := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	flashcardRepo := repository.NewFlashcardRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studysync-api",
	})
	userService := service.NewUserService(userRepo, nil, logr)

	analyticsService := service.NewAnalyticsService(service.AnalyticsServiceParams{
		Repo:    analyticsRepo,
		Cache:   cacheService,
		Metrics: metricsService,
		Logger:  logr,
	})

	sessionService := service.NewSessionService(sessionRepo, analyticsService, nil, logr)
	flashcardService := service.NewFlashcardService(flashcardRepo, analyticsService, nil, logr)
	groupService := service.NewGroupService(groupRepo, nil, logr)

	var generationService *service.GenerationService
	if cfg.Generation.Enabled {
		drafter, err := service.NewGeminiDrafter(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
		if err != nil {
			logr.Sugar().Fatalw("failed to init flashcard generation", "error", err)
		}
		defer drafter.Close() //nolint:errcheck
		generationService = service.NewGenerationService(drafter, flashcardService, cfg.Generation.MaxConcurrency, logr)
	}

	var reportService *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportService := service.NewExportService(analyticsService, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		worker := service.NewReportWorker(reportRepo, exportService, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportService = service.NewReportService(reportRepo, reportQueue, exportService, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportService.RecoverPendingJobs(ctx)
		reportService.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	flashcardHandler := handler.NewFlashcardHandler(flashcardService, generationService)
	groupHandler := handler.NewGroupHandler(groupService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", middleware.JWT(authService))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authService))

	sessions := protected.Group("/sessions")
	{
		sessions.GET("", sessionHandler.List)
		sessions.POST("", sessionHandler.Create)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.PUT("/:id", sessionHandler.Update)
		sessions.PATCH("/:id/status", sessionHandler.Transition)
	}

	flashcards := protected.Group("/flashcards")
	{
		flashcards.GET("", flashcardHandler.ListSets)
		flashcards.POST("", flashcardHandler.CreateSet)
		flashcards.GET("/:id", flashcardHandler.GetSet)
		flashcards.PUT("/:id", flashcardHandler.UpdateSet)
		flashcards.DELETE("/:id", flashcardHandler.DeleteSet)
		flashcards.GET("/:id/cards", flashcardHandler.ListCards)
		flashcards.POST("/:id/cards", flashcardHandler.AddCard)
		flashcards.PUT("/:id/cards/:cardId", flashcardHandler.UpdateCard)
		flashcards.DELETE("/:id/cards/:cardId", flashcardHandler.DeleteCard)
		flashcards.POST("/:id/review", flashcardHandler.RecordReview)
		flashcards.POST("/:id/generate", flashcardHandler.GenerateCards)
		flashcards.POST("/:id/generate/accept", flashcardHandler.AcceptCards)
	}

	// Group discovery is browsable without an account.
	browse := api.Group("/groups", middleware.OptionalJWT(authService))
	{
		browse.GET("", groupHandler.List)
		browse.GET("/:id", groupHandler.Get)
		browse.GET("/:id/members", groupHandler.Members)
	}
	groups := protected.Group("/groups")
	{
		groups.POST("", groupHandler.Create)
		groups.PUT("/:id", groupHandler.Update)
		groups.DELETE("/:id", groupHandler.Delete)
		groups.POST("/:id/join", groupHandler.Join)
		groups.POST("/:id/leave", groupHandler.Leave)
	}

	analytics := protected.Group("/analytics")
	{
		analytics.GET("", analyticsHandler.Overview)
		analytics.GET("/system", middleware.RequireRoles(models.RoleAdmin), analyticsHandler.System)
	}

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService, logr)
		reports := protected.Group("/reports")
		{
			reports.POST("/generate", reportHandler.GenerateReport)
			reports.GET("/status/:id", reportHandler.ReportStatus)
		}
		// Download URLs are authorised by their signed token.
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	users := protected.Group("/users", middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
