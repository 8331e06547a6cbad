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

	_ "github.com/automark/automark-api/api/swagger"
	"github.com/automark/automark-api/internal/handler"
	"github.com/automark/automark-api/internal/middleware"
	"github.com/automark/automark-api/internal/models"
	"github.com/automark/automark-api/internal/repository"
	"github.com/automark/automark-api/internal/service"
	"github.com/automark/automark-api/pkg/cache"
	"github.com/automark/automark-api/pkg/config"
	"github.com/automark/automark-api/pkg/database"
	"github.com/automark/automark-api/pkg/jobs"
	"github.com/automark/automark-api/pkg/logger"
	corsmiddleware "github.com/automark/automark-api/pkg/middleware/cors"
	reqidmiddleware "github.com/automark/automark-api/pkg/middleware/requestid"
	"github.com/automark/automark-api/pkg/storage"
)

// @title AutoMark API
// @version 1.0.0
// @description Exam grading portal backend
// @BasePath /api
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

	fileStore, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	examRepo := repository.NewExamRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, sessionRepo, auditRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.Session.Secret,
		SessionTTL:  cfg.Session.TTL,
		Issuer:      "automark-api",
	})
	examSvc := service.NewExamService(examRepo, fileStore, signer, auditRepo, validate, logr)
	exportSvc := service.NewExportService(submissionRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var gradingSvc *service.GradingService
	var enqueuer service.GradeEnqueuer
	if cfg.Grading.Enabled {
		gradingSvc = service.NewGradingService(submissionRepo, examRepo, fileStore, service.TemplateGrader{}, metricsSvc, jobs.QueueConfig{
			Workers:    cfg.Grading.WorkerConcurrency,
			MaxRetries: cfg.Grading.WorkerRetries,
			RetryDelay: cfg.Grading.RetryDelay,
		}, logr)
		gradingSvc.Start(ctx)
		defer gradingSvc.Stop()
		enqueuer = gradingSvc
	}

	submissionSvc := service.NewSubmissionService(submissionRepo, examRepo, fileStore, signer, auditRepo, enqueuer, validate, logr)

	cookie := handler.CookieSettings{
		Name:   cfg.Session.CookieName,
		MaxAge: int(cfg.Session.TTL.Seconds()),
		Secure: cfg.Session.CookieSecure,
	}
	limits := handler.UploadLimits{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	}

	authHandler := handler.NewAuthHandler(authSvc, cookie)
	examHandler := handler.NewExamHandler(examSvc, metricsSvc, limits)
	var exportForHandler *service.ExportService
	if cfg.Export.Enabled {
		exportForHandler = exportSvc
	}
	submissionHandler := handler.NewSubmissionHandler(submissionSvc, exportForHandler, metricsSvc, limits)
	fileHandler := handler.NewFileHandler(signer, fileStore)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(checkCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(checkCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/login", authHandler.Login)
		api.POST("/register", authHandler.Register)
		api.GET("/check-session", authHandler.CheckSession)
		api.POST("/logout", authHandler.Logout)

		api.GET("/files/download", fileHandler.Download)

		teacher := api.Group("")
		teacher.Use(middleware.Session(authSvc, cfg.Session.CookieName), middleware.RequireRoles(models.RoleTeacher))
		{
			teacher.POST("/create-exam", examHandler.Create)
			teacher.GET("/exams", examHandler.List)
			teacher.GET("/teacher/submissions", submissionHandler.ListForTeacher)
			teacher.GET("/teacher/submissions/export", submissionHandler.Export)
			teacher.POST("/publish_grade/:id", submissionHandler.PublishGrade)
			teacher.POST("/update_grade/:id", submissionHandler.UpdateGrade)
		}

		student := api.Group("")
		student.Use(middleware.Session(authSvc, cfg.Session.CookieName), middleware.RequireRoles(models.RoleStudent))
		{
			student.POST("/submit-answer", submissionHandler.Submit)
			student.GET("/submissions", submissionHandler.ListForStudent)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
