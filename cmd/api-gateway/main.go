package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/ims-go-api/api/swagger"
	"github.com/noah-isme/ims-go-api/internal/handler"
	"github.com/noah-isme/ims-go-api/internal/middleware"
	"github.com/noah-isme/ims-go-api/internal/models"
	"github.com/noah-isme/ims-go-api/internal/repository"
	"github.com/noah-isme/ims-go-api/internal/service"
	"github.com/noah-isme/ims-go-api/pkg/cache"
	"github.com/noah-isme/ims-go-api/pkg/config"
	"github.com/noah-isme/ims-go-api/pkg/database"
	"github.com/noah-isme/ims-go-api/pkg/export"
	"github.com/noah-isme/ims-go-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ims-go-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ims-go-api/pkg/middleware/requestid"
)

// @title Internship Management API
// @version 1.0.0
// @description Programs, tasks, reviews, performance and certificates
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled)

	userRepo := repository.NewUserRepository(db)
	programRepo := repository.NewProgramRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	validate := validator.New()
	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "ims-go-api",
	})
	userSvc := service.NewUserService(userRepo, programRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, userRepo, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, programRepo, userRepo, validate, logr)
	performanceSvc := service.NewPerformanceService(taskRepo, programRepo, userRepo, csvExporter, logr)
	certificateSvc := service.NewCertificateService(taskRepo, programRepo, userRepo, pdfExporter, service.CertificateConfig{
		Issuer:   cfg.Certificates.Issuer,
		SignedBy: cfg.Certificates.SignedBy,
	}, logr)
	dashboardSvc := service.NewDashboardService(programRepo, taskRepo, userRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	programHandler := handler.NewProgramHandler(programSvc, dashboardSvc)
	taskHandler := handler.NewTaskHandler(taskSvc, dashboardSvc)
	performanceHandler := handler.NewPerformanceHandler(performanceSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	users := protected.Group("/users", middleware.RequireRoles(models.RoleAdmin))
	{
		users.POST("/mentors", userHandler.CreateMentor)
		users.GET("/mentors", userHandler.ListMentors)
		users.DELETE("/mentors/:id", userHandler.DeleteMentor)
		users.GET("/interns", userHandler.ListInterns)
		users.GET("/interns/available", userHandler.ListAvailableInterns)
		users.PATCH("/interns/:id/status", userHandler.SetInternStatus)
	}

	programs := protected.Group("/programs")
	{
		programs.GET("", programHandler.List)
		programs.GET("/:id", programHandler.Get)
		programs.POST("", middleware.RequireRoles(models.RoleAdmin), programHandler.Create)
		programs.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), programHandler.Update)
		programs.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin), programHandler.ChangeStatus)
		programs.POST("/:id/enrollments", middleware.RequireRoles(models.RoleAdmin), programHandler.Enroll)
	}

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.GET("/stats", middleware.RequireRoles(models.RoleMentor), taskHandler.Stats)
		tasks.GET("/:id", taskHandler.Get)
		tasks.POST("", middleware.RequireRoles(models.RoleMentor), taskHandler.Create)
		tasks.POST("/:id/submit", middleware.RequireRoles(models.RoleIntern), taskHandler.Submit)
		tasks.POST("/:id/review", middleware.RequireRoles(models.RoleMentor), taskHandler.Review)
	}

	performance := protected.Group("/performance")
	{
		performance.GET("/interns/:intern_id/programs/:program_id", performanceHandler.InternPerformance)
		performance.GET("/report", middleware.RequireRoles(models.RoleMentor), performanceHandler.MentorReport)
		performance.GET("/report/export", middleware.RequireRoles(models.RoleMentor), performanceHandler.MentorReportCSV)
	}

	certificates := protected.Group("/certificates")
	{
		certificates.GET("/interns/:intern_id/programs/:program_id/eligibility", certificateHandler.CheckEligibility)
		certificates.GET("/interns/:intern_id/programs/:program_id/download", certificateHandler.Download)
	}

	dashboard := protected.Group("/dashboard")
	{
		dashboard.GET("/mentor", middleware.RequireRoles(models.RoleMentor), dashboardHandler.Mentor)
		dashboard.GET("/admin", middleware.RequireRoles(models.RoleAdmin), dashboardHandler.Admin)
	}

	protected.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
