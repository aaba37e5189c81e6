package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/pyqhub/papers-api/api/swagger"
	"github.com/pyqhub/papers-api/internal/handler"
	"github.com/pyqhub/papers-api/internal/middleware"
	"github.com/pyqhub/papers-api/internal/repository"
	"github.com/pyqhub/papers-api/internal/service"
	"github.com/pyqhub/papers-api/pkg/cache"
	"github.com/pyqhub/papers-api/pkg/config"
	"github.com/pyqhub/papers-api/pkg/database"
	"github.com/pyqhub/papers-api/pkg/logger"
	corsmiddleware "github.com/pyqhub/papers-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pyqhub/papers-api/pkg/middleware/requestid"
	"github.com/pyqhub/papers-api/pkg/storage"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

// @title Question Papers API
// @version 1.0.0
// @description Community archive of previous year question papers
// @BasePath /api
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

	db, err := database.NewPostgres(cfg.Database, logr)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	local, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}

	var remote storage.RemoteStore
	if cfg.OSS.Enabled() {
		ossStore, ossErr := storage.NewOSSStorage(cfg.OSS)
		if ossErr != nil {
			logr.Warn("object storage unavailable, serving uploads locally", zap.Error(ossErr))
		} else {
			remote = ossStore
		}
	}
	relay := storage.NewRelay(local, remote, logr)
	if relay.Active() {
		logr.Info("object storage relay enabled", zap.String("bucket", cfg.OSS.Bucket))
	}

	validate := validator.New()

	paperRepo := repository.NewPaperRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	paperSvc := service.NewPaperService(paperRepo, local, relay, cacheRepo, validate, logr, metricsSvc, service.PaperServiceConfig{
		MaxFileSize:   cfg.Uploads.MaxFileSizeBytes,
		PublicPrefix:  cfg.Uploads.PublicPrefix,
		AutoApprove:   cfg.Uploads.AutoApprove,
		StatsCacheTTL: cfg.Stats.CacheTTL,
	})
	ratingSvc := service.NewRatingService(paperRepo, validate, logr)
	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthServiceConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	exportSvc := service.NewExportService(paperSvc, logr)

	paperHandler := handler.NewPaperHandler(paperSvc, ratingSvc, metricsSvc)
	adminHandler := handler.NewAdminHandler(paperSvc, exportSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.BodyLimit(cfg.BodyMaxBytes))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.Env})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.Static(cfg.Uploads.PublicPrefix, cfg.Uploads.StorageDir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/papers/upload", paperHandler.Upload)
		api.GET("/papers", paperHandler.List)
		api.GET("/papers/:id", paperHandler.Get)
		api.GET("/papers/file/:id", paperHandler.File)
		api.POST("/papers/:id/rating", paperHandler.SubmitRating)
		api.GET("/papers/:id/rating", paperHandler.GetRating)

		api.POST("/admin/login", authHandler.Login)

		admin := api.Group("/admin", middleware.AdminAuth(authSvc))
		{
			admin.GET("/me", authHandler.Me)
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/pending", adminHandler.Pending)
			admin.GET("/papers", adminHandler.List)
			admin.GET("/papers/export", adminHandler.Export)
			admin.PATCH("/papers/:id/status", adminHandler.UpdateStatus)
			admin.PUT("/papers/:id", adminHandler.Update)
			admin.DELETE("/papers/:id", adminHandler.Delete)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
