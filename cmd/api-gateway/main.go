package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutoring-center-api/api/swagger"
	"github.com/noah-isme/tutoring-center-api/internal/handler"
	"github.com/noah-isme/tutoring-center-api/internal/middleware"
	"github.com/noah-isme/tutoring-center-api/internal/repository"
	"github.com/noah-isme/tutoring-center-api/internal/service"
	"github.com/noah-isme/tutoring-center-api/pkg/cache"
	"github.com/noah-isme/tutoring-center-api/pkg/config"
	"github.com/noah-isme/tutoring-center-api/pkg/database"
	"github.com/noah-isme/tutoring-center-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutoring-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutoring-center-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutoring-center-api/pkg/storage"
)

// @title Tutoring Center API
// @version 0.1.0
// @description Student performance aggregation and scoring service
// @BasePath /
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
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, snapshots will always recompute", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, true)
		}
	}

	statsRepo := repository.NewStatsRepository(db)
	statsSvc := service.NewStatsService(service.StatsServiceParams{
		Repo:    statsRepo,
		Cache:   cacheSvc,
		Metrics: metricsSvc,
		Logger:  logr,
		Config: service.StatsServiceConfig{
			ClassDuration:     cfg.Stats.ClassDuration,
			RecentResultLimit: cfg.Stats.RecentResultLimit,
			MonthlyWindowDays: cfg.Stats.MonthlyWindowDays,
			CacheTTL:          cfg.Stats.CacheTTL,
		},
	})
	exportSvc := service.NewExportService(statsSvc, nil, logr, nil, nil)
	authSvc := service.NewAuthService(cfg.JWT.Secret)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("report storage init failed", "error", err)
	}
	reportSvc := service.NewReportService(service.ReportServiceParams{
		Exporter:  exportSvc,
		Store:     reportStore,
		Signer:    storage.NewSignedURLSigner(cfg.Reports.URLSecret, cfg.Reports.URLTTL),
		Logger:    logr,
		Workers:   cfg.Reports.Workers,
		Retention: cfg.Reports.Retention,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reportSvc.Start(ctx)
	defer reportSvc.Stop()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reportSvc.Cleanup(); err != nil {
					logr.Warn("report cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	statsHandler := handler.NewStatsHandler(statsSvc, exportSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/reports/download", reportHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/students/:id/stats", statsHandler.Snapshot)
		api.GET("/students/:id/stats/export", statsHandler.Export)
		api.POST("/students/:id/stats/reports", reportHandler.Create)
		api.GET("/reports/:id", reportHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
