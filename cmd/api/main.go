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
	"github.com/go-playground/validator/v10"

	"github.com/gearstack/cmms-api/internal/handler"
	"github.com/gearstack/cmms-api/internal/repository"
	"github.com/gearstack/cmms-api/internal/router"
	"github.com/gearstack/cmms-api/internal/service"
	"github.com/gearstack/cmms-api/pkg/cache"
	"github.com/gearstack/cmms-api/pkg/config"
	"github.com/gearstack/cmms-api/pkg/database"
	"github.com/gearstack/cmms-api/pkg/logger"
)

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Kanban.CacheTTL, logr, cacheRepo != nil)

	requestRepo := repository.NewRequestRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db).WithMetrics(metrics)

	events := service.NewEventService(notificationRepo, auditRepo, metrics, logr, service.EventConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
	})
	events.Start(ctx)
	defer events.Stop()

	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret}, logr)
	workflowSvc := service.NewWorkflowService(requestRepo, equipmentRepo, events, cacheSvc, metrics, logr)
	requestSvc := service.NewRequestService(requestRepo, counterRepo, equipmentRepo, events, cacheSvc, validate, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, equipmentRepo, cacheSvc, cfg.Kanban.CacheTTL, logr)
	equipmentSvc := service.NewEquipmentService(equipmentRepo, requestRepo, events, validate, logr)
	teamSvc := service.NewTeamService(teamRepo, events, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)

	if cfg.Sweeps.Enabled {
		sweeps := service.NewSweepService(requestRepo, notificationRepo, events, service.SweepConfig{
			PreventiveInterval: cfg.Sweeps.PreventiveInterval,
			OverdueInterval:    cfg.Sweeps.OverdueInterval,
			DueSoonWindow:      cfg.Sweeps.DueSoonWindow,
		}, logr)
		sweeps.Start(ctx)
	}

	engine := router.Setup(cfg, logr, authSvc, metrics, router.Handlers{
		Requests:      handler.NewRequestHandler(requestSvc, workflowSvc),
		Analytics:     handler.NewAnalyticsHandler(analyticsSvc),
		Equipment:     handler.NewEquipmentHandler(equipmentSvc),
		Teams:         handler.NewTeamHandler(teamSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Audits:        handler.NewAuditHandler(auditSvc),
		Metrics:       handler.NewMetricsHandler(metrics),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
