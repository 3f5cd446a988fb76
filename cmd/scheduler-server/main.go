package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	internalhandler "github.com/noah-isme/classsched/internal/handler"
	internalmiddleware "github.com/noah-isme/classsched/internal/middleware"
	"github.com/noah-isme/classsched/internal/metrics"
	"github.com/noah-isme/classsched/internal/scheduler"
	"github.com/noah-isme/classsched/pkg/cache"
	"github.com/noah-isme/classsched/pkg/config"
	"github.com/noah-isme/classsched/pkg/logger"
	corsmiddleware "github.com/noah-isme/classsched/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classsched/pkg/middleware/requestid"
)

// @title Class Scheduler API
// @version 0.1.0
// @description DSATUR + genetic-optimizer class scheduling engine
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := metrics.New()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	var redisClient *redis.Client
	if cfg.Cache.RedisBacked {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("schedule cache redis mirror disabled", "error", err)
		} else {
			redisClient = client
			defer redisClient.Close()
		}
	}

	scheduleCache, err := scheduler.NewScheduleCache(cfg.Cache.Capacity, redisClient, cfg.Cache.TTL, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init schedule cache", "error", err)
	}

	dispatcher := scheduler.NewDispatcher(cfg.Dispatcher.Workers, logr)
	run := scheduler.NewRun(cfg, scheduleCache, dispatcher, logr)
	scheduleHandler := internalhandler.NewScheduleHandler(run, metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/schedule/generate", scheduleHandler.Generate)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
