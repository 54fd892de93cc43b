package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/heritageplates/backend/configs"
	"github.com/heritageplates/backend/jobs"
	"github.com/heritageplates/backend/pkg/logger"
	"github.com/heritageplates/backend/repository"
	"github.com/heritageplates/backend/routes"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/ws"
)

func main() {
	cfg := configs.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	// DB
	if err := configs.ConnectionDB(cfg); err != nil {
		log.WithError(err).Fatal("connect database")
	}
	db := configs.DB()

	// migrate + lookups
	if err := configs.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	if err := configs.SeedLookups(db); err != nil {
		log.WithError(err).Fatal("seed lookups")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// image cache index: database table or redis hash
	var imageStore services.ImageIndexStore = repository.NewImageCacheRepository(db)
	if cfg.ImageCacheStore == "redis" {
		rdb, err := repository.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer rdb.Close()
		imageStore = repository.NewRedisImageIndex(rdb)
	}

	hub := ws.NewNotificationHub(log.WithField("component", "ws"))
	go hub.Run()

	push := services.NewExpoPushClient(cfg.ExpoPushURL, cfg.ExpoAccessToken)
	svc := routes.NewServices(db, cfg, log, hub, push, imageStore)

	if err := svc.Images.Load(ctx); err != nil {
		log.WithError(err).Fatal("load image cache index")
	}

	// housekeeping
	sched := jobs.NewScheduler(jobs.Config{
		ImageCleanupSpec:      cfg.ImageCacheCleanupSpec,
		NotificationPruneSpec: cfg.NotificationPruneSpec,
		NotificationMaxAge:    cfg.NotificationMaxAge,
		JobTimeout:            5 * time.Minute,
	}, log.WithField("component", "jobs"))
	if err := sched.Register(svc.Images, svc.Notifications, svc.OrderIDLimit, svc.ImageLimit); err != nil {
		log.WithError(err).Fatal("register jobs")
	}
	sched.Start()

	// HTTP
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	routes.RegisterRoutes(r, svc, cfg, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.AppEnv}).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	hub.Stop()
}
