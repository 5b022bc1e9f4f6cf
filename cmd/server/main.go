package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/config"
	"agora/internal/db"
	"agora/internal/logging"
	"agora/internal/metrics"
	"agora/internal/rbac"
	"agora/internal/router"
	"agora/internal/services"
	"agora/internal/tokens"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, envFileFound := config.Load()

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if !envFileFound {
		log.Info("no .env file found, reading configuration from the environment")
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, signing tokens with the session secret")
		cfg.JWTSecret = cfg.SessionSecret
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := db.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Error("open database", zap.Error(err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	guard := rbac.NewGuard(rbac.NewResolver(rbac.DefaultTable(), log), log, rbac.WithObserver(m))

	cache, err := utils.NewCache(128)
	if err != nil {
		log.Error("create cache", zap.Error(err))
		os.Exit(1)
	}

	trust := services.NewTrustEngine(conn, cfg.ContributorThreshold, log)
	scheduler := services.NewTrustScheduler(trust, cfg.TrustQueueSize, cfg.TrustFlushInterval, log, m)

	content := services.NewContentService(conn, guard, scheduler, cache, log)
	notifications := services.NewNotificationService(conn, guard)
	generator := services.NewLLMClient(cfg.LLMBaseURL, cfg.LLMToken, cfg.LLMModel, cfg.LLMTimeout)

	engine := router.New(router.Deps{
		SessionSecret: cfg.SessionSecret,
		Tokens:        tokens.Service{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL},
		Log:           log,
		Gatherer:      registry,
		Guard:         guard,

		Users:         services.NewUserService(conn, guard, log),
		Content:       content,
		Votes:         services.NewVoteService(conn, guard, scheduler, log, m),
		Bookmarks:     services.NewBookmarkService(conn, guard, scheduler),
		Notifications: notifications,
		Applications:  services.NewApplicationService(conn, guard, trust, log),
		Dashboard:     services.NewDashboardService(conn, guard, trust, notifications),
		AI:            services.NewAIService(conn, guard, content, generator, log),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the scheduler outlives the HTTP server so in-flight requests can still schedule
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Run(schedulerCtx)
		close(schedulerDone)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("agora server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	stopScheduler()
	<-schedulerDone

	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
