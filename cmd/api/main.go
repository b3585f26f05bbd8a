package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"entity-audit/internal/audit"
	"entity-audit/internal/auth"
	"entity-audit/internal/config"
	"entity-audit/pkg/logger"
	"entity-audit/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	repo := audit.NewPostgresRepo(db)
	if err := repo.EnsureSchema(rootCtx); err != nil {
		log.Error("audit schema init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := audit.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		log.Error("metrics init failed", "err", err)
		os.Exit(1)
	}

	fields := audit.NewFieldTable()
	auditSvc := audit.NewService(repo, audit.ServiceOptions{
		RecentLimit:       cfg.Audit.RecentLimit,
		StatsWindow:       cfg.Audit.StatsWindow,
		DashboardFallback: cfg.Audit.DashboardFallback,
		Cache:             audit.NewRedisCache(rdb, cfg.Audit.CacheTTL),
		Metrics:           metrics,
	})
	engine := audit.NewEngine(
		auditSvc,
		audit.NewSQLSnapshotFetcher(db, fields, cfg.Audit.SnapshotTimeout, metrics),
		fields,
		audit.EngineConfig{
			MaxPayloadBytes: cfg.Audit.MaxPayloadBytes,
			MaxBodyBytes:    cfg.Audit.MaxBodyBytes,
			PersistTimeout:  cfg.Audit.PersistTimeout,
		},
		metrics,
	)

	// Gin router
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.App.TrustedProxies); err != nil {
		log.Error("trusted proxies invalid", "err", err)
		os.Exit(1)
	}
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:      cfg,
		auth:     authManager,
		audit:    auditSvc,
		engine:   engine,
		registry: reg,
		db:       db,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
