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

	"widget-gateway/internal/admission"
	"widget-gateway/internal/audit"
	"widget-gateway/internal/auth"
	"widget-gateway/internal/config"
	"widget-gateway/internal/domains"
	"widget-gateway/internal/httpapi"
	"widget-gateway/internal/ledger"
	"widget-gateway/internal/provider"
	"widget-gateway/internal/reconciler"
	"widget-gateway/internal/slots"
	"widget-gateway/internal/widgets"
	"widget-gateway/pkg/logger"
	"widget-gateway/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local development convenience; the file is absent in deployed envs.
	_ = godotenv.Load()

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

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Storage
	widgetStore := widgets.NewCachedStore(widgets.NewPostgresStore(db), rdb, cfg.Admission.WidgetCacheTTL, log)
	callLedger := ledger.NewPostgresRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	// Core services
	slotManager := slots.NewManager(callLedger)
	matcher := domains.Matcher{
		DevDomains: cfg.Admission.DevDomains,
		Production: cfg.IsProduction(),
	}

	controller := admission.NewController(widgetStore, callLedger, slotManager, matcher)
	controller.Audit = auditSvc
	controller.Guard = admission.NewRedisGuard(rdb, cfg.Admission.GuardTTL, log)
	controller.DefaultRateLimit = cfg.Admission.RateLimitThreshold
	controller.RateWindow = cfg.Admission.RateLimitWindow
	controller.FailPolicy = admission.ParseFailPolicy(cfg.Admission.FailPolicy)

	callProvider := provider.NewHTTPClient(cfg.Provider.BaseURL, cfg.Provider.Timeout)

	rec := reconciler.New(callLedger, widgetStore, callProvider, log)
	rec.Audit = auditSvc
	rec.BatchSize = cfg.Reconciler.BatchSize
	rec.GracePeriod = cfg.Reconciler.GracePeriod
	rec.Retention = cfg.Reconciler.Retention
	rec.OrphanHorizon = cfg.Reconciler.OrphanHorizon
	go rec.RunLoop(rootCtx, cfg.Reconciler.Interval)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Admission:  controller,
		Slots:      slotManager,
		Widgets:    widgetStore,
		Provider:   callProvider,
		Reconciler: rec,
	}
	registerRoutes(r, h, authManager, db)

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
