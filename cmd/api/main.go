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

	"ussd-gateway/internal/actions"
	"ussd-gateway/internal/audit"
	"ussd-gateway/internal/auth"
	"ussd-gateway/internal/config"
	"ussd-gateway/internal/gateway"
	"ussd-gateway/internal/httpapi"
	"ussd-gateway/internal/menu"
	"ussd-gateway/internal/rides"
	"ussd-gateway/internal/session"
	"ussd-gateway/internal/sms"
	"ussd-gateway/internal/ussd"
	"ussd-gateway/pkg/logger"
	"ussd-gateway/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
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

	if cfg.App.Env == "production" {
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

	// Domain services
	rideService := rides.NewService(rides.NewPostgresRepo(db), nil)
	auditRepo := audit.NewPostgresRepo(db)
	auditService := audit.NewService(auditRepo)
	smsSender := sms.LogSender{Log: log}

	dispatcher, err := actions.NewDispatcher(cfg.USSD.ActionTimeout,
		actions.BookRideAction{Backend: rideService, SMS: smsSender},
		actions.CheckBalanceAction{Backend: rideService},
		actions.RideStatusAction{Backend: rideService},
	)
	if err != nil {
		log.Error("dispatcher init failed", "err", err)
		os.Exit(1)
	}

	tree, err := menu.Load(cfg.USSD.MenuSource, dispatcher.Keys())
	if err != nil {
		log.Error("menu load failed", "source", cfg.USSD.MenuSource, "err", err)
		os.Exit(1)
	}
	log.Info("menu loaded", "source", cfg.USSD.MenuSource, "nodes", tree.Len())

	// Session state lives in redis; the TTL is a backstop at twice the
	// idle timeout, the sweeper handles the precise eviction.
	store := session.NewRedisStore(rdb, 2*cfg.USSD.SessionIdleTimeout)
	locks := session.NewRedisLocker(rdb, "ussd:lock:")

	engine, err := ussd.NewEngine(tree, store, locks, dispatcher, auditService, ussd.EngineConfig{
		IdleTimeout:     cfg.USSD.SessionIdleTimeout,
		Delimiter:       cfg.USSD.InputDelimiter,
		MaxPromptLength: cfg.USSD.MaxPromptLength,
	})
	if err != nil {
		log.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	sweeper := session.NewSweeper(store, locks, cfg.USSD.SessionIdleTimeout, cfg.USSD.SweepInterval, log)
	sweeper.OnExpired = func(ctx context.Context, s session.Session) {
		if err := auditService.LogSession(ctx, audit.EventTypeSessionExpired, s.PhoneNumber, s.CarrierSessionID, s.NodeKey, "idle timeout"); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}
	go sweeper.Run(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r,
		gateway.NewHandler(engine),
		httpapi.Handlers{Auth: authManager, Sessions: store, Audit: auditRepo},
		auth.RequireAccessToken(authManager),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "env", cfg.App.Env)
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

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
