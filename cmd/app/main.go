// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"marketplace-billing/internal/config"
	"marketplace-billing/internal/domain/ports/adapter"
	"marketplace-billing/internal/infra/api"
	pg "marketplace-billing/internal/infra/db/postgres"
	"marketplace-billing/internal/infra/logging"
	"marketplace-billing/internal/infra/metrics"
	"marketplace-billing/internal/infra/notify"
	payAdapters "marketplace-billing/internal/infra/payment"
	red "marketplace-billing/internal/infra/redis"
	"marketplace-billing/internal/infra/sched"
	"marketplace-billing/internal/infra/web"
	"marketplace-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 30*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	actionRepo := pg.NewActionRepoCacheDecorator(pg.NewActionRepo(pool), redisClient)
	distRepo := pg.NewDistributionRepo(pool)
	balanceRepo := pg.NewBalanceRepo(pool)
	historyRepo := pg.NewHistoryRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	subActionRepo := pg.NewSubscriptionActionRepo(pool)
	entityRepo := pg.NewEntityRepo(pool)
	permRepo := pg.NewPermissionRepo(pool)
	taxRepo := pg.NewTaxRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Use cases ----
	calc := usecase.NewIntervalCalculator(cfg.Billing)
	chargeUC := usecase.NewChargeUseCase(actionRepo, distRepo, balanceRepo, historyRepo, tm, cfg.Billing, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, subActionRepo, planRepo, actionRepo, calc, chargeUC, tm, logger)
	permUC := usecase.NewPermissionUseCase(permRepo, notify.NewLogObserver(logger), logger)
	entityUC := usecase.NewEntityUseCase(entityRepo, permUC, logger)
	planUC := usecase.NewPlanUseCase(planRepo)
	actionUC := usecase.NewActionUseCase(actionRepo)
	statsUC := usecase.NewStatsUseCase(entityRepo, subRepo, balanceRepo, historyRepo)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	switch strings.ToLower(cfg.Gateway.Provider) {
	case "noop":
		gateway = payAdapters.NewNoopGateway()
	default:
		gateway, err = payAdapters.NewCheckoutGateway(cfg.Gateway.MerchantID, cfg.Gateway.CallbackURL, cfg.Gateway.Sandbox)
		if err != nil {
			logger.Fatal().Err(err).Msg("checkout gateway")
		}
	}
	logger.Info().Str("provider", gateway.Name()).Msg("payment gateway configured")

	paymentUC := usecase.NewPaymentUseCase(payRepo, taxRepo, gateway, chargeUC, locker, cfg.Billing, cfg.Gateway.CallbackURL, logger)

	// ---- Admin server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.SessionTTL)
	adminSrv := web.NewServer(statsUC, entityUC, subUC, planUC, actionUC, permUC, chargeUC, auth, cfg.Admin.APIKey, logger)
	adminMux := http.NewServeMux()
	adminSrv.RegisterRoutes(adminMux)
	adminServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: adminMux}
	go func() {
		logger.Info().Str("addr", adminServer.Addr).Msg("admin api listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- Gateway callback server ----
	cbPath := "/api/payment/callback"
	if u := strings.TrimSpace(cfg.Gateway.CallbackURL); u != "" {
		if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
			cbPath = parsed.Path
		}
	}
	cbSrv := api.NewServer(paymentUC, cbPath, cfg.Gateway.ReturnURL)
	cbMux := http.NewServeMux()
	cbSrv.Register(cbMux)
	cbServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Gateway.CallbackPort), Handler: cbMux}
	go func() {
		logger.Info().Str("addr", cbServer.Addr).Str("path", cbPath).Msg("callback server listening")
		if err := cbServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("callback server error")
		}
	}()

	// ---- Workers ----
	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subUC, logger)
	go func() { _ = expiry.Run(ctx) }()
	reconciler := sched.NewPaymentReconciler(paymentUC, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.StalePaymentAge, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = adminServer.Shutdown(shutdownCtx)
	_ = cbServer.Shutdown(shutdownCtx)
}
