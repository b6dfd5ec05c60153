package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/energypractice/enrollment-backend/api/routes"
	"github.com/energypractice/enrollment-backend/internal/invites"
	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/internal/payments"
	"github.com/energypractice/enrollment-backend/internal/promo"
	robokassawebhook "github.com/energypractice/enrollment-backend/internal/webhooks/robokassa"
	telegramwebhook "github.com/energypractice/enrollment-backend/internal/webhooks/telegram"
	"github.com/energypractice/enrollment-backend/pkg/config"
	"github.com/energypractice/enrollment-backend/pkg/db"
	"github.com/energypractice/enrollment-backend/pkg/env"
	"github.com/energypractice/enrollment-backend/pkg/instance"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/metrics"
	"github.com/energypractice/enrollment-backend/pkg/migrate"
	"github.com/energypractice/enrollment-backend/pkg/redis"
	"github.com/energypractice/enrollment-backend/pkg/telegram"
)

const serviceKind = "api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	exitOnErr(ctx, logg, "failed to load config", err)
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(ctx, logg, "failed to bootstrap database", err)
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	exitOnErr(ctx, logg, "failed to run dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	exitOnErr(ctx, logg, "failed to bootstrap redis", err)
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	participantRepo := participants.NewRepository(dbClient.DB())
	promoRepo := promo.NewRepository(dbClient.DB())

	participantService, err := participants.NewService(participantRepo, nil)
	exitOnErr(ctx, logg, "failed to create participants service", err)

	promoService, err := promo.NewService(promoRepo, nil)
	exitOnErr(ctx, logg, "failed to create promo service", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Participants: participantRepo,
		Promo:        promoService,
		Robokassa:    cfg.Robokassa,
		SiteURL:      cfg.Site.PublicURL,
		Metrics:      pipelineMetrics,
		Logger:       logg,
	})
	exitOnErr(ctx, logg, "failed to create payments service", err)

	var provider invites.Provider
	if cfg.Telegram.Configured() {
		client, err := telegram.NewClient(
			cfg.Telegram.BotToken,
			cfg.Telegram.GroupID,
			telegram.WithBaseURL(cfg.Telegram.APIBaseURL),
			telegram.WithTimeout(cfg.Telegram.Timeout),
		)
		exitOnErr(ctx, logg, "failed to create telegram client", err)
		provider = client
	} else {
		logg.Warn(ctx, "telegram bot not configured, invites disabled")
	}

	inviteIssuer, err := invites.NewIssuer(invites.IssuerParams{
		Participants: participantRepo,
		Provider:     provider,
		Metrics:      pipelineMetrics,
		Logger:       logg,
	})
	exitOnErr(ctx, logg, "failed to create invite issuer", err)

	inviteService, err := invites.NewService(participantRepo)
	exitOnErr(ctx, logg, "failed to create invite service", err)

	revoker, err := invites.NewRevoker(invites.RevokerParams{
		Participants: participantRepo,
		Provider:     provider,
		Policy:       cfg.Telegram.Policy(),
		Metrics:      pipelineMetrics,
		Logger:       logg,
	})
	exitOnErr(ctx, logg, "failed to create invite revoker", err)

	callbackGuard, err := robokassawebhook.NewCallbackGuard(redisClient, cfg.Idempotency.CallbackGuard)
	exitOnErr(ctx, logg, "failed to create callback guard", err)

	callbackService, err := robokassawebhook.NewService(robokassawebhook.ServiceParams{
		Participants: participantRepo,
		Password2:    cfg.Robokassa.Password2,
		Issuer:       inviteIssuer,
		Guard:        callbackGuard,
		Metrics:      pipelineMetrics,
		Logger:       logg,
	})
	exitOnErr(ctx, logg, "failed to create callback service", err)

	telegramService, err := telegramwebhook.NewService(telegramwebhook.ServiceParams{
		GroupID:       cfg.Telegram.GroupID,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		Revoker:       revoker,
		Logger:        logg,
	})
	exitOnErr(ctx, logg, "failed to create telegram webhook service", err)

	// PORT is assigned by the hosting platform and wins over ENROLL_APP_PORT.
	port := env.First("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			participantService,
			promoService,
			paymentService,
			inviteService,
			inviteIssuer,
			callbackService,
			telegramService,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"addr":              addr,
		"robokassa_test":    cfg.Robokassa.TestMode,
		"telegram_enabled":  provider != nil,
		"telegram_revoking": cfg.Telegram.Policy(),
	}), "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			exitOnErr(ctx, logg, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", name), "close failed", err)
	}
}

func exitOnErr(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
