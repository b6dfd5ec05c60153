package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/energypractice/enrollment-backend/internal/cron"
	"github.com/energypractice/enrollment-backend/internal/invites"
	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/pkg/config"
	"github.com/energypractice/enrollment-backend/pkg/db"
	"github.com/energypractice/enrollment-backend/pkg/instance"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/metrics"
	"github.com/energypractice/enrollment-backend/pkg/migrate"
	"github.com/energypractice/enrollment-backend/pkg/redis"
	"github.com/energypractice/enrollment-backend/pkg/telegram"
)

const serviceKind = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

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

	if !cfg.Telegram.Configured() {
		logg.Warn(ctx, "telegram bot not configured, nothing to reconcile")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(ctx, logg, "failed to bootstrap database", err)
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	exitOnErr(ctx, logg, "failed to run dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	exitOnErr(ctx, logg, "failed to bootstrap redis", err)
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	telegramClient, err := telegram.NewClient(
		cfg.Telegram.BotToken,
		cfg.Telegram.GroupID,
		telegram.WithBaseURL(cfg.Telegram.APIBaseURL),
		telegram.WithTimeout(cfg.Telegram.Timeout),
	)
	exitOnErr(ctx, logg, "failed to create telegram client", err)

	participantRepo := participants.NewRepository(dbClient.DB())
	issuer, err := invites.NewIssuer(invites.IssuerParams{
		Participants: participantRepo,
		Provider:     telegramClient,
		Metrics:      metrics.NewPipelineMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
	})
	exitOnErr(ctx, logg, "failed to create invite issuer", err)

	reconcileJob, err := cron.NewInviteReconcileJob(cron.InviteReconcileJobParams{
		Logger: logg,
		Reader: participantRepo,
		Issuer: issuer,
		Batch:  cfg.Cron.ReconcileBatch,
	})
	exitOnErr(ctx, logg, "failed to create invite reconcile job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	exitOnErr(ctx, logg, "failed to create cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Jobs:       []cron.Job{reconcileJob},
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	exitOnErr(ctx, logg, "failed to create cron service", err)

	if *once {
		logg.Info(ctx, "running single cron cycle")
		exitOnErr(ctx, logg, "cron cycle failed", service.RunOnce(ctx))
		return
	}

	logg.Info(logg.WithField(ctx, "interval", cfg.Cron.Interval.String()), "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		exitOnErr(ctx, logg, "cron worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return serviceKind + ":" + env
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
