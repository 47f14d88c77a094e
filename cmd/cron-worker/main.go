package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/internal/cron"
	"github.com/nordtolk/booking-backend/internal/notifier"
	"github.com/nordtolk/booking-backend/pkg/businesshours"
	"github.com/nordtolk/booking-backend/pkg/config"
	"github.com/nordtolk/booking-backend/pkg/db"
	"github.com/nordtolk/booking-backend/pkg/instance"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/mail"
	"github.com/nordtolk/booking-backend/pkg/metrics"
	"github.com/nordtolk/booking-backend/pkg/migrate"
	"github.com/nordtolk/booking-backend/pkg/outbox"
	"github.com/nordtolk/booking-backend/pkg/push"
	"github.com/nordtolk/booking-backend/pkg/redis"
	"github.com/nordtolk/booking-backend/pkg/sms"
)

const lockKeyFormat = "nt:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	pushClient, err := push.NewClient(cfg.Push)
	if err != nil {
		logg.Error(context.Background(), "failed to create push client", err)
		os.Exit(1)
	}
	smsClient, err := sms.NewClient(cfg.SMS)
	if err != nil {
		logg.Error(context.Background(), "failed to create sms client", err)
		os.Exit(1)
	}
	clock, err := businesshours.New(cfg.BusinessHours)
	if err != nil {
		logg.Error(context.Background(), "failed to create business hours clock", err)
		os.Exit(1)
	}
	var mailer mail.Sender
	if cfg.Mail.Host != "" {
		m, err := mail.New(cfg.Mail)
		if err != nil {
			logg.Error(context.Background(), "failed to create mailer", err)
			os.Exit(1)
		}
		mailer = m
	}

	notifierService, err := notifier.NewService(notifier.Params{
		Push:      pushClient,
		SMS:       smsClient,
		Mail:      mailer,
		Clock:     clock,
		Languages: notifier.NewRepository(dbClient.DB()),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	bookingRepo := bookings.NewRepository(dbClient.DB())

	expiryJob, err := cron.NewBookingExpiryJob(cron.BookingExpiryJobParams{
		Logger:   logg,
		DB:       dbClient,
		Repo:     bookingRepo,
		Notifier: notifierService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking expiry job", err)
		os.Exit(1)
	}
	remindJob, err := cron.NewSessionRemindJob(cron.SessionRemindJobParams{
		Logger:   logg,
		Repo:     bookingRepo,
		Notifier: notifierService,
		Marker:   redisClient,
		LeadTime: cfg.Booking.SessionRemindLeadTime,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session remind job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	disabled := disabledJobNames(cfg.Cron.DisabledJobs)
	for _, job := range []cron.Job{expiryJob, remindJob, retentionJob} {
		if disabled[job.Name()] {
			logg.Warn(context.Background(), fmt.Sprintf("cron job %q disabled by config", job.Name()))
			continue
		}
		registry.Register(job)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Booking.ExpirySweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	go serveMetrics(ctx, logg, cfg.Cron.MetricsPort)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func disabledJobNames(raw string) map[string]bool {
	disabled := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			disabled[name] = true
		}
	}
	return disabled
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
