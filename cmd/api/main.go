package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/nordtolk/booking-backend/api/routes"
	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/internal/matching"
	"github.com/nordtolk/booking-backend/internal/notifications"
	"github.com/nordtolk/booking-backend/internal/notifier"
	"github.com/nordtolk/booking-backend/pkg/businesshours"
	"github.com/nordtolk/booking-backend/pkg/config"
	"github.com/nordtolk/booking-backend/pkg/db"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/mail"
	"github.com/nordtolk/booking-backend/pkg/migrate"
	"github.com/nordtolk/booking-backend/pkg/outbox"
	"github.com/nordtolk/booking-backend/pkg/push"
	"github.com/nordtolk/booking-backend/pkg/redis"
	"github.com/nordtolk/booking-backend/pkg/sms"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	} else {
		logg.Warn(context.Background(), "mail host not configured, emails disabled")
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

	matchingService, err := matching.NewService(matching.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create matching service", err)
		os.Exit(1)
	}

	bookingRepo := bookings.NewRepository(dbClient.DB())
	bookingService, err := bookings.NewService(bookings.ServiceParams{
		Repo:     bookingRepo,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Matcher:  matchingService,
		Notifier: notifierService,
		Config:   cfg.Booking,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, bookingService, bookingRepo, notificationService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
