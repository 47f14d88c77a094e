package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nordtolk/booking-backend/api/controllers"
	"github.com/nordtolk/booking-backend/api/middleware"
	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/internal/notifications"
	"github.com/nordtolk/booking-backend/pkg/config"
	"github.com/nordtolk/booking-backend/pkg/db"
	"github.com/nordtolk/booking-backend/pkg/enums"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/redis"
)

// NewRouter assembles the HTTP surface of the booking API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	bookingService bookings.Service,
	bookingRepo bookings.Repository,
	notificationService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	acceptPolicy := middleware.NewRateLimitPolicy(
		"accept",
		cfg.Booking.AcceptRateWindow,
		0,
		cfg.Booking.AcceptRateLimit,
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/bookings", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Post("/", controllers.CreateBooking(bookingService, logg))
		r.Get("/", controllers.ListBookings(bookingService, logg))
		r.Get("/history", controllers.BookingHistory(bookingService, logg))
		r.Get("/potential", controllers.PotentialBookings(bookingService, logg))
		r.Post("/email", controllers.UpdateBookingEmail(bookingService, logg))
		r.With(middleware.RateLimit(acceptPolicy, redisClient, logg)).
			Post("/accept-by-id", controllers.AcceptBookingByID(bookingService, logg))

		r.Route("/{bookingId}", func(r chi.Router) {
			r.Get("/", controllers.BookingDetail(bookingRepo, logg))
			r.With(middleware.RateLimit(acceptPolicy, redisClient, logg)).
				Post("/accept", controllers.AcceptBooking(bookingService, logg))
			r.Post("/cancel", controllers.CancelBooking(bookingService, logg))
			r.Post("/end", controllers.EndBooking(bookingService, logg))
			r.Post("/not-carried-out", controllers.BookingNotCarriedOut(bookingService, logg))
			r.Post("/reopen", controllers.ReopenBooking(bookingService, logg))
			r.Post("/distance", controllers.RecordBookingDistance(bookingService, logg))
		})
	})

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/", controllers.ListNotifications(notificationService, logg))
		r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationService, logg))
	})

	r.Route("/api/admin/v1/bookings", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireUserType(enums.UserTypeAdmin, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Post("/", controllers.CreateBooking(bookingService, logg))
		r.Route("/{bookingId}", func(r chi.Router) {
			r.Get("/", controllers.BookingDetail(bookingRepo, logg))
			r.Put("/", controllers.UpdateBooking(bookingService, logg))
			r.Post("/status", controllers.ChangeBookingStatus(bookingService, logg))
			r.Post("/reassign", controllers.ReassignBooking(bookingService, logg))
			r.Post("/reopen", controllers.ReopenBooking(bookingService, logg))
			r.Post("/resend-push", controllers.ResendBookingPush(bookingService, logg))
			r.Post("/resend-sms", controllers.ResendBookingSMS(bookingService, logg))
			r.Post("/ignore-expiring", controllers.IgnoreBookingExpiring(bookingService, logg))
			r.Post("/ignore-expired", controllers.IgnoreBookingExpired(bookingService, logg))
			r.Post("/distance", controllers.RecordBookingDistance(bookingService, logg))
		})
	})

	return r
}
