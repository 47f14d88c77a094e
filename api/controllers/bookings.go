package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordtolk/booking-backend/api/middleware"
	"github.com/nordtolk/booking-backend/api/responses"
	"github.com/nordtolk/booking-backend/api/validators"
	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/booking-backend/pkg/errors"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/pagination"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor")
	}
	return id, nil
}

func bookingID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "bookingId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id")
	}
	return id, nil
}

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id")
	}
	return &id, nil
}

func parseOptionalTime(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	due, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "timestamps must be RFC3339")
	}
	return &due, nil
}

type createBookingBody struct {
	CustomerID      *string `json:"customer_id"`
	FromLanguageID  string  `json:"from_language_id" validate:"required"`
	ToLanguageID    *string `json:"to_language_id"`
	Due             *string `json:"due"`
	DurationMins    int     `json:"duration_mins" validate:"required,min=1"`
	Immediate       bool    `json:"immediate"`
	PhoneBooking    bool    `json:"phone_booking"`
	PhysicalBooking bool    `json:"physical_booking"`
	Town            *string `json:"town"`
	Gender          *string `json:"gender"`
	Certified       *string `json:"certified"`
	Reference       *string `json:"reference"`
}

// CreateBooking accepts a customer booking request. Admins may book on
// behalf of a customer by supplying customer_id.
func CreateBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createBookingBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fromLanguage, err := uuid.Parse(body.FromLanguageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from language"))
			return
		}
		toLanguage, err := parseOptionalUUID(body.ToLanguageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := bookings.CreateBookingInput{
			CustomerID:      actor,
			FromLanguageID:  fromLanguage,
			ToLanguageID:    toLanguage,
			DurationMins:    body.DurationMins,
			Immediate:       body.Immediate,
			PhoneBooking:    body.PhoneBooking,
			PhysicalBooking: body.PhysicalBooking,
			Town:            body.Town,
			Reference:       body.Reference,
		}

		isAdmin := middleware.UserTypeFromContext(r.Context()) == string(enums.UserTypeAdmin)
		if isAdmin {
			customerID, err := parseOptionalUUID(body.CustomerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if customerID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required for admin bookings"))
				return
			}
			input.CustomerID = *customerID
			input.CreatedByAdmin = true
		}

		if !body.Immediate {
			due, err := parseOptionalTime(body.Due)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if due == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "due is required for scheduled bookings"))
				return
			}
			input.Due = *due
		}

		if body.Gender != nil {
			gender, err := enums.ParseGender(*body.Gender)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gender"))
				return
			}
			input.Gender = &gender
		}
		if body.Certified != nil {
			certified, err := enums.ParseCertified(*body.Certified)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid certification requirement"))
				return
			}
			input.Certified = &certified
		}

		job, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

// ListBookings returns the caller's dashboard: active bookings, plus the
// open pool for translators.
func ListBookings(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobs, err := svc.UserJobs(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, jobs)
	}
}

// BookingHistory returns the caller's finished bookings, paginated.
func BookingHistory(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.UserJobsHistory(r.Context(), actor, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PotentialBookings lists the open bookings the calling translator
// qualifies for.
func PotentialBookings(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.PotentialJobs(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// BookingDetail returns a single booking. Customers see their own bookings,
// translators the ones they hold, admins everything.
func BookingDetail(repo bookings.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := repo.FindJob(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "booking not found"))
			return
		}

		userType := middleware.UserTypeFromContext(r.Context())
		allowed := userType == string(enums.UserTypeAdmin) || userType == string(enums.UserTypeSuperadmin) || job.CustomerID == actor
		if !allowed && userType == string(enums.UserTypeTranslator) {
			if assignment, err := repo.FindActiveAssignment(r.Context(), job.ID); err == nil && assignment != nil {
				allowed = assignment.TranslatorUserID == actor
			}
		}
		if !allowed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another account"))
			return
		}
		responses.WriteSuccess(w, job)
	}
}

type updateBookingBody struct {
	Due           *string `json:"due"`
	DurationMins  *int    `json:"duration_mins"`
	FromLanguageID *string `json:"from_language_id"`
	Reference     *string `json:"reference"`
	AdminComments *string `json:"admin_comments"`
	Status        *string `json:"status"`
	SessionTime   string  `json:"session_time"`
	TranslatorID  *string `json:"translator_id"`
}

// UpdateBooking is the admin edit endpoint: field changes plus optional
// status and translator moves in one request.
func UpdateBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateBookingBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := bookings.UpdateBookingInput{
			JobID:         id,
			DurationMins:  body.DurationMins,
			Reference:     body.Reference,
			AdminComments: body.AdminComments,
			SessionTime:   body.SessionTime,
			ActorUserID:   actor,
		}
		if input.Due, err = parseOptionalTime(body.Due); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.FromLanguageID, err = parseOptionalUUID(body.FromLanguageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.NewTranslatorID, err = parseOptionalUUID(body.TranslatorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Status != nil {
			status, err := enums.ParseJobStatus(*body.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Target = &status
		}

		job, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

type bookingEmailBody struct {
	JobID        string  `json:"job_id" validate:"required"`
	UserEmail    *string `json:"user_email"`
	Address      *string `json:"address"`
	Instructions *string `json:"instructions"`
	Town         *string `json:"town"`
}

// UpdateBookingEmail stores the contact block for a booking and triggers the
// confirmation mail.
func UpdateBookingEmail(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body bookingEmailBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobID, err := uuid.Parse(body.JobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
			return
		}
		job, err := svc.UpdateEmail(r.Context(), bookings.UpdateEmailInput{
			JobID:        jobID,
			UserEmail:    body.UserEmail,
			Address:      body.Address,
			Instructions: body.Instructions,
			Town:         body.Town,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// AcceptBooking assigns the calling translator to the booking.
func AcceptBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		job, err := svc.Accept(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

type acceptByIDBody struct {
	JobID string `json:"job_id" validate:"required"`
}

// AcceptBookingByID is the body-carried variant of AcceptBooking.
func AcceptBookingByID(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body acceptByIDBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobID, err := uuid.Parse(body.JobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
			return
		}
		job, err := svc.Accept(r.Context(), jobID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// CancelBooking withdraws a booking for the calling customer or releases it
// for the calling translator.
func CancelBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), bookings.CancelInput{JobID: id, ActorUserID: actor}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// EndBooking closes a started session and records the interpreted time.
func EndBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.End(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}

// BookingNotCarriedOut marks a session the customer never called into.
func BookingNotCarriedOut(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.NotCarriedOut(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "not_carried_out_customer"})
	}
}

// ReopenBooking puts a finished booking back on the market.
func ReopenBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reopenedID, err := svc.Reopen(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"job_id": reopenedID.String()})
	}
}

type distanceBody struct {
	DistanceKM      decimal.Decimal `json:"distance_km"`
	TravelTime      *string         `json:"travel_time"`
	SessionComments *string         `json:"session_comments"`
	FlaggedByAdmin  bool            `json:"flagged_by_admin"`
	AdminComment    *string         `json:"admin_comment"`
	ManuallyHandled bool            `json:"manually_handled"`
	FollowedUp      bool            `json:"followed_up"`
}

// RecordBookingDistance stores the post-session travel report and the admin
// review flags.
func RecordBookingDistance(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body distanceBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		err = svc.RecordDistance(r.Context(), bookings.DistanceInput{
			JobID:           id,
			DistanceKM:      body.DistanceKM,
			TravelTime:      body.TravelTime,
			SessionComments: body.SessionComments,
			FlaggedByAdmin:  body.FlaggedByAdmin,
			AdminComment:    body.AdminComment,
			ManuallyHandled: body.ManuallyHandled,
			FollowedUp:      body.FollowedUp,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recorded"})
	}
}

type changeStatusBody struct {
	Status        string  `json:"status" validate:"required"`
	AdminComments string  `json:"admin_comments"`
	SessionTime   string  `json:"session_time"`
	TranslatorID  *string `json:"translator_id"`
}

// ChangeBookingStatus is the admin status mutation endpoint.
func ChangeBookingStatus(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body changeStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseJobStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		translatorID, err := parseOptionalUUID(body.TranslatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ChangeStatus(r.Context(), bookings.ChangeStatusInput{
			JobID:         id,
			Target:        status,
			AdminComments: body.AdminComments,
			SessionTime:   body.SessionTime,
			TranslatorID:  translatorID,
			ActorUserID:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type reassignBody struct {
	TranslatorID  string `json:"translator_id" validate:"required"`
	AdminComments string `json:"admin_comments"`
}

// ReassignBooking moves the booking to another translator.
func ReassignBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reassignBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		translatorID, err := uuid.Parse(body.TranslatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid translator id"))
			return
		}
		err = svc.Reassign(r.Context(), bookings.ReassignInput{
			JobID:           id,
			NewTranslatorID: &translatorID,
			ActorUserID:     actor,
			AdminComments:   body.AdminComments,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reassigned"})
	}
}

// ResendBookingPush re-broadcasts the suitable-job push for a pending booking.
func ResendBookingPush(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ResendNotifications(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

// ResendBookingSMS re-broadcasts the suitable-job SMS for a pending booking.
func ResendBookingSMS(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ResendSMSNotifications(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

// IgnoreBookingExpiring removes the booking from the expiring review list.
func IgnoreBookingExpiring(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.IgnoreExpiring(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ignored"})
	}
}

// IgnoreBookingExpired removes the booking from the expired review list.
func IgnoreBookingExpired(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.IgnoreExpired(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ignored"})
	}
}
