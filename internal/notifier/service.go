package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/pkg/businesshours"
	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/booking-backend/pkg/errors"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/mail"
	"github.com/nordtolk/booking-backend/pkg/push"
)

const (
	soundEmergency = "emergency_booking"
	soundNormal    = "normal_booking"
)

// Service fans booking events out to push, SMS and email channels.
type Service struct {
	push      pushSender
	sms       smsSender
	mail      mail.Sender
	clock     *businesshours.Clock
	languages languageResolver
	logg      *logger.Logger
	now       func() time.Time
}

// Params collects the notifier dependencies. Mail may be nil when SMTP is
// not configured; email sends are then skipped with a log line.
type Params struct {
	Push      pushSender
	SMS       smsSender
	Mail      mail.Sender
	Clock     *businesshours.Clock
	Languages languageResolver
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService builds the notification dispatcher.
func NewService(params Params) (*Service, error) {
	if params.Push == nil {
		return nil, fmt.Errorf("push sender required")
	}
	if params.SMS == nil {
		return nil, fmt.Errorf("sms sender required")
	}
	if params.Clock == nil {
		return nil, fmt.Errorf("business hours clock required")
	}
	if params.Languages == nil {
		return nil, fmt.Errorf("language resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		push:      params.Push,
		sms:       params.SMS,
		mail:      params.Mail,
		clock:     params.Clock,
		languages: params.Languages,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// SuitableJobPush notifies eligible translators that a booking is available.
// Translators who suppress push entirely are skipped, emergency refusers are
// skipped for immediate bookings, and nighttime recipients are deferred to
// the next delivery window.
func (s *Service) SuitableJobPush(ctx context.Context, job *models.Job, translators []models.User) error {
	immediate, deferred := s.splitRecipients(job, translators)
	if len(immediate) == 0 && len(deferred) == 0 {
		return nil
	}

	language := s.languageName(ctx, job)
	title := "Ny bokning"
	message := fmt.Sprintf("Ny bokning för %stolk %dmin %s", language, job.DurationMins, job.Due.Format("2006-01-02 15:04"))
	sound := soundNormal
	if job.Immediate {
		title = "Ny akutbokning"
		message = fmt.Sprintf("Ny akutbokning för %stolk %dmin", language, job.DurationMins)
		sound = soundEmergency
	}
	data := map[string]any{
		"notification_type": string(enums.IntentSuitableJob),
		"job_id":            job.ID.String(),
		"immediate":         job.Immediate,
	}

	var errs error
	if len(immediate) > 0 {
		errs = multierr.Append(errs, s.push.Send(ctx, push.Request{
			Audience: push.AudienceTranslator,
			Emails:   immediate,
			Title:    title,
			Message:  message,
			Data:     data,
			Sound:    sound,
		}))
	}
	if len(deferred) > 0 {
		after := s.clock.NextBusinessTime(s.now())
		errs = multierr.Append(errs, s.push.Send(ctx, push.Request{
			Audience:  push.AudienceTranslator,
			Emails:    deferred,
			Title:     title,
			Message:   message,
			Data:      data,
			Sound:     sound,
			SendAfter: &after,
		}))
	}
	return errs
}

func (s *Service) splitRecipients(job *models.Job, translators []models.User) (immediate, deferred []string) {
	night := s.clock.IsNightTime(s.now())
	for _, translator := range translators {
		if translator.SuppressAllPush {
			continue
		}
		if job.Immediate && translator.RejectEmergency {
			continue
		}
		if strings.TrimSpace(translator.Email) == "" {
			continue
		}
		if night && translator.DelayNighttimePush {
			deferred = append(deferred, translator.Email)
			continue
		}
		immediate = append(immediate, translator.Email)
	}
	return immediate, deferred
}

// SuitableJobSMS texts eligible translators about a booking. Physical and
// phone bookings use different templates; translators without a phone number
// on file are skipped.
func (s *Service) SuitableJobSMS(ctx context.Context, job *models.Job, translators []models.User) error {
	language := s.languageName(ctx, job)
	date := job.Due.Format("2006-01-02")
	clock := job.Due.Format("15:04")
	town := ""
	if job.Town != nil {
		town = *job.Town
	}

	var message string
	if job.PhysicalBooking && !job.PhoneBooking {
		message = fmt.Sprintf(
			"Du har fått en ny tolkbokning på plats i %s den %s kl %s, %d min. Gå till appen för att acceptera uppdraget. Detta är ett automatiskt utskick, svara inte på detta sms.",
			town, date, clock, job.DurationMins,
		)
	} else {
		message = fmt.Sprintf(
			"Du har fått en ny telefontolkbokning (%s) den %s kl %s, %d min. Gå till appen för att acceptera uppdraget. Detta är ett automatiskt utskick, svara inte på detta sms.",
			language, date, clock, job.DurationMins,
		)
	}

	var errs error
	for _, translator := range translators {
		if translator.Phone == nil || strings.TrimSpace(*translator.Phone) == "" {
			continue
		}
		if err := s.sms.Send(ctx, *translator.Phone, message); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sms to %s: %w", translator.ID, err))
		}
	}
	return errs
}

// JobAccepted tells the customer their booking has a translator and confirms
// the assignment to the translator.
func (s *Service) JobAccepted(ctx context.Context, job *models.Job, customer, translator *models.User) error {
	due := job.Due.Format("2006-01-02 15:04")
	var errs error

	errs = multierr.Append(errs, s.push.Send(ctx, push.Request{
		Audience: push.AudienceCustomer,
		Emails:   []string{customer.Email},
		Title:    "Tolk tillsatt",
		Message:  fmt.Sprintf("Din bokning %s har fått en tolk.", due),
		Data: map[string]any{
			"notification_type": string(enums.IntentJobAccepted),
			"job_id":            job.ID.String(),
		},
		Sound: soundNormal,
	}))

	errs = multierr.Append(errs, s.sendMail(mail.Message{
		To:      customer.Email,
		ToName:  customer.Name,
		Subject: fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %s)", job.ID),
		Body: fmt.Sprintf(
			"Hej %s,\n\nEr bokning den %s har tillsatts med tolken %s.\n\nMed vänliga hälsningar,\nNordTolk",
			customer.Name, due, translator.Name,
		),
	}))

	errs = multierr.Append(errs, s.sendMail(mail.Message{
		To:      translator.Email,
		ToName:  translator.Name,
		Subject: fmt.Sprintf("Bekräftelse - uppdrag accepterat (bokning # %s)", job.ID),
		Body: fmt.Sprintf(
			"Hej %s,\n\nDu har accepterat uppdraget den %s. Detaljer finns i appen.\n\nMed vänliga hälsningar,\nNordTolk",
			translator.Name, due,
		),
	}))
	return errs
}

// JobCancelled notifies the assigned translator that the customer withdrew.
func (s *Service) JobCancelled(ctx context.Context, job *models.Job, translator *models.User) error {
	return s.push.Send(ctx, push.Request{
		Audience: push.AudienceTranslator,
		Emails:   []string{translator.Email},
		Title:    "Bokning avbokad",
		Message:  fmt.Sprintf("Bokningen den %s har avbokats av kunden.", job.Due.Format("2006-01-02 15:04")),
		Data: map[string]any{
			"notification_type": string(enums.IntentJobCancelled),
			"job_id":            job.ID.String(),
		},
		Sound: soundNormal,
	})
}

// SessionEnded mails the invoice summary to the customer and the payroll
// summary to the translator once a session completes.
func (s *Service) SessionEnded(ctx context.Context, job *models.Job, customer, translator *models.User, sessionTime string) error {
	spent, err := bookings.ParseSessionTime(sessionTime)
	if err != nil {
		return err
	}
	duration := bookings.FormatHoursMins(spent)
	date := job.Due.Format("2006-01-02")

	var errs error
	errs = multierr.Append(errs, s.sendMail(mail.Message{
		To:      customer.Email,
		ToName:  customer.Name,
		Subject: fmt.Sprintf("Information om avslutad tolkning för bokningsnummer # %s", job.ID),
		Body: fmt.Sprintf(
			"Hej %s,\n\nTolkningen den %s är nu avslutad. Total tolktid: %s. Denna tid ligger till grund för faktureringen.\n\nMed vänliga hälsningar,\nNordTolk",
			customer.Name, date, duration,
		),
	}))
	errs = multierr.Append(errs, s.sendMail(mail.Message{
		To:      translator.Email,
		ToName:  translator.Name,
		Subject: fmt.Sprintf("Information om avslutad tolkning för bokningsnummer # %s", job.ID),
		Body: fmt.Sprintf(
			"Hej %s,\n\nTolkningen den %s är nu avslutad. Total tolktid: %s. Denna tid ligger till grund för lönen.\n\nMed vänliga hälsningar,\nNordTolk",
			translator.Name, date, duration,
		),
	}))
	return errs
}

// JobExpired tells the customer nobody accepted their booking in time.
func (s *Service) JobExpired(ctx context.Context, job *models.Job, customer *models.User) error {
	return s.push.Send(ctx, push.Request{
		Audience: push.AudienceCustomer,
		Emails:   []string{customer.Email},
		Title:    "Bokning ej tillsatt",
		Message:  fmt.Sprintf("Ingen tolk accepterade er bokning den %s. Vänligen boka om.", job.Due.Format("2006-01-02 15:04")),
		Data: map[string]any{
			"notification_type": string(enums.IntentJobExpired),
			"job_id":            job.ID.String(),
		},
		Sound: soundNormal,
	})
}

// SessionReminder pings the assigned translator shortly before the session.
func (s *Service) SessionReminder(ctx context.Context, job *models.Job, translator *models.User) error {
	location := "per telefon"
	if job.PhysicalBooking && !job.PhoneBooking && job.Town != nil {
		location = "på plats i " + *job.Town
	}
	return s.push.Send(ctx, push.Request{
		Audience: push.AudienceTranslator,
		Emails:   []string{translator.Email},
		Title:    "Påminnelse",
		Message: fmt.Sprintf(
			"Påminnelse: din tolkning %s börjar kl %s (%d min).",
			location, job.Due.Format("15:04"), job.DurationMins,
		),
		Data: map[string]any{
			"notification_type": string(enums.IntentSessionStartRemind),
			"job_id":            job.ID.String(),
		},
		Sound: soundNormal,
	})
}

func (s *Service) sendMail(msg mail.Message) error {
	if s.mail == nil {
		s.logg.Warn(context.Background(), "mail not configured, skipping "+msg.Subject)
		return nil
	}
	return s.mail.Send(msg)
}

func (s *Service) languageName(ctx context.Context, job *models.Job) string {
	name, err := s.languages.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		s.logg.Error(ctx, "resolving booking language failed", err)
		return ""
	}
	if name == "" {
		return ""
	}
	return name + " "
}

// JobUpdated mails the customer and the assigned translator when an admin
// edits a booking. Change descriptors name the edited fields.
func (s *Service) JobUpdated(ctx context.Context, job *models.Job, customer, translator *models.User, changes []string) error {
	if customer == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}

	due := job.Due.Format("2006-01-02 15:04")
	summary := changeSummary(ctx, s, job, changes)
	var errs error

	errs = multierr.Append(errs, s.sendMail(mail.Message{
		To:      mailRecipient(job, customer),
		ToName:  customer.Name,
		Subject: fmt.Sprintf("Meddelande om ändring av bokning # %s", job.ID),
		Body: fmt.Sprintf(
			"Hej %s,\n\nEr bokning den %s har ändrats: %s.\n\nMed vänliga hälsningar,\nNordTolk",
			customer.Name, due, summary,
		),
	}))

	if translator != nil {
		errs = multierr.Append(errs, s.sendMail(mail.Message{
			To:      translator.Email,
			ToName:  translator.Name,
			Subject: fmt.Sprintf("Meddelande om ändring av uppdrag # %s", job.ID),
			Body: fmt.Sprintf(
				"Hej %s,\n\nDitt uppdrag den %s har ändrats: %s. Kontrollera detaljerna i appen.\n\nMed vänliga hälsningar,\nNordTolk",
				translator.Name, due, summary,
			),
		}))
	}
	return errs
}

// JobCreatedMail sends the booking confirmation once the customer has
// submitted the contact block.
func (s *Service) JobCreatedMail(ctx context.Context, job *models.Job, customer *models.User) error {
	if customer == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}

	due := job.Due.Format("2006-01-02 15:04")
	location := "per telefon"
	if job.PhysicalBooking && job.Town != nil {
		location = "på plats i " + *job.Town
	}
	return s.sendMail(mail.Message{
		To:      mailRecipient(job, customer),
		ToName:  customer.Name,
		Subject: fmt.Sprintf("Bekräftelse på mottagen bokning # %s", job.ID),
		Body: fmt.Sprintf(
			"Hej %s,\n\nVi har tagit emot er bokning av %stolk den %s, %d min, %s.\n\nMed vänliga hälsningar,\nNordTolk",
			customer.Name, s.languageName(ctx, job), due, job.DurationMins, location,
		),
	})
}

// mailRecipient prefers the contact email attached to the booking over the
// account address.
func mailRecipient(job *models.Job, customer *models.User) string {
	if job.UserEmail != nil && *job.UserEmail != "" {
		return *job.UserEmail
	}
	return customer.Email
}

func changeSummary(ctx context.Context, s *Service, job *models.Job, changes []string) string {
	parts := make([]string, 0, len(changes))
	for _, change := range changes {
		switch change {
		case "date":
			parts = append(parts, "nytt datum "+job.Due.Format("2006-01-02 15:04"))
		case "duration":
			parts = append(parts, fmt.Sprintf("ny längd %d min", job.DurationMins))
		case "language":
			parts = append(parts, "nytt språk "+s.languageName(ctx, job))
		default:
			parts = append(parts, change)
		}
	}
	if len(parts) == 0 {
		return "uppgifterna har uppdaterats"
	}
	return strings.Join(parts, ", ")
}
