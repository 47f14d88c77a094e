package notifier

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/businesshours"
	"github.com/nordtolk/booking-backend/pkg/config"
	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/mail"
	"github.com/nordtolk/booking-backend/pkg/push"
)

type stubPush struct {
	requests []push.Request
	err      error
}

func (s *stubPush) Send(ctx context.Context, req push.Request) error {
	if s.err != nil {
		return s.err
	}
	s.requests = append(s.requests, req)
	return nil
}

type smsCall struct {
	to      string
	message string
}

type stubSMS struct {
	calls []smsCall
}

func (s *stubSMS) Send(ctx context.Context, to, message string) error {
	s.calls = append(s.calls, smsCall{to: to, message: message})
	return nil
}

type stubMail struct {
	messages []mail.Message
}

func (s *stubMail) Send(msg mail.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

type stubLanguages struct {
	name string
}

func (s *stubLanguages) LanguageName(ctx context.Context, id uuid.UUID) (string, error) {
	return s.name, nil
}

type notifierFixture struct {
	push *stubPush
	sms  *stubSMS
	mail *stubMail
	now  time.Time
	svc  *Service
}

func newNotifierFixture(t *testing.T, now time.Time) *notifierFixture {
	t.Helper()
	clock, err := businesshours.New(config.BusinessHoursConfig{
		DayStartHour:   9,
		NightStartHour: 21,
		Timezone:       "UTC",
	})
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	f := &notifierFixture{
		push: &stubPush{},
		sms:  &stubSMS{},
		mail: &stubMail{},
		now:  now,
	}
	svc, err := NewService(Params{
		Push:      f.push,
		SMS:       f.sms,
		Mail:      f.mail,
		Clock:     clock,
		Languages: &stubLanguages{name: "Arabiska"},
		Logger:    logger.New(logger.Options{Output: io.Discard}),
		Now:       func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func translatorUser(email string) models.User {
	return models.User{ID: uuid.New(), Email: email, Name: "Tolk"}
}

func testJob(immediate bool) *models.Job {
	return &models.Job{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		Due:          time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
		DurationMins: 60,
		Immediate:    immediate,
		PhoneBooking: true,
	}
}

func TestSuitableJobPushFilters(t *testing.T) {
	daytime := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f := newNotifierFixture(t, daytime)

	suppressed := translatorUser("suppressed@example.com")
	suppressed.SuppressAllPush = true
	refuser := translatorUser("refuser@example.com")
	refuser.RejectEmergency = true
	normal := translatorUser("normal@example.com")

	err := f.svc.SuitableJobPush(context.Background(), testJob(true), []models.User{suppressed, refuser, normal})
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if len(f.push.requests) != 1 {
		t.Fatalf("expected 1 push batch, got %d", len(f.push.requests))
	}
	req := f.push.requests[0]
	if len(req.Emails) != 1 || req.Emails[0] != "normal@example.com" {
		t.Fatalf("expected only the unfiltered translator, got %v", req.Emails)
	}
	if req.Sound != "emergency_booking" {
		t.Fatalf("immediate bookings use the emergency sound, got %q", req.Sound)
	}
	if req.SendAfter != nil {
		t.Fatal("daytime pushes must not be deferred")
	}
}

func TestSuitableJobPushNighttimeDeferral(t *testing.T) {
	night := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	f := newNotifierFixture(t, night)

	sleeper := translatorUser("sleeper@example.com")
	sleeper.DelayNighttimePush = true
	awake := translatorUser("awake@example.com")

	err := f.svc.SuitableJobPush(context.Background(), testJob(false), []models.User{sleeper, awake})
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if len(f.push.requests) != 2 {
		t.Fatalf("expected immediate and deferred batches, got %d", len(f.push.requests))
	}

	var deferred *push.Request
	for i := range f.push.requests {
		if f.push.requests[i].SendAfter != nil {
			deferred = &f.push.requests[i]
		}
	}
	if deferred == nil {
		t.Fatal("expected a deferred batch")
	}
	if len(deferred.Emails) != 1 || deferred.Emails[0] != "sleeper@example.com" {
		t.Fatalf("unexpected deferred recipients %v", deferred.Emails)
	}
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if !deferred.SendAfter.Equal(want) {
		t.Fatalf("expected deferral to %s, got %s", want, deferred.SendAfter)
	}
	if deferred.Sound != "normal_booking" {
		t.Fatalf("scheduled bookings use the normal sound, got %q", deferred.Sound)
	}
}

func TestSuitableJobSMSTemplates(t *testing.T) {
	f := newNotifierFixture(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	phone := "+46700000001"
	withPhone := translatorUser("a@example.com")
	withPhone.Phone = &phone
	withoutPhone := translatorUser("b@example.com")

	job := testJob(false)
	if err := f.svc.SuitableJobSMS(context.Background(), job, []models.User{withPhone, withoutPhone}); err != nil {
		t.Fatalf("sms failed: %v", err)
	}
	if len(f.sms.calls) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(f.sms.calls))
	}
	if f.sms.calls[0].to != phone {
		t.Fatalf("unexpected recipient %s", f.sms.calls[0].to)
	}
	if want := "telefontolkbokning"; !contains(f.sms.calls[0].message, want) {
		t.Fatalf("expected phone template, got %q", f.sms.calls[0].message)
	}

	town := "Uppsala"
	physical := testJob(false)
	physical.PhoneBooking = false
	physical.PhysicalBooking = true
	physical.Town = &town
	if err := f.svc.SuitableJobSMS(context.Background(), physical, []models.User{withPhone}); err != nil {
		t.Fatalf("sms failed: %v", err)
	}
	last := f.sms.calls[len(f.sms.calls)-1]
	if !contains(last.message, "på plats i Uppsala") {
		t.Fatalf("expected physical template, got %q", last.message)
	}
}

func TestSessionEndedMailsBothParties(t *testing.T) {
	f := newNotifierFixture(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	job := testJob(false)
	customer := &models.User{ID: uuid.New(), Email: "kund@example.com", Name: "Kund"}
	translator := &models.User{ID: uuid.New(), Email: "tolk@example.com", Name: "Tolk"}

	if err := f.svc.SessionEnded(context.Background(), job, customer, translator, "1:30:00"); err != nil {
		t.Fatalf("session ended failed: %v", err)
	}
	if len(f.mail.messages) != 2 {
		t.Fatalf("expected 2 mails, got %d", len(f.mail.messages))
	}
	if !contains(f.mail.messages[0].Body, "1 tim 30 min") {
		t.Fatalf("expected formatted duration, got %q", f.mail.messages[0].Body)
	}
	if !contains(f.mail.messages[0].Body, "faktureringen") {
		t.Fatalf("customer mail must mention invoicing, got %q", f.mail.messages[0].Body)
	}
	if !contains(f.mail.messages[1].Body, "lönen") {
		t.Fatalf("translator mail must mention payroll, got %q", f.mail.messages[1].Body)
	}
}

func TestSessionEndedRejectsBadSessionTime(t *testing.T) {
	f := newNotifierFixture(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	job := testJob(false)
	customer := &models.User{Email: "kund@example.com"}
	translator := &models.User{Email: "tolk@example.com"}

	if err := f.svc.SessionEnded(context.Background(), job, customer, translator, "garbage"); err == nil {
		t.Fatal("expected parse error")
	}
	if len(f.mail.messages) != 0 {
		t.Fatal("no mail should go out for a bad session time")
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func TestJobUpdatedMailsBothParties(t *testing.T) {
	f := newNotifierFixture(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	job := testJob(false)
	customer := &models.User{ID: uuid.New(), Email: "kund@example.se", Name: "Kund"}
	translator := &models.User{ID: uuid.New(), Email: "tolk@example.se", Name: "Tolk"}

	if err := f.svc.JobUpdated(context.Background(), job, customer, translator, []string{"date", "duration"}); err != nil {
		t.Fatalf("job updated failed: %v", err)
	}
	if len(f.mail.messages) != 2 {
		t.Fatalf("expected 2 mails, got %d", len(f.mail.messages))
	}
	if f.mail.messages[0].To != "kund@example.se" {
		t.Fatalf("expected customer mail first, got %s", f.mail.messages[0].To)
	}
	if !contains(f.mail.messages[0].Body, "nytt datum") || !contains(f.mail.messages[0].Body, "ny längd 60 min") {
		t.Fatalf("expected change summary in body: %s", f.mail.messages[0].Body)
	}
}

func TestJobUpdatedPrefersBookingContactEmail(t *testing.T) {
	f := newNotifierFixture(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	job := testJob(false)
	contact := "faktura@example.se"
	job.UserEmail = &contact
	customer := &models.User{ID: uuid.New(), Email: "kund@example.se", Name: "Kund"}

	if err := f.svc.JobUpdated(context.Background(), job, customer, nil, []string{"date"}); err != nil {
		t.Fatalf("job updated failed: %v", err)
	}
	if len(f.mail.messages) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(f.mail.messages))
	}
	if f.mail.messages[0].To != contact {
		t.Fatalf("expected booking contact address, got %s", f.mail.messages[0].To)
	}
}

func TestJobCreatedMailPhysicalLocation(t *testing.T) {
	f := newNotifierFixture(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	job := testJob(false)
	job.PhoneBooking = false
	job.PhysicalBooking = true
	town := "Uppsala"
	job.Town = &town
	customer := &models.User{ID: uuid.New(), Email: "kund@example.se", Name: "Kund"}

	if err := f.svc.JobCreatedMail(context.Background(), job, customer); err != nil {
		t.Fatalf("created mail failed: %v", err)
	}
	if len(f.mail.messages) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(f.mail.messages))
	}
	if !contains(f.mail.messages[0].Body, "på plats i Uppsala") {
		t.Fatalf("expected physical location in body: %s", f.mail.messages[0].Body)
	}
	if !contains(f.mail.messages[0].Body, "Arabiska") {
		t.Fatalf("expected language name in body: %s", f.mail.messages[0].Body)
	}
}
