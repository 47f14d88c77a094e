package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/outbox"
	"github.com/nordtolk/booking-backend/pkg/outbox/idempotency"
	"github.com/nordtolk/booking-backend/pkg/outbox/payloads"
	"github.com/nordtolk/booking-backend/pkg/outbox/registry"
)

const bookingFeedConsumer = "booking-feed"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches booking domain events and turns them into in-app feed rows.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a booking feed consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("booking subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     feedDecoders(),
		logg:         logg,
	}, nil
}

// feedDecoders registers the payload versions the feed understands.
func feedDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventJobCreated, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.JobCreatedEvent
		return payload, json.Unmarshal(data, &payload)
	})
	decoders.Register(enums.EventJobCanceled, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.JobCanceledEvent
		return payload, json.Unmarshal(data, &payload)
	})
	decoders.Register(enums.EventJobReopened, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.JobReopenedEvent
		return payload, json.Unmarshal(data, &payload)
	})
	decoders.Register(enums.EventSessionEnded, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.SessionEndedEvent
		return payload, json.Unmarshal(data, &payload)
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, bookingFeedConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Version, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "feed handling failed", err)
		_ = c.idempotency.Delete(ctx, bookingFeedConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, version int, data json.RawMessage, logCtx context.Context) error {
	decoded, err := c.decoders.Decode(eventType, version, data)
	if err != nil {
		if errors.Is(err, registry.ErrDecoderNotFound) {
			c.logg.Info(logCtx, "event type not handled")
			return nil
		}
		return fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	switch payload := decoded.(type) {
	case payloads.JobCreatedEvent:
		return c.jobCreated(ctx, payload, logCtx)
	case payloads.JobCanceledEvent:
		return c.jobCanceled(ctx, payload, logCtx)
	case payloads.JobReopenedEvent:
		return c.jobReopened(ctx, payload, logCtx)
	case payloads.SessionEndedEvent:
		return c.sessionEnded(ctx, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) jobCreated(ctx context.Context, payload payloads.JobCreatedEvent, logCtx context.Context) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	message := fmt.Sprintf("Vi har tagit emot din bokning, tolkning %s.", payload.Due.Format("2006-01-02 15:04"))
	if payload.Immediate {
		message = "Vi har tagit emot din akutbokning och söker tolk."
	}
	notification := &models.Notification{
		UserID:  payload.CustomerID,
		JobID:   uuidPtr(payload.JobID),
		Type:    enums.NotificationTypeBookingCreated,
		Title:   "Bokning mottagen",
		Message: message,
		Link:    bookingLink(payload.JobID),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "customer feed entry created")
	return nil
}

func (c *Consumer) jobCanceled(ctx context.Context, payload payloads.JobCanceledEvent, logCtx context.Context) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	message := "Din bokning har avbokats."
	if payload.CanceledBy != uuid.Nil && payload.CanceledBy != payload.CustomerID {
		message = "Din bokning har avbokats av tolken. Vi söker en ny tolk åt er."
	}
	notification := &models.Notification{
		UserID:  payload.CustomerID,
		JobID:   uuidPtr(payload.JobID),
		Type:    enums.NotificationTypeBookingCanceled,
		Title:   "Bokning avbokad",
		Message: message,
		Link:    bookingLink(payload.JobID),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "customer feed entry created")
	return nil
}

func (c *Consumer) jobReopened(ctx context.Context, payload payloads.JobReopenedEvent, logCtx context.Context) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	notification := &models.Notification{
		UserID:  payload.CustomerID,
		JobID:   uuidPtr(payload.ReopenedJobID),
		Type:    enums.NotificationTypeBookingReopened,
		Title:   "Bokning återöppnad",
		Message: "Din bokning har lagts ut igen och vi söker en ny tolk.",
		Link:    bookingLink(payload.ReopenedJobID),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "customer feed entry created")
	return nil
}

func (c *Consumer) sessionEnded(ctx context.Context, payload payloads.SessionEndedEvent, logCtx context.Context) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	message := fmt.Sprintf("Tolkningen är avslutad. Tolktid %s.", payload.SessionTime)
	customer := &models.Notification{
		UserID:  payload.CustomerID,
		JobID:   uuidPtr(payload.JobID),
		Type:    enums.NotificationTypeSessionCompleted,
		Title:   "Tolkning avslutad",
		Message: message,
		Link:    bookingLink(payload.JobID),
	}
	if err := c.repo.Create(ctx, customer); err != nil {
		return err
	}
	if payload.TranslatorUserID != uuid.Nil {
		translator := &models.Notification{
			UserID:  payload.TranslatorUserID,
			JobID:   uuidPtr(payload.JobID),
			Type:    enums.NotificationTypeSessionCompleted,
			Title:   "Uppdrag avslutat",
			Message: message,
			Link:    bookingLink(payload.JobID),
		}
		if err := c.repo.Create(ctx, translator); err != nil {
			return err
		}
	}
	c.logg.Info(logCtx, "session feed entries created")
	return nil
}

func bookingLink(jobID uuid.UUID) *string {
	link := fmt.Sprintf("/bookings/%s", jobID)
	return &link
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
