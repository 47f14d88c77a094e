package notifier

import (
	"context"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/push"
)

type pushSender interface {
	Send(ctx context.Context, req push.Request) error
}

type smsSender interface {
	Send(ctx context.Context, to, message string) error
}

type languageResolver interface {
	LanguageName(ctx context.Context, id uuid.UUID) (string, error)
}
