package mail

import (
	"errors"
	"fmt"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"github.com/nordtolk/booking-backend/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers email messages.
type Sender interface {
	Send(msg Message) error
}

// Mailer sends transactional email over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	cfg    config.MailConfig
}

// New validates the SMTP configuration and builds a Mailer.
func New(cfg config.MailConfig) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("mail port must be positive")
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, errors.New("mail from address is required")
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}, nil
}

// Send dials the SMTP server and delivers the message.
func (m *Mailer) Send(msg Message) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient address is required")
	}

	mime := gomail.NewMessage()
	mime.SetAddressHeader("From", m.cfg.FromAddress, m.cfg.FromName)
	mime.SetAddressHeader("To", msg.To, msg.ToName)
	mime.SetHeader("Subject", msg.Subject)
	if msg.HTML {
		mime.SetBody("text/html", msg.Body)
	} else {
		mime.SetBody("text/plain", msg.Body)
	}

	if err := m.dialer.DialAndSend(mime); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	return nil
}
