package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nordtolk/booking-backend/pkg/config"
	pkgerrors "github.com/nordtolk/booking-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// Audience selects which mobile app a push notification targets.
type Audience string

const (
	AudienceCustomer   Audience = "customer"
	AudienceTranslator Audience = "translator"
)

var errEndpointRequired = errors.New("push endpoint is required")

// Tag is a single device-tag filter in the gateway's tag query language.
type Tag struct {
	Key      string `json:"key"`
	Relation string `json:"relation"`
	Value    string `json:"value"`
}

// Notification is the wire payload posted to the push gateway.
type Notification struct {
	AppID          string            `json:"app_id"`
	Tags           []map[string]any  `json:"tags"`
	Data           map[string]any    `json:"data"`
	Title          map[string]string `json:"title"`
	Contents       map[string]string `json:"contents"`
	IOSBadgeType   string            `json:"ios_badgeType"`
	IOSBadgeCount  int               `json:"ios_badgeCount"`
	AndroidSound   string            `json:"android_sound"`
	IOSSound       string            `json:"ios_sound"`
	SendAfter      string            `json:"send_after,omitempty"`
}

// Request describes a push before it is shaped into the gateway payload.
type Request struct {
	Audience  Audience
	Emails    []string
	Title     string
	Message   string
	Data      map[string]any
	Sound     string
	SendAfter *time.Time
}

// Client posts notifications to a OneSignal-compatible gateway.
type Client struct {
	httpClient *http.Client
	endpoint   string
	cfg        config.PushConfig
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the push gateway client.
func NewClient(cfg config.PushConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errEndpointRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Send posts the notification for every tagged device matching the request.
// Recipient emails are joined with OR relations so a single call fans out to
// all of them.
func (c *Client) Send(ctx context.Context, req Request) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "push client not configured")
	}
	if len(req.Emails) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient email is required")
	}
	appID, apiKey, err := c.credentials(req.Audience)
	if err != nil {
		return err
	}

	payload := Notification{
		AppID:         appID,
		Tags:          buildEmailTags(req.Emails),
		Data:          req.Data,
		Title:         map[string]string{"en": req.Title},
		Contents:      map[string]string{"en": req.Message},
		IOSBadgeType:  "Increase",
		IOSBadgeCount: 1,
		AndroidSound:  req.Sound,
		IOSSound:      req.Sound + ".mp3",
	}
	if req.SendAfter != nil {
		payload.SendAfter = req.SendAfter.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal push payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build push request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute push request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"push request failed",
		)
	}
	return nil
}

func (c *Client) credentials(audience Audience) (appID, apiKey string, err error) {
	switch audience {
	case AudienceCustomer:
		appID, apiKey = c.cfg.CustomerAppID, c.cfg.CustomerAPIKey
	case AudienceTranslator:
		appID, apiKey = c.cfg.TranslatorAppID, c.cfg.TranslatorAPIKey
	default:
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown push audience %q", audience))
	}
	if appID == "" || apiKey == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("push credentials missing for %s app", audience))
	}
	return appID, apiKey, nil
}

// buildEmailTags joins email tag filters with OR relations, matching the
// gateway's tag query language.
func buildEmailTags(emails []string) []map[string]any {
	tags := make([]map[string]any, 0, len(emails)*2-1)
	for i, email := range emails {
		if i > 0 {
			tags = append(tags, map[string]any{"operator": "OR"})
		}
		tags = append(tags, map[string]any{
			"key":      "email",
			"relation": "=",
			"value":    email,
		})
	}
	return tags
}
