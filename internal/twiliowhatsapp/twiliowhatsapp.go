// Package twiliowhatsapp sends WhatsApp messages through the Twilio REST API
// and validates Twilio webhook signatures.
package twiliowhatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// WhatsAppPrefix marks a Twilio address as a WhatsApp number.
const WhatsAppPrefix = "whatsapp:"

// ErrMissingCredentials is returned when the account SID or auth token is unset.
var ErrMissingCredentials = errors.New("twilio account SID and auth token must be provided")

// Sender sends text and media messages.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
	SendMedia(ctx context.Context, to string, mediaURL string, caption string) error
}

// Opts holds Twilio account settings.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option configures a Client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending number, with or without the whatsapp: prefix.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Compile-time check that Client implements Sender.
var _ Sender = (*Client)(nil)

// Client wraps the Twilio REST client.
type Client struct {
	rest      *twilio.RestClient
	validator twilioclient.RequestValidator
	from      string
}

// Address returns number in the whatsapp:+E164 form Twilio expects.
func Address(number string) string {
	number = strings.TrimPrefix(strings.TrimSpace(number), WhatsAppPrefix)
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return WhatsAppPrefix + number
}

// NewClient creates a Client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Client.NewClient: twilio config",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio from number must be provided")
	}

	return &Client{
		rest: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		validator: twilioclient.NewRequestValidator(cfg.AuthToken),
		from:      Address(cfg.FromNumber),
	}, nil
}

func (c *Client) send(to string, params *twilioApi.CreateMessageParams) error {
	params.SetTo(Address(to))
	params.SetFrom(c.from)
	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Client.send: twilio create message failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	if resp != nil && resp.Sid != nil {
		slog.Debug("Client.send: message queued", "to", to, "sid", *resp.Sid)
	}
	return nil
}

// SendMessage sends a text message.
func (c *Client) SendMessage(_ context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(body)
	return c.send(to, params)
}

// SendMedia sends an image with an optional caption.
func (c *Client) SendMedia(_ context.Context, to string, mediaURL string, caption string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetMediaUrl([]string{mediaURL})
	if caption != "" {
		params.SetBody(caption)
	}
	return c.send(to, params)
}

// ValidateWebhook reports whether signature is the X-Twilio-Signature for a
// request to url with the given form parameters.
func (c *Client) ValidateWebhook(url string, params map[string]string, signature string) bool {
	return c.validator.Validate(url, params, signature)
}
