package messaging

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/twiliowhatsapp"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// WebhookValidator checks the X-Twilio-Signature header of a webhook call.
type WebhookValidator interface {
	ValidateWebhook(url string, params map[string]string, signature string) bool
}

// Compile-time check that TwilioService implements Service.
var _ Service = (*TwilioService)(nil)

// TwilioService implements Service over the Twilio REST API. Inbound
// messages arrive through WebhookHandler.
type TwilioService struct {
	eventChannels
	client    twiliowhatsapp.Sender
	validator WebhookValidator
	publicURL string
}

// TwilioOption configures a TwilioService.
type TwilioOption func(*TwilioService)

// WithWebhookValidation rejects webhook calls whose signature does not match
// publicURL, the address Twilio is configured to call.
func WithWebhookValidation(v WebhookValidator, publicURL string) TwilioOption {
	return func(s *TwilioService) {
		s.validator = v
		s.publicURL = publicURL
	}
}

// NewTwilioService creates a TwilioService sending through client.
func NewTwilioService(client twiliowhatsapp.Sender, opts ...TwilioOption) *TwilioService {
	s := &TwilioService{eventChannels: newEventChannels(), client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateAndCanonicalizeRecipient accepts numbers with or without the
// whatsapp: prefix.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalPhone(strings.TrimPrefix(recipient, twiliowhatsapp.WhatsAppPrefix))
}

// Start is a no-op; inbound traffic is pushed by the webhook.
func (s *TwilioService) Start(context.Context) error { return nil }

func (s *TwilioService) Stop() error {
	s.stop()
	slog.Info("TwilioService.Stop: channels closed")
	return nil
}

func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	to, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	if err := s.client.SendMessage(ctx, to, body); err != nil {
		return err
	}
	s.emitReceipt(models.Receipt{To: to, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

func (s *TwilioService) SendMedia(ctx context.Context, to string, mediaURL string, caption string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	to, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	if err := s.client.SendMedia(ctx, to, mediaURL, caption); err != nil {
		return err
	}
	s.emitReceipt(models.Receipt{To: to, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// WebhookHandler accepts Twilio's inbound message webhook and queues the
// message on Responses.
func (s *TwilioService) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("TwilioService.WebhookHandler: bad form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if s.validator != nil {
		params := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		if !s.validator.ValidateWebhook(s.publicURL, params, r.Header.Get("X-Twilio-Signature")) {
			slog.Warn("TwilioService.WebhookHandler: signature mismatch")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	from, err := s.ValidateAndCanonicalizeRecipient(r.PostForm.Get("From"))
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	if err != nil || body == "" {
		slog.Warn("TwilioService.WebhookHandler: missing sender or body", "error", err, "bodyLength", len(body))
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	s.emitInbound(models.InboundMessage{
		ID:   r.PostForm.Get("MessageSid"),
		From: from,
		Body: body,
		Time: time.Now().Unix(),
	})

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}
