package messaging

import (
	"context"
	"log/slog"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/whatsapp"
)

// eventSource is implemented by whatsapp.Client. Senders without it, such as
// test doubles, only send.
type eventSource interface {
	AddEventHandler(h func(evt any)) uint32
}

// Compile-time check that WhatsAppService implements Service.
var _ Service = (*WhatsAppService)(nil)

// WhatsAppService implements Service over whatsmeow.
type WhatsAppService struct {
	eventChannels
	client whatsapp.Sender
}

// NewWhatsAppService creates a WhatsAppService sending through client.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	return &WhatsAppService{eventChannels: newEventChannels(), client: client}
}

func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalPhone(recipient)
}

// Start subscribes to whatsmeow events when the client supports them.
func (s *WhatsAppService) Start(_ context.Context) error {
	src, ok := s.client.(eventSource)
	if !ok {
		slog.Debug("WhatsAppService.Start: client has no event source, inbound disabled")
		return nil
	}
	src.AddEventHandler(s.handleEvent)
	slog.Info("WhatsAppService.Start: listening for WhatsApp events")
	return nil
}

func (s *WhatsAppService) Stop() error {
	s.stop()
	slog.Info("WhatsAppService.Stop: channels closed")
	return nil
}

func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	to, err := canonicalPhone(to)
	if err != nil {
		return err
	}
	if err := s.client.SendMessage(ctx, to, body); err != nil {
		slog.Error("WhatsAppService.SendMessage: send failed", "error", err, "to", to)
		return err
	}
	s.emitReceipt(models.Receipt{To: to, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// SendMedia sends the caption followed by the image link.
func (s *WhatsAppService) SendMedia(ctx context.Context, to string, mediaURL string, caption string) error {
	return s.SendMessage(ctx, to, mediaFallbackText(mediaURL, caption))
}

func (s *WhatsAppService) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		s.handleMessage(v)
	case *events.Receipt:
		s.handleReceipt(v)
	}
}

func (s *WhatsAppService) handleMessage(evt *events.Message) {
	if evt.Message == nil || evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}
	var text string
	switch {
	case evt.Message.GetConversation() != "":
		text = evt.Message.GetConversation()
	case evt.Message.GetExtendedTextMessage().GetText() != "":
		text = evt.Message.GetExtendedTextMessage().GetText()
	case evt.Message.GetImageMessage().GetCaption() != "":
		text = evt.Message.GetImageMessage().GetCaption()
	default:
		slog.Debug("WhatsAppService.handleMessage: ignoring message without text", "from", evt.Info.Sender.User)
		return
	}
	s.emitInbound(models.InboundMessage{
		ID:   evt.Info.ID,
		From: evt.Info.Sender.User,
		Body: text,
		Time: evt.Info.Timestamp.Unix(),
	})
}

func (s *WhatsAppService) handleReceipt(evt *events.Receipt) {
	var status models.MessageStatus
	switch evt.Type {
	case events.ReceiptTypeDelivered:
		status = models.MessageStatusDelivered
	case events.ReceiptTypeRead:
		status = models.MessageStatusRead
	default:
		return
	}
	s.emitReceipt(models.Receipt{To: evt.Chat.User, Status: status, Time: evt.Timestamp.Unix()})
}
