// Package messaging connects the conversation flow to WhatsApp transports.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

const (
	// DefaultChannelBufferSize is the buffer of the receipt and inbound channels.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds how long an event waits for a full channel.
	DefaultChannelTimeout = 1 * time.Second
	minPhoneDigits        = 6
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

var nonDigit = regexp.MustCompile(`\D`)

// Service is a message transport.
type Service interface {
	// ValidateAndCanonicalizeRecipient reduces a phone number or transport
	// address to the digits used as the conversation id.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)
	SendMessage(ctx context.Context, to string, body string) error
	// SendMedia sends an image with a caption. Transports without media
	// support send the caption and the link as text.
	SendMedia(ctx context.Context, to string, mediaURL string, caption string) error
	Start(ctx context.Context) error
	Stop() error
	Receipts() <-chan models.Receipt
	Responses() <-chan models.InboundMessage
}

// canonicalPhone strips everything but digits from recipient.
func canonicalPhone(recipient string) (string, error) {
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	digits := nonDigit.ReplaceAllString(recipient, "")
	if digits == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(digits) < minPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", digits, minPhoneDigits)
	}
	return digits, nil
}

func mediaFallbackText(mediaURL, caption string) string {
	if caption == "" {
		return mediaURL
	}
	return caption + "\n" + mediaURL
}

// eventChannels holds the receipt and inbound channels shared by the
// transports. Emitters hold the read lock while sending so Stop can close
// the channels once they are done.
type eventChannels struct {
	mu        sync.RWMutex
	stopped   bool
	receipts  chan models.Receipt
	responses chan models.InboundMessage
}

func newEventChannels() eventChannels {
	return eventChannels{
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.InboundMessage, DefaultChannelBufferSize),
	}
}

func (e *eventChannels) isStopped() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stopped
}

// stop closes both channels. It is safe to call more than once.
func (e *eventChannels) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	close(e.receipts)
	close(e.responses)
}

func (e *eventChannels) emitReceipt(r models.Receipt) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return
	}
	select {
	case e.receipts <- r:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("eventChannels.emitReceipt: channel full, dropping receipt", "to", r.To, "status", r.Status)
	}
}

func (e *eventChannels) emitInbound(m models.InboundMessage) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		slog.Warn("eventChannels.emitInbound: service stopped, dropping message", "from", m.From)
		return
	}
	select {
	case e.responses <- m:
		slog.Debug("eventChannels.emitInbound: message queued", "from", m.From, "id", m.ID)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("eventChannels.emitInbound: channel full, dropping message", "from", m.From, "timeout", DefaultChannelTimeout)
	}
}

func (e *eventChannels) Receipts() <-chan models.Receipt { return e.receipts }

func (e *eventChannels) Responses() <-chan models.InboundMessage { return e.responses }
