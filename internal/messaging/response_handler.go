package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/session"
	"github.com/BTreeMap/DealerPipe/internal/store"
)

const (
	// TransportErrorMessage is sent when a turn fails outside the flow.
	TransportErrorMessage = "⚠️ We encountered an issue processing your message. Please try again."
	// DefaultMaxConcurrentTurns bounds how many conversations are served at once.
	DefaultMaxConcurrentTurns = 32
)

// Router answers one message for a session. flow.Router implements it.
type Router interface {
	Route(ctx context.Context, sess *models.Session, text string) *models.Reply
}

// Metrics receives transport-level events. metrics.Recorder implements it.
type Metrics interface {
	Inbound(provider string)
	Duplicate()
	Outbound(kind string, err error)
	Turn(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) Inbound(string)         {}
func (nopMetrics) Duplicate()             {}
func (nopMetrics) Outbound(string, error) {}
func (nopMetrics) Turn(time.Duration)     {}

// HandlerOpts configures a ConversationHandler.
type HandlerOpts struct {
	Locker        session.Locker
	Dedup         store.DedupRepo
	Metrics       Metrics
	Provider      string
	MaxConcurrent int
}

// HandlerOption configures a ConversationHandler.
type HandlerOption func(*HandlerOpts)

// WithLocker sets the per-conversation locker. The default is in-process.
func WithLocker(l session.Locker) HandlerOption {
	return func(o *HandlerOpts) { o.Locker = l }
}

// WithDedup skips inbound messages whose transport id was already seen.
func WithDedup(d store.DedupRepo) HandlerOption {
	return func(o *HandlerOpts) { o.Dedup = d }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) HandlerOption {
	return func(o *HandlerOpts) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// WithProvider names the transport in metrics and logs.
func WithProvider(name string) HandlerOption {
	return func(o *HandlerOpts) { o.Provider = name }
}

// WithMaxConcurrent bounds concurrent turns across conversations.
func WithMaxConcurrent(n int) HandlerOption {
	return func(o *HandlerOpts) {
		if n > 0 {
			o.MaxConcurrent = n
		}
	}
}

// ConversationHandler runs inbound messages through the Router. Turns for
// one conversation are serialised by the locker; turns for different
// conversations run concurrently up to MaxConcurrent.
type ConversationHandler struct {
	svc      Service
	router   Router
	sessions session.Store
	opts     HandlerOpts
	sem      chan struct{}
	wg       sync.WaitGroup
}

// NewConversationHandler creates a ConversationHandler.
func NewConversationHandler(svc Service, router Router, sessions session.Store, opts ...HandlerOption) *ConversationHandler {
	cfg := HandlerOpts{
		Metrics:       nopMetrics{},
		Provider:      "none",
		MaxConcurrent: DefaultMaxConcurrentTurns,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Locker == nil {
		cfg.Locker = session.NewLocalLocker()
	}
	return &ConversationHandler{
		svc:      svc,
		router:   router,
		sessions: sessions,
		opts:     cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Turn runs one message for conversationID under its lock and saves the
// session. It does not send anything.
func (h *ConversationHandler) Turn(ctx context.Context, conversationID, text string) (*models.Reply, error) {
	unlock, err := h.opts.Locker.Lock(ctx, conversationID, session.DefaultLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrLockAcquire, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("ConversationHandler.Turn: unlock failed", "conversationID", conversationID, "error", err)
		}
	}()

	sess, err := session.LoadOrNew(ctx, h.sessions, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	reply := h.router.Route(ctx, sess, text)
	if err := h.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	slog.Debug("ConversationHandler.Turn: turn complete", "session", sess, "replied", reply != nil)
	return reply, nil
}

// HandleMessage processes one inbound message end to end and sends the
// reply. Redelivered messages are skipped.
func (h *ConversationHandler) HandleMessage(ctx context.Context, msg models.InboundMessage) error {
	start := time.Now()
	h.opts.Metrics.Inbound(h.opts.Provider)

	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid inbound message: %w", err)
	}
	from, err := h.svc.ValidateAndCanonicalizeRecipient(msg.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	if msg.ID != "" && h.opts.Dedup != nil {
		fresh, err := h.opts.Dedup.RecordInbound(msg.ID, from)
		if err != nil {
			slog.Warn("ConversationHandler.HandleMessage: dedup check failed, processing anyway", "error", err, "id", msg.ID)
		} else if !fresh {
			slog.Info("ConversationHandler.HandleMessage: duplicate message skipped", "id", msg.ID, "conversationID", from)
			h.opts.Metrics.Duplicate()
			return nil
		}
	}

	reply, err := h.Turn(ctx, from, msg.Body)
	if err != nil {
		slog.Error("ConversationHandler.HandleMessage: turn failed", "error", err, "conversationID", from)
		if sendErr := h.svc.SendMessage(ctx, from, TransportErrorMessage); sendErr != nil {
			slog.Error("ConversationHandler.HandleMessage: failed to send error message", "error", sendErr, "conversationID", from)
		}
		return err
	}

	sendErr := h.Deliver(ctx, from, reply)
	if msg.ID != "" && h.opts.Dedup != nil {
		if err := h.opts.Dedup.MarkProcessed(msg.ID); err != nil {
			slog.Warn("ConversationHandler.HandleMessage: failed to mark processed", "error", err, "id", msg.ID)
		}
	}
	h.opts.Metrics.Turn(time.Since(start))
	return sendErr
}

// Deliver renders reply and sends every part in order. It stops at the
// first failure.
func (h *ConversationHandler) Deliver(ctx context.Context, to string, reply *models.Reply) error {
	parts, _ := Render(reply)
	for _, p := range parts {
		var err error
		kind := "text"
		if p.MediaURL != "" {
			kind = "media"
			err = h.svc.SendMedia(ctx, to, p.MediaURL, p.Body)
		} else {
			err = h.svc.SendMessage(ctx, to, p.Body)
		}
		h.opts.Metrics.Outbound(kind, err)
		if err != nil {
			return fmt.Errorf("failed to deliver reply to %s: %w", to, err)
		}
	}
	return nil
}

// Run reads inbound messages until the service closes its channel or ctx is
// done, then waits for in-flight turns.
func (h *ConversationHandler) Run(ctx context.Context) error {
	slog.Info("ConversationHandler.Run: processing inbound messages", "provider", h.opts.Provider, "maxConcurrent", cap(h.sem))
	defer h.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-h.svc.Responses():
			if !ok {
				slog.Info("ConversationHandler.Run: inbound channel closed")
				return nil
			}
			select {
			case h.sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			h.wg.Add(1)
			go func() {
				defer h.wg.Done()
				defer func() { <-h.sem }()
				if err := h.HandleMessage(ctx, msg); err != nil {
					slog.Error("ConversationHandler.Run: message failed", "error", err, "id", msg.ID)
				}
			}()
		}
	}
}

// DrainReceipts copies delivery receipts from svc into repo until the
// channel closes or ctx is done.
func DrainReceipts(ctx context.Context, svc Service, repo store.ReceiptRepo) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-svc.Receipts():
			if !ok {
				return nil
			}
			if err := repo.AddReceipt(r); err != nil {
				slog.Error("DrainReceipts: failed to store receipt", "error", err, "to", r.To)
			}
		}
	}
}
