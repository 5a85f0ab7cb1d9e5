// Package api wires DealerPipe's components together and serves its HTTP
// surface: the chat turn endpoint, session inspection, receipts, health,
// Prometheus metrics and the Twilio inbound webhook.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/BTreeMap/DealerPipe/internal/comparison"
	"github.com/BTreeMap/DealerPipe/internal/dealer"
	"github.com/BTreeMap/DealerPipe/internal/flow"
	"github.com/BTreeMap/DealerPipe/internal/genai"
	"github.com/BTreeMap/DealerPipe/internal/intent"
	"github.com/BTreeMap/DealerPipe/internal/messaging"
	"github.com/BTreeMap/DealerPipe/internal/metrics"
	"github.com/BTreeMap/DealerPipe/internal/session"
	"github.com/BTreeMap/DealerPipe/internal/store"
	"github.com/BTreeMap/DealerPipe/internal/suggestion"
	"github.com/BTreeMap/DealerPipe/internal/twiliowhatsapp"
	"github.com/BTreeMap/DealerPipe/internal/whatsapp"
)

const (
	// DefaultAddr is the HTTP listen address used when none is configured.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	ProviderWhatsApp = "whatsapp"
	ProviderTwilio   = "twilio"
	ProviderNone     = "none"

	redisLockPrefix = "dealerpipe:lock:"
)

// ErrUnknownProvider is returned by Run for an unsupported MESSAGING_PROVIDER.
var ErrUnknownProvider = errors.New("unknown messaging provider")

// Opts holds configuration for the HTTP server.
type Opts struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Option configures the HTTP server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		if addr != "" {
			o.Addr = addr
		}
	}
}

// WithShutdownTimeout sets how long in-flight requests get on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Opts) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// Config is everything Run needs to assemble the application. Each module
// keeps its own functional options; Config only groups them.
type Config struct {
	Provider         string
	DSN              string
	GenAIOpts        []genai.Option
	WhatsAppOpts     []whatsapp.Option
	TwilioOpts       []twiliowhatsapp.Option
	TwilioWebhookURL string
	RedisURL         string
	SessionTTL       time.Duration
	SessionCacheSize int
	DealerProfile    string
	InventorySeed    string
	MediaBaseURL     string
	ImageAnalysis    bool
	APIOpts          []Option
}

// Server serves the DealerPipe HTTP API.
type Server struct {
	handler  *messaging.ConversationHandler
	sessions session.Store
	receipts store.ReceiptRepo
	metrics  http.Handler
	webhook  http.HandlerFunc
	opts     Opts
}

// ServerOption attaches optional endpoints to a Server.
type ServerOption func(*Server)

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// WithTwilioWebhook serves h on POST /webhook/twilio.
func WithTwilioWebhook(h http.HandlerFunc) ServerOption {
	return func(s *Server) { s.webhook = h }
}

// WithOptions applies HTTP options to the Server.
func WithOptions(opts ...Option) ServerOption {
	return func(s *Server) {
		for _, opt := range opts {
			opt(&s.opts)
		}
	}
}

// NewServer creates a Server around an assembled ConversationHandler.
func NewServer(handler *messaging.ConversationHandler, sessions session.Store, receipts store.ReceiptRepo, opts ...ServerOption) *Server {
	s := &Server{
		handler:  handler,
		sessions: sessions,
		receipts: receipts,
		opts:     Opts{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the chi router for the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/chat", s.chatHandler)
	r.Get("/sessions/{id}", s.getSessionHandler)
	r.Delete("/sessions/{id}", s.deleteSessionHandler)
	r.Get("/receipts", s.receiptsHandler)
	r.Get("/health", s.healthHandler)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.webhook != nil {
		r.Post("/webhook/twilio", s.webhook)
	}
	return r
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Serve: listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	slog.Info("Server.Serve: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}

// Run assembles the application from cfg and supervises the HTTP server,
// the inbound message loop and the receipt drain until SIGINT or SIGTERM.
func Run(ctx context.Context, cfg Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.InventorySeed != "" {
		cars, err := store.LoadSeed(cfg.InventorySeed)
		if err != nil {
			return fmt.Errorf("failed to load inventory seed: %w", err)
		}
		if err := st.UpsertCars(ctx, cars); err != nil {
			return fmt.Errorf("failed to seed inventory: %w", err)
		}
		slog.Info("Run: inventory seeded", "cars", len(cars), "path", cfg.InventorySeed)
	}

	profile := dealer.Default()
	if cfg.DealerProfile != "" {
		if profile, err = dealer.Load(cfg.DealerProfile); err != nil {
			return fmt.Errorf("failed to load dealer profile: %w", err)
		}
	}

	sessions, locker, closeSessions, err := openSessions(cfg, st)
	if err != nil {
		return err
	}
	defer closeSessions()

	recorder := metrics.NewRecorder()
	router, err := buildRouter(cfg, st, profile, recorder)
	if err != nil {
		return err
	}

	svc, serverOpts, closeTransport, err := openTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTransport()

	handlerOpts := []messaging.HandlerOption{
		messaging.WithDedup(st),
		messaging.WithMetrics(recorder),
		messaging.WithProvider(cfg.Provider),
	}
	if locker != nil {
		handlerOpts = append(handlerOpts, messaging.WithLocker(locker))
	}
	handler := messaging.NewConversationHandler(svc, router, sessions, handlerOpts...)

	serverOpts = append(serverOpts, WithMetricsHandler(recorder.Handler()), WithOptions(cfg.APIOpts...))
	server := NewServer(handler, sessions, st, serverOpts...)

	if svc != nil {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start messaging service: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx) })
	if svc != nil {
		g.Go(func() error {
			<-gctx.Done()
			return svc.Stop()
		})
		g.Go(func() error { return handler.Run(gctx) })
		g.Go(func() error { return messaging.DrainReceipts(gctx, svc, st) })
	}

	slog.Info("Run: DealerPipe started", "provider", cfg.Provider, "dealer", profile.Name)
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Run: DealerPipe stopped")
	return nil
}

func openStore(dsn string) (store.Store, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		st, err := store.NewPostgresStore(store.WithPostgresDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return st, nil
	}
	st, err := store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	return st, nil
}

// openSessions picks Redis when configured and the SQL store otherwise, with
// an LRU cache in front of either. The locker is nil for in-process locking.
func openSessions(cfg Config, st store.SessionRepo) (session.Store, session.Locker, func(), error) {
	var (
		backing session.Store
		locker  session.Locker
		closeFn = func() {}
	)
	if cfg.RedisURL != "" {
		var redisOpts []session.RedisOption
		if cfg.SessionTTL > 0 {
			redisOpts = append(redisOpts, session.WithTTL(cfg.SessionTTL))
		}
		rs, err := session.NewRedisStore(cfg.RedisURL, redisOpts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		backing = rs
		locker = session.NewRedisLocker(rs.Client(), redisLockPrefix)
		closeFn = func() {
			if err := rs.Close(); err != nil {
				slog.Warn("Run: failed to close redis", "error", err)
			}
		}
		slog.Info("Run: sessions stored in redis", "ttl", cfg.SessionTTL)
	} else {
		backing = session.NewSQLStore(st)
	}

	if cfg.SessionCacheSize <= 0 {
		return backing, locker, closeFn, nil
	}
	cached, err := session.NewCachedStore(backing, cfg.SessionCacheSize)
	if err != nil {
		closeFn()
		return nil, nil, nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return cached, locker, closeFn, nil
}

func buildRouter(cfg Config, st store.Store, profile dealer.Profile, recorder *metrics.Recorder) (*flow.Router, error) {
	var llm intent.Completer
	client, err := genai.NewClient(cfg.GenAIOpts...)
	switch {
	case errors.Is(err, genai.ErrNoAPIKey):
		slog.Warn("Run: no OpenAI API key, classifier runs on keyword rules only")
	case err != nil:
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	default:
		llm = client
	}

	adapter := intent.NewAdapter(llm, comparison.NewResolver(st), suggestion.NewResolver(st),
		intent.WithImageAnalysis(cfg.ImageAnalysis),
		intent.WithDealerName(profile.Name),
	)
	flowOpts := []flow.Option{
		flow.WithProfile(profile),
		flow.WithMediaBaseURL(cfg.MediaBaseURL),
		flow.WithObserver(recorder),
	}
	orch := flow.NewOrchestrator(flow.NewMachine(st, st, flowOpts...), adapter)
	return flow.NewRouter(orch, flow.NewValuationFlow(st, st, flowOpts...), flowOpts...), nil
}

// openTransport builds the messaging service for cfg.Provider. The service
// is nil for ProviderNone, which leaves only the HTTP chat endpoint.
func openTransport(ctx context.Context, cfg Config) (messaging.Service, []ServerOption, func(), error) {
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil, func() {}, nil
	case ProviderWhatsApp:
		client, err := whatsapp.NewClient(ctx, cfg.WhatsAppOpts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil, client.Close, nil
	case ProviderTwilio:
		client, err := twiliowhatsapp.NewClient(cfg.TwilioOpts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		var twOpts []messaging.TwilioOption
		if cfg.TwilioWebhookURL != "" {
			twOpts = append(twOpts, messaging.WithWebhookValidation(client, cfg.TwilioWebhookURL))
		} else {
			slog.Warn("Run: TWILIO_WEBHOOK_URL not set, webhook signatures are not checked")
		}
		svc := messaging.NewTwilioService(client, twOpts...)
		return svc, []ServerOption{WithTwilioWebhook(svc.WebhookHandler)}, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
