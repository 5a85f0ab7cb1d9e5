// Package whatsapp wraps the whatsmeow client used to talk to customers on
// WhatsApp.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/BTreeMap/DealerPipe/internal/store"
)

const (
	// DefaultSQLitePath is used when no whatsmeow DSN is configured.
	DefaultSQLitePath = "/var/lib/dealerpipe/whatsmeow.db"
	// JIDSuffix is the server part of a personal WhatsApp JID.
	JIDSuffix = types.DefaultUserServer
)

// Sender sends plain-text WhatsApp messages.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts holds the whatsmeow store and login settings.
type Opts struct {
	DBDSN       string // whatsmeow database connection string
	QRPath      string // file the login QR code is written to
	NumericCode bool   // print the pairing code instead of a QR code
}

// Option configures a Client.
type Option func(*Opts)

// WithDBDSN sets the whatsmeow database connection string.
func WithDBDSN(dsn string) Option {
	return func(o *Opts) { o.DBDSN = dsn }
}

// WithQRCodeOutput writes the login QR code to path instead of stdout.
func WithQRCodeOutput(path string) Option {
	return func(o *Opts) { o.QRPath = path }
}

// WithNumericCode prints the raw pairing code rather than rendering a QR.
func WithNumericCode() Option {
	return func(o *Opts) { o.NumericCode = true }
}

// Compile-time check that Client implements Sender.
var _ Sender = (*Client)(nil)

// Client is a connected whatsmeow client.
type Client struct {
	wa *whatsmeow.Client
}

// storeDSN picks the sql driver for dsn and, for SQLite, turns on foreign
// keys, which whatsmeow requires.
func storeDSN(dsn string) (driver, out string) {
	if dsn == "" {
		dsn = DefaultSQLitePath
	}
	if store.DetectDSNType(dsn) == "postgres" {
		return "postgres", dsn
	}
	if strings.Contains(dsn, "foreign_keys") {
		return "sqlite3", dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return "sqlite3", dsn + sep + "_foreign_keys=on"
}

// NewClient opens the whatsmeow device store and connects. On first run it
// walks through the QR login.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	driver, dsn := storeDSN(cfg.DBDSN)
	slog.Debug("Client.NewClient: opening device store", "driver", driver, "QRPath_set", cfg.QRPath != "", "numericCode", cfg.NumericCode)

	container, err := sqlstore.New(ctx, driver, dsn, waLog.Stdout("Database", "INFO", true))
	if err != nil {
		slog.Error("Client.NewClient: failed to open device store", "error", err)
		return nil, fmt.Errorf("failed to initialize WhatsApp database store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		slog.Error("Client.NewClient: failed to load device", "error", err)
		return nil, fmt.Errorf("failed to get device from WhatsApp store: %w", err)
	}

	wa := whatsmeow.NewClient(device, waLog.Stdout("Client", "INFO", true))
	if wa.Store.ID != nil {
		if err := wa.Connect(); err != nil {
			slog.Error("Client.NewClient: connect failed", "error", err)
			return nil, fmt.Errorf("failed to connect to WhatsApp server: %w", err)
		}
		slog.Info("Client.NewClient: connected with stored session")
		return &Client{wa: wa}, nil
	}

	slog.Info("Client.NewClient: no stored session, starting QR login")
	qrChan, err := wa.GetQRChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open QR channel: %w", err)
	}
	if err := wa.Connect(); err != nil {
		slog.Error("Client.NewClient: connect failed during login", "error", err)
		return nil, fmt.Errorf("failed to connect to WhatsApp during login: %w", err)
	}

	out := io.Writer(os.Stdout)
	if cfg.QRPath != "" {
		f, err := os.Create(cfg.QRPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create QR file: %w", err)
		}
		defer f.Close()
		out = f
	}
	for evt := range qrChan {
		if evt.Event != whatsmeow.QRChannelEventCode {
			slog.Info("Client.NewClient: login event", "event", evt.Event)
			continue
		}
		if cfg.NumericCode {
			fmt.Fprintln(out, evt.Code)
		} else {
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, out)
		}
	}
	slog.Info("Client.NewClient: login finished")
	return &Client{wa: wa}, nil
}

// SendMessage sends body to the phone number to, given as digits without a
// leading plus.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	if c.wa == nil || c.wa.Store == nil {
		return fmt.Errorf("whatsapp client not initialized")
	}
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if body == "" {
		return fmt.Errorf("message body cannot be empty")
	}
	msg := &waE2E.Message{Conversation: &body}
	if _, err := c.wa.SendMessage(ctx, types.NewJID(to, JIDSuffix), msg); err != nil {
		slog.Error("Client.SendMessage: send failed", "error", err, "to", to)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("Client.SendMessage: sent", "to", to, "bodyLength", len(body))
	return nil
}

// AddEventHandler subscribes h to whatsmeow events.
func (c *Client) AddEventHandler(h func(evt any)) uint32 {
	return c.wa.AddEventHandler(h)
}

// Close disconnects from WhatsApp.
func (c *Client) Close() {
	if c.wa != nil {
		c.wa.Disconnect()
	}
}
