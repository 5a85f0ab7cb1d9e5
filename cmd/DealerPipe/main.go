package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/DealerPipe/internal/api"
	"github.com/BTreeMap/DealerPipe/internal/genai"
	"github.com/BTreeMap/DealerPipe/internal/lockfile"
	"github.com/BTreeMap/DealerPipe/internal/store"
	"github.com/BTreeMap/DealerPipe/internal/twiliowhatsapp"
	"github.com/BTreeMap/DealerPipe/internal/util"
	"github.com/BTreeMap/DealerPipe/internal/whatsapp"
)

const (
	// DefaultStateDir is the default directory for DealerPipe state data.
	DefaultStateDir = "/var/lib/dealerpipe"
	// DefaultDBFileName is the application SQLite database filename.
	DefaultDBFileName = "dealerpipe.db"
	// DefaultWhatsAppDBFileName is the whatsmeow SQLite database filename.
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// DefaultSessionCacheSize is the number of sessions kept in the LRU.
	DefaultSessionCacheSize = 1024
	// DefaultSessionTTL expires idle Redis sessions.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultClassifierRPS bounds outbound LLM requests.
	DefaultClassifierRPS = 5.0
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.Acquire(flags.stateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release state directory lock", "error", err)
		}
	}()

	cfg := buildRunConfig(config, flags)
	slog.Info("Bootstrapping DealerPipe", "provider", cfg.Provider, "state_dir", flags.stateDir, "dsn_type", store.DetectDSNType(cfg.DSN))
	if err := api.Run(context.Background(), cfg); err != nil {
		slog.Error("DealerPipe failed to run", "error", util.RedactSecrets(err.Error()))
		lock.Release()
		os.Exit(1)
	}
	slog.Info("DealerPipe exited successfully")
}

// Config holds environment configuration.
type Config struct {
	StateDir         string
	DatabaseDSN      string
	WhatsAppDSN      string
	OpenAIKeys       []string
	OpenAIModel      string
	ClassifierRPS    float64
	ImageAnalysis    bool
	MediaBaseURL     string
	RedisURL         string
	SessionTTL       time.Duration
	SessionCacheSize int
	Provider         string
	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
	TwilioWebhookURL string
	APIAddr          string
	DealerProfile    string
	InventorySeed    string
}

// Flags holds command line overrides. Empty strings keep the environment
// value.
type Flags struct {
	qrOutput      string
	numeric       bool
	stateDir      string
	dbDSN         string
	whatsAppDSN   string
	openaiKey     string
	openaiModel   string
	provider      string
	apiAddr       string
	redisURL      string
	dealerProfile string
	inventorySeed string
}

func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig reads .env (if present) and the process environment.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:         os.Getenv("DEALERPIPE_STATE_DIR"),
		DatabaseDSN:      os.Getenv("DEALERPIPE_DB_DSN"),
		WhatsAppDSN:      os.Getenv("WHATSAPP_DB_DSN"),
		OpenAIModel:      os.Getenv("OPENAI_MODEL"),
		ClassifierRPS:    util.ParseFloatEnv("CLASSIFIER_RPS", DefaultClassifierRPS),
		ImageAnalysis:    util.ParseBoolEnv("VISION_IMAGE_ANALYSIS", false),
		MediaBaseURL:     os.Getenv("MEDIA_BASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SessionTTL:       util.ParseDurationEnv("SESSION_TTL", DefaultSessionTTL),
		SessionCacheSize: util.ParseIntEnv("SESSION_CACHE_SIZE", DefaultSessionCacheSize),
		Provider:         strings.ToLower(strings.TrimSpace(os.Getenv("MESSAGING_PROVIDER"))),
		TwilioSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioWebhookURL: os.Getenv("TWILIO_WEBHOOK_URL"),
		APIAddr:          os.Getenv("API_ADDR"),
		DealerProfile:    os.Getenv("DEALER_PROFILE"),
		InventorySeed:    os.Getenv("INVENTORY_SEED"),
	}
	config.OpenAIKeys = util.SplitCSV(os.Getenv("OPENAI_API_KEY") + "," + os.Getenv("OPENAI_API_KEYS"))

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No DEALERPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
	}
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)
	}
	if config.Provider == "" {
		config.Provider = api.ProviderWhatsApp
	}

	slog.Debug("environment variables loaded",
		"DEALERPIPE_STATE_DIR", config.StateDir,
		"DB_DSN_TYPE", store.DetectDSNType(config.DatabaseDSN),
		"OPENAI_KEYS", len(config.OpenAIKeys),
		"MESSAGING_PROVIDER", config.Provider,
		"REDIS_URL_SET", config.RedisURL != "",
		"TWILIO_SID_SET", config.TwilioSID != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses args into fs with environment defaults.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	var flags Flags
	fs.StringVar(&flags.qrOutput, "qr-output", "", "path to write the WhatsApp login QR code")
	fs.BoolVar(&flags.numeric, "numeric-code", false, "use a numeric login code instead of a QR code")
	fs.StringVar(&flags.stateDir, "state-dir", config.StateDir, "state directory (overrides $DEALERPIPE_STATE_DIR)")
	fs.StringVar(&flags.dbDSN, "db-dsn", config.DatabaseDSN, "application database DSN (overrides $DEALERPIPE_DB_DSN or $DATABASE_URL)")
	fs.StringVar(&flags.whatsAppDSN, "whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow store DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&flags.openaiKey, "openai-api-key", "", "additional OpenAI API key")
	fs.StringVar(&flags.openaiModel, "openai-model", config.OpenAIModel, "OpenAI model (overrides $OPENAI_MODEL)")
	fs.StringVar(&flags.provider, "provider", config.Provider, "messaging provider: whatsapp, twilio or none (overrides $MESSAGING_PROVIDER)")
	fs.StringVar(&flags.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&flags.redisURL, "redis-url", config.RedisURL, "Redis URL for sessions (overrides $REDIS_URL)")
	fs.StringVar(&flags.dealerProfile, "dealer-profile", config.DealerProfile, "dealer profile YAML (overrides $DEALER_PROFILE)")
	fs.StringVar(&flags.inventorySeed, "inventory-seed", config.InventorySeed, "inventory seed YAML (overrides $INVENTORY_SEED)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	// Follow a moved state directory unless the DSNs were set explicitly.
	if flags.stateDir != config.StateDir {
		if flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) {
			flags.dbDSN = filepath.Join(flags.stateDir, DefaultDBFileName)
		}
		if flags.whatsAppDSN == filepath.Join(config.StateDir, DefaultWhatsAppDBFileName) {
			flags.whatsAppDSN = filepath.Join(flags.stateDir, DefaultWhatsAppDBFileName)
		}
		slog.Debug("state directory overridden", "old_state_dir", config.StateDir, "new_state_dir", flags.stateDir)
	}
	flags.provider = strings.ToLower(strings.TrimSpace(flags.provider))

	slog.Debug("flags parsed",
		"stateDir", flags.stateDir,
		"dbDSN_type", store.DetectDSNType(flags.dbDSN),
		"provider", flags.provider,
		"apiAddr", flags.apiAddr,
		"numeric", flags.numeric)
	return flags, nil
}

// ensureDirectoriesExist creates the state directory for file-based DSNs.
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{flags.dbDSN, flags.whatsAppDSN} {
		if dsn == "" || store.DetectDSNType(dsn) == "postgres" {
			continue
		}
		dir := filepath.Dir(strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:"))
		if err := os.MkdirAll(dir, store.DefaultDirPermissions); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", dir)
			return err
		}
	}
	return nil
}

func buildRunConfig(config Config, flags Flags) api.Config {
	return api.Config{
		Provider:         flags.provider,
		DSN:              flags.dbDSN,
		GenAIOpts:        buildGenAIOptions(config, flags),
		WhatsAppOpts:     buildWhatsAppOptions(flags),
		TwilioOpts:       buildTwilioOptions(config),
		TwilioWebhookURL: config.TwilioWebhookURL,
		RedisURL:         flags.redisURL,
		SessionTTL:       config.SessionTTL,
		SessionCacheSize: config.SessionCacheSize,
		DealerProfile:    flags.dealerProfile,
		InventorySeed:    flags.inventorySeed,
		MediaBaseURL:     config.MediaBaseURL,
		ImageAnalysis:    config.ImageAnalysis,
		APIOpts:          buildAPIOptions(flags),
	}
}

func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(flags.qrOutput))
	}
	if flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if flags.whatsAppDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(flags.whatsAppDSN))
	}
	return waOpts
}

func buildGenAIOptions(config Config, flags Flags) []genai.Option {
	keys := config.OpenAIKeys
	if flags.openaiKey != "" {
		keys = append([]string{flags.openaiKey}, keys...)
	}
	opts := []genai.Option{genai.WithAPIKeys(keys...)}
	if flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(flags.openaiModel))
	}
	if config.ClassifierRPS > 0 {
		opts = append(opts, genai.WithRateLimit(config.ClassifierRPS))
	}
	return opts
}

func buildTwilioOptions(config Config) []twiliowhatsapp.Option {
	return []twiliowhatsapp.Option{
		twiliowhatsapp.WithAccountSID(config.TwilioSID),
		twiliowhatsapp.WithAuthToken(config.TwilioToken),
		twiliowhatsapp.WithFromNumber(config.TwilioFrom),
	}
}

func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(flags.apiAddr))
	}
	return apiOpts
}
