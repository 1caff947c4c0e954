package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Notification sink names accepted in NOTIFY_SINKS.
const (
	SinkSMTP    = "smtp"
	SinkWebhook = "webhook"
	SinkKafka   = "kafka"
	SinkLog     = "log"
)

// SMTP transport security modes.
const (
	TLSImplicit = "implicit"
	TLSStartTLS = "starttls"
	TLSNone     = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Schedule        string

	// Incident feed.
	SodaURL      string
	SodaAppToken string
	FeedLimit    int
	FeedTimeout  time.Duration

	DatabaseDriver string
	DatabaseDSN    string

	AOIDir         string
	StyleRulesFile string

	// Mapbox static map rendering.
	MapboxToken     string
	MapboxStyle     string
	MapboxWidth     int
	MapboxHeight    int
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	NotifySinks       []string
	NotifyConcurrency int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTo       []string
	SMTPTLS      string
	SMTPTimeout  time.Duration
	SMTPEmbedMap bool

	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

// HasSink reports whether name is one of the configured notification sinks.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.NotifySinks, name)
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	feedTimeout, err := parseDuration("FEED_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	feedLimit, err := parsePositiveInt("FEED_LIMIT", 100000)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxWidth, mapboxHeight, err := parseSize("MAPBOX_SIZE", "900x900")
	if err != nil {
		return nil, err
	}
	mapboxCacheSize, err := parsePositiveInt("MAPBOX_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("NOTIFY_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	smtpPort, err := parsePositiveInt("SMTP_PORT", 465)
	if err != nil {
		return nil, err
	}
	smtpTimeout, err := parseDuration("SMTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	webhookTimeout, err := parseDuration("WEBHOOK_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	embedMap, err := parseBool("SMTP_EMBED_MAP", false)
	if err != nil {
		return nil, err
	}

	// EMAIL, RECEIVER_EMAIL and EMAIL_PASSWORD are the legacy names for the SMTP settings.
	smtpFrom := sharedcfg.EnvOrDefault("SMTP_FROM", os.Getenv("EMAIL"))

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		Schedule:        strings.TrimSpace(os.Getenv("SCHEDULE")),

		SodaURL:      sharedcfg.EnvOrDefault("SODA_URL", "https://data.oaklandca.gov/resource/ym6k-rx7a.csv"),
		SodaAppToken: os.Getenv("SODA_APP_TOKEN"),
		FeedLimit:    feedLimit,
		FeedTimeout:  feedTimeout,

		DatabaseDriver: strings.ToLower(sharedcfg.EnvOrDefault("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:    sharedcfg.EnvOrDefault("DATABASE_DSN", "incidents.db"),

		AOIDir:         sharedcfg.EnvOrDefault("AOI_DIR", "data"),
		StyleRulesFile: os.Getenv("STYLE_RULES_FILE"),

		MapboxToken:     os.Getenv("MAPBOX_TOKEN"),
		MapboxStyle:     sharedcfg.EnvOrDefault("MAPBOX_STYLE", "mapbox/streets-v11"),
		MapboxWidth:     mapboxWidth,
		MapboxHeight:    mapboxHeight,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,

		NotifySinks:       parseList(sharedcfg.EnvOrDefault("NOTIFY_SINKS", SinkSMTP)),
		NotifyConcurrency: concurrency,

		SMTPHost:     sharedcfg.EnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     smtpPort,
		SMTPUsername: sharedcfg.EnvOrDefault("SMTP_USERNAME", smtpFrom),
		SMTPPassword: sharedcfg.EnvOrDefault("SMTP_PASSWORD", os.Getenv("EMAIL_PASSWORD")),
		SMTPFrom:     smtpFrom,
		SMTPTo:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("SMTP_TO", os.Getenv("RECEIVER_EMAIL"))),
		SMTPTLS:      strings.ToLower(sharedcfg.EnvOrDefault("SMTP_TLS", TLSImplicit)),
		SMTPTimeout:  smtpTimeout,
		SMTPEmbedMap: embedMap,

		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout: webhookTimeout,

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "aoi-notifications"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q: must be sqlite or postgres", c.DatabaseDriver)
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid SCHEDULE %q: %w", c.Schedule, err)
		}
	}
	if len(c.NotifySinks) == 0 {
		return errors.New("NOTIFY_SINKS is required")
	}
	for _, s := range c.NotifySinks {
		switch s {
		case SinkSMTP, SinkWebhook, SinkKafka, SinkLog:
		default:
			return fmt.Errorf("invalid NOTIFY_SINKS entry %q", s)
		}
	}

	if c.HasSink(SinkSMTP) {
		if c.SMTPFrom == "" {
			return errors.New("SMTP_FROM is required for the smtp sink")
		}
		if len(c.SMTPTo) == 0 {
			return errors.New("SMTP_TO is required for the smtp sink")
		}
		if c.SMTPPassword == "" {
			return errors.New("SMTP_PASSWORD is required for the smtp sink")
		}
		switch c.SMTPTLS {
		case TLSImplicit, TLSStartTLS, TLSNone:
		default:
			return fmt.Errorf("invalid SMTP_TLS %q", c.SMTPTLS)
		}
	}
	if c.HasSink(SinkWebhook) && c.WebhookURL == "" {
		return errors.New("WEBHOOK_URL is required for the webhook sink")
	}
	if c.HasSink(SinkKafka) {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka sink")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required for the kafka sink")
		}
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}

// parseSize reads a WIDTHxHEIGHT pair such as 900x900.
func parseSize(key, def string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(sharedcfg.EnvOrDefault(key, def)), "x")
	if ok {
		width, werr := strconv.Atoi(strings.TrimSpace(w))
		height, herr := strconv.Atoi(strings.TrimSpace(h))
		if werr == nil && herr == nil && width > 0 && height > 0 {
			return width, height, nil
		}
	}
	return 0, 0, fmt.Errorf("invalid %s: must be WIDTHxHEIGHT", key)
}

func parseList(value string) []string {
	out := sharedcfg.ParseBrokers(strings.ToLower(value))
	slices.Sort(out)
	return slices.Compact(out)
}
