package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Input sources the refresher can read from.
const (
	SourceSQLite   = "sqlite"
	SourceSupabase = "supabase"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	IngestEnabled    bool
	PublishEnabled   bool
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	Source   string
	DBPath   string
	Timezone string
	Location *time.Location

	RefreshInterval time.Duration
	PadMonth        bool

	// Supabase source configuration.
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}

	supabaseTimeout, err := parsePositiveDuration("SUPABASE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	timezone := sharedcfg.EnvOrDefault("TIMEZONE", "Europe/Kyiv")
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", timezone, err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "power-records"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "power-days"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "grid-timeline"),
		IngestEnabled:      parseBool("INGEST_ENABLED", true),
		PublishEnabled:     parseBool("PUBLISH_ENABLED", true),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Source:   sharedcfg.EnvOrDefault("SOURCE", SourceSQLite),
		DBPath:   sharedcfg.EnvOrDefault("DB_PATH", "data/timeline.db"),
		Timezone: timezone,
		Location: loc,

		RefreshInterval: refreshInterval,
		PadMonth:        parseBool("PAD_MONTH", false),

		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_KEY"),
		SupabaseTimeout: supabaseTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	usesKafka := c.IngestEnabled || c.PublishEnabled
	if usesKafka && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.IngestEnabled && c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.PublishEnabled && c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}

	switch c.Source {
	case SourceSQLite:
		if c.DBPath == "" {
			return errors.New("DB_PATH is required")
		}
	case SourceSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("SOURCE is supabase but SUPABASE_URL or SUPABASE_KEY is not set")
		}
		if c.IngestEnabled {
			return errors.New("INGEST_ENABLED requires SOURCE=sqlite")
		}
	default:
		return fmt.Errorf("invalid SOURCE %q: must be sqlite or supabase", c.Source)
	}
	return nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return fallback
	}
}
