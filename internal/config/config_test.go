package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testSupabaseURL = "https://project.supabase.co"
	testSupabaseKey = "anon-key"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "power-records", cfg.KafkaSourceTopic)
	assert.Equal(t, "power-days", cfg.KafkaSinkTopic)
	assert.Equal(t, "grid-timeline", cfg.KafkaGroupID)
	assert.True(t, cfg.IngestEnabled)
	assert.True(t, cfg.PublishEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, SourceSQLite, cfg.Source)
	assert.Equal(t, "data/timeline.db", cfg.DBPath)
	assert.Equal(t, "Europe/Kyiv", cfg.Timezone)
	require.NotNil(t, cfg.Location)
	assert.Equal(t, "Europe/Kyiv", cfg.Location.String())
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.False(t, cfg.PadMonth)
	assert.Empty(t, cfg.SupabaseURL)
	assert.Equal(t, 10*time.Second, cfg.SupabaseTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("DB_PATH", "/tmp/power.db")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REFRESH_INTERVAL", "1m")
	t.Setenv("PAD_MONTH", "true")
	t.Setenv("PUBLISH_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "/tmp/power.db", cfg.DBPath)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.True(t, cfg.PadMonth)
	assert.False(t, cfg.PublishEnabled)
	assert.True(t, cfg.IngestEnabled)
}

func TestLoad_Supabase(t *testing.T) {
	t.Setenv("SOURCE", "supabase")
	t.Setenv("SUPABASE_URL", testSupabaseURL)
	t.Setenv("SUPABASE_KEY", testSupabaseKey)
	t.Setenv("SUPABASE_TIMEOUT", "3s")
	t.Setenv("INGEST_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceSupabase, cfg.Source)
	assert.Equal(t, testSupabaseURL, cfg.SupabaseURL)
	assert.Equal(t, testSupabaseKey, cfg.SupabaseKey)
	assert.Equal(t, 3*time.Second, cfg.SupabaseTimeout)
	assert.False(t, cfg.IngestEnabled)
}

func TestLoad_SupabaseMissingKey(t *testing.T) {
	t.Setenv("SOURCE", "supabase")
	t.Setenv("SUPABASE_URL", testSupabaseURL)
	t.Setenv("INGEST_ENABLED", "false")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_KEY")
}

func TestLoad_SupabaseWithIngest(t *testing.T) {
	t.Setenv("SOURCE", "supabase")
	t.Setenv("SUPABASE_URL", testSupabaseURL)
	t.Setenv("SUPABASE_KEY", testSupabaseKey)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_ENABLED")
}

func TestLoad_InvalidSource(t *testing.T) {
	t.Setenv("SOURCE", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE")
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEZONE")
}

func TestLoad_InvalidDurations(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"BATCH_FLUSH_INTERVAL", "not-a-duration"},
		{"REFRESH_INTERVAL", "0s"},
		{"REFRESH_INTERVAL", "soon"},
		{"SUPABASE_TIMEOUT", "-5s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	for _, v := range []string{"0", "9999", "many"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("BATCH_SIZE", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "BATCH_SIZE")
		})
	}
}

func TestLoad_EmptyBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_BrokersNotNeededWithoutKafka(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , ")
	t.Setenv("INGEST_ENABLED", "false")
	t.Setenv("PUBLISH_ENABLED", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestParseBool(t *testing.T) {
	t.Setenv("FLAG_TRUE", "true")
	t.Setenv("FLAG_ONE", "1")
	t.Setenv("FLAG_FALSE", "false")
	t.Setenv("FLAG_JUNK", "maybe")

	assert.True(t, parseBool("FLAG_TRUE", false))
	assert.True(t, parseBool("FLAG_ONE", false))
	assert.False(t, parseBool("FLAG_FALSE", true))
	assert.True(t, parseBool("FLAG_JUNK", true))
	assert.False(t, parseBool("FLAG_UNSET", false))
}
