package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"event_time":"2025-01-10T08:00:00Z","type":"ON"}`),
		Topic:     "power-records",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.RecordTypeHeader, Value: []byte("event")},
		},
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"event_time":"2025-01-10T08:00:00Z","type":"ON"}`, string(raw.Value))
	assert.Equal(t, "power-records", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "event", raw.Headers[domain.RecordTypeHeader])
	assert.Nil(t, raw.Commit)

	rec, err := domain.ParseRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.StateOn, rec.Event.State)
}

func TestSerializeDay(t *testing.T) {
	generated := time.Date(2025, 1, 10, 15, 10, 0, 0, time.UTC)
	day := domain.Day{
		Key:             "2025-01-10",
		Date:            time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		TotalOnMinutes:  600,
		TotalOffMinutes: 839,
		OutageCount:     2,
		HasData:         true,
		Segments:        []domain.Segment{},
	}

	msg, err := serializeDay(day, generated)
	require.NoError(t, err)

	assert.Equal(t, []byte("2025-01-10"), msg.Key)
	assert.Contains(t, string(msg.Value), `"total_on_minutes":600`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, HeaderDate, msg.Headers[0].Key)
	assert.Equal(t, []byte("2025-01-10"), msg.Headers[0].Value)
	assert.Equal(t, HeaderGeneratedAt, msg.Headers[1].Key)
	assert.Equal(t, []byte(generated.Format(time.RFC3339)), msg.Headers[1].Value)

	var back domain.Day
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, 2, back.OutageCount)
	assert.True(t, back.HasData)
}

func TestPublishDays_Empty(t *testing.T) {
	w := &Writer{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.NoError(t, w.PublishDays(context.Background(), time.Now(), nil))
}
