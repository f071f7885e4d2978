package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(typ, body string) RawMessage {
	return RawMessage{
		Value:   []byte(body),
		Headers: map[string]string{RecordTypeHeader: typ},
	}
}

func TestParseRecord(t *testing.T) {
	fixed := time.Date(2025, 1, 10, 12, 30, 45, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	t.Run("event", func(t *testing.T) {
		rec, err := ParseRecord(message("event", `{"event_time":"2025-01-10T08:00:00+02:00","type":"OFF"}`))
		require.NoError(t, err)
		assert.Equal(t, RecordEvent, rec.Type)
		require.NotNil(t, rec.Event)
		assert.True(t, rec.Event.Timestamp.Equal(time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)))
		assert.Equal(t, StateOff, rec.Event.State)
		assert.True(t, strings.HasPrefix(rec.ID, "event-"))
		assert.Equal(t, fixed, rec.ReceivedAt)
		assert.Nil(t, rec.Attack)
		assert.Nil(t, rec.Slot)
	})

	t.Run("attack", func(t *testing.T) {
		rec, err := ParseRecord(message("attack", `{"start_time":"2025-01-10T03:00:00Z","duration_hours":4.5,"description":"drones"}`))
		require.NoError(t, err)
		require.NotNil(t, rec.Attack)
		assert.InDelta(t, 4.5, rec.Attack.DurationHours, 1e-9)
		assert.Equal(t, "drones", rec.Attack.Description)
		assert.True(t, strings.HasPrefix(rec.ID, "attack-"))
	})

	t.Run("schedule", func(t *testing.T) {
		rec, err := ParseRecord(message("schedule", `{"start_time":"2025-01-10T08:00:00+02:00","end_time":"2025-01-10T12:00:00+02:00","type":"black"}`))
		require.NoError(t, err)
		require.NotNil(t, rec.Slot)
		assert.Equal(t, SlotBlackout, rec.Slot.Kind)
		assert.Equal(t, 4*time.Hour, rec.Slot.End.Sub(rec.Slot.Start))
	})

	t.Run("header is case-insensitive", func(t *testing.T) {
		rec, err := ParseRecord(message(" Event ", `{"event_time":"2025-01-10T08:00:00Z","type":"on"}`))
		require.NoError(t, err)
		assert.Equal(t, StateOn, rec.Event.State)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			msg  RawMessage
			want string
		}{
			{"missing header", RawMessage{Value: []byte(`{}`)}, "unknown record type"},
			{"unknown type", message("weather", `{}`), "unknown record type"},
			{"invalid json", message("event", `{`), "parse event record"},
			{"bad state", message("event", `{"event_time":"2025-01-10T08:00:00Z","type":"FLICKER"}`), "unknown power state"},
			{"missing time", message("event", `{"type":"ON"}`), "event_time"},
			{"bad slot type", message("schedule", `{"start_time":"2025-01-10T08:00:00Z","end_time":"2025-01-10T09:00:00Z","type":"grey"}`), "unknown schedule type"},
			{"bad end time", message("schedule", `{"start_time":"2025-01-10T08:00:00Z","end_time":"soon","type":"black"}`), "end_time"},
			{"bad attack time", message("attack", `{"start_time":"yesterday"}`), "start_time"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ParseRecord(tt.msg)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.want)
			})
		}
	})
}

func TestParseRecord_DeterministicID(t *testing.T) {
	body := `{"event_time":"2025-01-10T08:00:00+02:00","type":"OFF"}`
	a, err := ParseRecord(message("event", body))
	require.NoError(t, err)
	b, err := ParseRecord(message("event", `{"event_time":"2025-01-10T06:00:00Z","type":"OFF"}`))
	require.NoError(t, err)
	c, err := ParseRecord(message("event", `{"event_time":"2025-01-10T06:00:00Z","type":"ON"}`))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID, "same instant in another zone")
	assert.NotEqual(t, a.ID, c.ID)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
	}{
		{"RFC3339 UTC", "2025-01-10T06:00:00Z"},
		{"RFC3339 offset", "2025-01-10T08:00:00+02:00"},
		{"fractional seconds", "2025-01-10T06:00:00.000000Z"},
		{"no zone", "2025-01-10T06:00:00"},
		{"postgres style", "2025-01-10 08:00:00+02:00"},
		{"space no zone", "2025-01-10 06:00:00"},
		{"surrounding space", "  2025-01-10T06:00:00Z "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := parseTimestamp("")
	require.Error(t, err)
	_, err = parseTimestamp("10/01/2025")
	require.Error(t, err)
}

func TestParseSlotKind(t *testing.T) {
	for _, in := range []string{"black", "BLACK", "blackout"} {
		k, err := parseSlotKind(in)
		require.NoError(t, err)
		assert.Equal(t, SlotBlackout, k, in)
	}
	for _, in := range []string{"green", "Available"} {
		k, err := parseSlotKind(in)
		require.NoError(t, err)
		assert.Equal(t, SlotAvailable, k, in)
	}
}

func TestGenerateID(t *testing.T) {
	id := generateID(RecordEvent, "2025-01-10T06:00:00Z", "OFF")
	assert.True(t, strings.HasPrefix(id, "event-"))
	assert.Len(t, id, len("event-")+16)
	assert.Equal(t, id, generateID(RecordEvent, "2025-01-10T06:00:00Z", "OFF"))
	assert.NotEqual(t, id, generateID(RecordAttack, "2025-01-10T06:00:00Z", "OFF"))
}

func TestSetClock(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	assert.Equal(t, fixed, clock.Now())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}
