package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataset_Inputs(t *testing.T) {
	ds := Dataset{
		Events: []RawPowerEvent{
			{EventTime: "2025-01-10T06:00:00Z", Type: "ON"},
			{EventTime: "2025-01-10T10:00:00Z", Type: "OFF"},
		},
		Attacks: []RawAttack{
			{StartTime: "2025-01-09T23:30:00Z", DurationHours: 3, Description: "overnight"},
		},
		Schedule: []RawScheduleSlot{
			{StartTime: "2025-01-10T20:00:00Z", EndTime: "2025-01-11T02:00:00Z", Type: "black"},
		},
	}

	in, err := ds.Inputs(testLoc)
	require.NoError(t, err)

	require.Len(t, in.Events, 2)
	assert.Equal(t, StateOn, in.Events[0].State)

	require.Len(t, in.Attacks, 1)
	assert.Equal(t, "2025-01-10", in.Attacks[0].DateKey, "pinned to the local date")

	assert.Equal(t, []string{"2025-01-10", "2025-01-11"}, in.Schedule.Dates())
	assert.Equal(t, "22:00", in.Schedule.Slots("2025-01-10")[0].Start)
	assert.Equal(t, MidnightClock, in.Schedule.Slots("2025-01-10")[0].End)
	assert.Equal(t, "04:00", in.Schedule.Slots("2025-01-11")[0].End)
}

func TestDataset_Inputs_Errors(t *testing.T) {
	tests := []struct {
		name string
		ds   Dataset
		want string
	}{
		{
			name: "event row",
			ds:   Dataset{Events: []RawPowerEvent{{EventTime: "2025-01-10T06:00:00Z", Type: "ON"}, {EventTime: "bad", Type: "ON"}}},
			want: "events[1]",
		},
		{
			name: "attack row",
			ds:   Dataset{Attacks: []RawAttack{{StartTime: ""}}},
			want: "attacks[0]",
		},
		{
			name: "schedule row",
			ds:   Dataset{Schedule: []RawScheduleSlot{{StartTime: "2025-01-10T06:00:00Z", EndTime: "2025-01-10T07:00:00Z", Type: "red"}}},
			want: "schedule[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ds.Inputs(testLoc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFixture_Generate(t *testing.T) {
	raw := `{
		"timezone": "Europe/Kyiv",
		"now": "2025-01-11T10:00:00Z",
		"pad_month": false,
		"dataset": {
			"events": [
				{"event_time": "2025-01-10T06:00:00Z", "type": "ON"},
				{"event_time": "2025-01-10T10:00:00Z", "type": "OFF"},
				{"event_time": "2025-01-10T12:00:00Z", "type": "ON"}
			],
			"attacks": [],
			"schedule": [
				{"start_time": "2025-01-10T10:00:00Z", "end_time": "2025-01-10T12:00:00Z", "type": "black"}
			]
		}
	}`

	var f Fixture
	require.NoError(t, json.Unmarshal([]byte(raw), &f))

	days, err := f.Generate()
	require.NoError(t, err)
	require.Len(t, days, 2)

	d := days[1]
	assert.Equal(t, "2025-01-10", d.Key)
	assert.Equal(t, "Europe/Kyiv", d.Date.Location().String())
	assert.Equal(t, 120, d.TotalOffMinutes)
	assert.Equal(t, 1, d.OutageCount)
	assert.InDelta(t, 100.0, d.Accuracy(), 1e-9)
	assert.Equal(t, 8, d.Segments[0].Start.Hour(), "06:00Z is 08:00 in Kyiv")
}

func TestFixture_Generate_BadZone(t *testing.T) {
	f := Fixture{Timezone: "Mars/Olympus"}
	_, err := f.Generate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load timezone")
}
