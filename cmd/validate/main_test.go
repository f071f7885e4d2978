package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFixture() domain.Fixture {
	return domain.Fixture{
		Timezone: "Europe/Kyiv",
		Now:      time.Date(2025, 1, 12, 12, 0, 0, 0, time.UTC),
		Dataset: domain.Dataset{
			Events: []domain.RawPowerEvent{
				{EventTime: "2025-01-10T06:00:00Z", Type: "OFF"},
				{EventTime: "2025-01-10T08:00:00Z", Type: "ON"},
				{EventTime: "2025-01-11T15:30:00Z", Type: "OFF"},
				{EventTime: "2025-01-11T15:30:20Z", Type: "ON"},
				{EventTime: "2025-01-12T07:00:00Z", Type: "OFF"},
			},
			Attacks: []domain.RawAttack{
				{StartTime: "2025-01-11T02:00:00Z", DurationHours: 3, Description: "drones"},
			},
			Schedule: []domain.RawScheduleSlot{
				{StartTime: "2025-01-10T06:00:00Z", EndTime: "2025-01-10T10:00:00Z", Type: "black"},
				{StartTime: "2025-01-11T22:00:00Z", EndTime: "2025-01-12T02:00:00Z", Type: "green"},
			},
		},
	}
}

func writeFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_Passes(t *testing.T) {
	f := testFixture()
	days, err := f.Generate()
	require.NoError(t, err)

	dir := t.TempDir()
	inputs := writeFile(t, dir, "inputs.json", f)
	stored := writeFile(t, dir, "days.json", days)

	assert.Equal(t, 0, run(inputs, stored))
	assert.Equal(t, 0, run(inputs, ""))
}

func TestRun_StoredDaysDiffer(t *testing.T) {
	f := testFixture()
	days, err := f.Generate()
	require.NoError(t, err)
	days[1].OutageCount = 99

	dir := t.TempDir()
	assert.Equal(t, 1, run(writeFile(t, dir, "inputs.json", f), writeFile(t, dir, "days.json", days)))
}

func TestRun_MissingFile(t *testing.T) {
	assert.Equal(t, 1, run(filepath.Join(t.TempDir(), "missing.json"), ""))
}

func TestValidateInputs(t *testing.T) {
	f := testFixture()
	_, p := validateInputs(f)
	assert.True(t, p.passed(), p.errors)

	f.Dataset.Events[1], f.Dataset.Events[2] = f.Dataset.Events[2], f.Dataset.Events[1]
	_, p = validateInputs(f)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "is before")

	f = testFixture()
	f.Dataset.Schedule[0].Type = "grey"
	_, p = validateInputs(f)
	assert.False(t, p.passed())

	f = testFixture()
	f.Timezone = "Nowhere/Land"
	_, p = validateInputs(f)
	assert.False(t, p.passed())
}

func TestCheckDay_DetectsBrokenDays(t *testing.T) {
	f := testFixture()
	in, p := validateInputs(f)
	require.True(t, p.passed())
	days := domain.GenerateDays(in.in, f.Now.In(in.loc), domain.Options{})

	ok := validateInvariants(days, in.in.Events)
	require.True(t, ok.passed(), ok.errors)

	tests := []struct {
		name   string
		mutate func(d *domain.Day)
		want   string
	}{
		{"totals", func(d *domain.Day) { d.TotalOnMinutes++ }, "totals"},
		{"quality", func(d *domain.Day) { d.QualityIndex = 1.5 }, "quality"},
		{"gap", func(d *domain.Day) { d.Segments[1].Start = d.Segments[1].Start.Add(5 * time.Minute) }, "after previous end"},
		{"kind", func(d *domain.Day) {
			for i := range d.Segments {
				if d.Segments[i].Kind == domain.SegmentOff {
					d.Segments[i].Kind = domain.SegmentOn
					return
				}
			}
		}, "carried state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := days[2]
			d.Segments = append([]domain.Segment(nil), d.Segments...)
			tt.mutate(&d)

			p := &phase{}
			checkDay(p, d, in.in.Events)
			require.NotEmpty(t, p.errors)
			assert.Contains(t, p.errors[0], tt.want)
		})
	}
}

func TestValidateInvariants_GapInDays(t *testing.T) {
	f := testFixture()
	days, err := f.Generate()
	require.NoError(t, err)

	in, _ := validateInputs(f)
	p := validateInvariants([]domain.Day{days[0], days[2]}, in.in.Events)
	require.NotEmpty(t, p.errors)
	assert.Contains(t, p.errors[0], "no gaps")
}
