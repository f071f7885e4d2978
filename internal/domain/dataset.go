package domain

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Dataset is the three input tables in their stored row shape.
type Dataset struct {
	Events   []RawPowerEvent   `json:"events"`
	Attacks  []RawAttack       `json:"attacks"`
	Schedule []RawScheduleSlot `json:"schedule"`
}

// Inputs parses every row and pins attacks and schedule slots to calendar
// dates in loc. Event order is kept as given.
func (ds Dataset) Inputs(loc *time.Location) (Inputs, error) {
	in := Inputs{
		Events:   make([]PowerEvent, 0, len(ds.Events)),
		Attacks:  make([]AttackRecord, 0, len(ds.Attacks)),
		Schedule: NewScheduleBook(),
	}

	for i, row := range ds.Events {
		ev, err := row.Parse()
		if err != nil {
			return Inputs{}, fmt.Errorf("events[%d]: %w", i, err)
		}
		in.Events = append(in.Events, ev)
	}
	for i, row := range ds.Attacks {
		a, err := row.Parse()
		if err != nil {
			return Inputs{}, fmt.Errorf("attacks[%d]: %w", i, err)
		}
		in.Attacks = append(in.Attacks, a.In(loc))
	}
	for i, row := range ds.Schedule {
		iv, err := row.Parse()
		if err != nil {
			return Inputs{}, fmt.Errorf("schedule[%d]: %w", i, err)
		}
		in.Schedule.Add(iv, loc)
	}
	return in, nil
}

// Fixture is a dataset frozen at a point in time, used by the genmock and
// validate commands.
type Fixture struct {
	Timezone string    `json:"timezone"`
	Now      time.Time `json:"now"`
	PadMonth bool      `json:"pad_month"`
	Dataset  Dataset   `json:"dataset"`
}

// Generate loads the fixture's zone and runs the timeline at its frozen now.
func (f Fixture) Generate() ([]Day, error) {
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", f.Timezone, err)
	}
	in, err := f.Dataset.Inputs(loc)
	if err != nil {
		return nil, err
	}
	return GenerateDays(in, f.Now.In(loc), Options{PadMonth: f.PadMonth}), nil
}
