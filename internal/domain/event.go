package domain

import (
	"context"
	"time"
)

// PowerState is the grid state reported by the monitor.
type PowerState string

const (
	StateOn  PowerState = "ON"
	StateOff PowerState = "OFF"
)

// SegmentKind labels a run within a day timeline. FUTURE marks the part of
// today that has not happened yet.
type SegmentKind string

const (
	SegmentOn     SegmentKind = "ON"
	SegmentOff    SegmentKind = "OFF"
	SegmentFuture SegmentKind = "FUTURE"
)

// SlotKind classifies a published schedule interval.
type SlotKind string

const (
	SlotBlackout  SlotKind = "BLACKOUT"
	SlotAvailable SlotKind = "AVAILABLE"
)

// PowerEvent is a single ON/OFF transition.
type PowerEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	State     PowerState `json:"state"`
}

// ScheduleInterval is a raw published interval. It may span several days.
type ScheduleInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Kind  SlotKind  `json:"kind"`
}

// ScheduleSlot is a schedule interval clipped to one calendar day. End is
// "24:00" when the slot runs to midnight.
type ScheduleSlot struct {
	DateKey string   `json:"date"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Kind    SlotKind `json:"kind"`
}

// AttackRecord annotates a day with an external disruption.
type AttackRecord struct {
	DateKey       string  `json:"date"`
	DurationHours float64 `json:"duration_hours"`
	Description   string  `json:"description"`
}

// Segment is a contiguous run of one state inside a single day.
type Segment struct {
	Kind            SegmentKind `json:"kind"`
	Start           time.Time   `json:"start"`
	End             time.Time   `json:"end"`
	DurationMinutes int         `json:"duration_minutes"`
	Status          string      `json:"status"`
	Current         bool        `json:"current"`
	Label           string      `json:"label"`
}

// Day is the reconstructed timeline and scoring for one calendar date.
type Day struct {
	Date             time.Time      `json:"date"`
	Key              string         `json:"key"`
	Segments         []Segment      `json:"segments"`
	ScheduleSegments []ScheduleSlot `json:"schedule_segments"`

	TotalOnMinutes  int `json:"total_on_minutes"`
	TotalOffMinutes int `json:"total_off_minutes"`
	MaxOnMinutes    int `json:"max_on_minutes"`
	OutageCount     int `json:"outage_count"`

	EffectiveMinutes float64 `json:"effective_minutes"`
	PotentialWeight  float64 `json:"potential_weight"`
	QualityIndex     float64 `json:"quality_index"`

	MatchMinutes         int `json:"match_minutes"`
	ScheduleMinutesTotal int `json:"schedule_minutes_total"`

	HasData bool          `json:"has_data"`
	Attack  *AttackRecord `json:"attack,omitempty"`
}

// Accuracy returns the schedule-match percentage, or 0 when nothing was scored.
func (d Day) Accuracy() float64 {
	if d.ScheduleMinutesTotal == 0 {
		return 0
	}
	return float64(d.MatchMinutes) / float64(d.ScheduleMinutesTotal) * 100
}

// FutureMinutes returns the length of the trailing FUTURE segment, if any.
func (d Day) FutureMinutes() int {
	n := len(d.Segments)
	if n == 0 || d.Segments[n-1].Kind != SegmentFuture {
		return 0
	}
	return d.Segments[n-1].DurationMinutes
}

// Inputs are the three collections the timeline is generated from.
type Inputs struct {
	Events   []PowerEvent
	Attacks  []AttackRecord
	Schedule *ScheduleBook
}

// RawMessage is an unprocessed record read from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
