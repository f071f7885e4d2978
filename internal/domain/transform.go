package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecordType is the value of the record_type header on source messages.
type RecordType string

const (
	RecordEvent    RecordType = "event"
	RecordAttack   RecordType = "attack"
	RecordSchedule RecordType = "schedule"

	// RecordTypeHeader names the message header that selects the body shape.
	RecordTypeHeader = "record_type"
)

// RawPowerEvent is an events row: {"event_time", "type": "ON"|"OFF"}.
type RawPowerEvent struct {
	EventTime string `json:"event_time"`
	Type      string `json:"type"`
}

// RawAttack is an attacks row.
type RawAttack struct {
	StartTime     string  `json:"start_time"`
	DurationHours float64 `json:"duration_hours"`
	Description   string  `json:"description"`
}

// RawScheduleSlot is a schedule row: {"start_time", "end_time", "type": "black"|"green"}.
type RawScheduleSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
}

// AttackEntry is a parsed attack before it is pinned to a local date.
type AttackEntry struct {
	Start         time.Time
	DurationHours float64
	Description   string
}

// In pins the attack to the calendar date of its start in loc.
func (a AttackEntry) In(loc *time.Location) AttackRecord {
	return AttackRecord{
		DateKey:       DateKey(a.Start.In(loc)),
		DurationHours: a.DurationHours,
		Description:   a.Description,
	}
}

// Record is one parsed input. Exactly one of Event, Attack, Slot is set.
type Record struct {
	ID         string
	Type       RecordType
	Event      *PowerEvent
	Attack     *AttackEntry
	Slot       *ScheduleInterval
	ReceivedAt time.Time
}

// ParseRecord decodes a source message into a Record. The record_type header
// selects the body shape.
func ParseRecord(raw RawMessage) (Record, error) {
	typ := RecordType(strings.ToLower(strings.TrimSpace(raw.Headers[RecordTypeHeader])))

	rec := Record{Type: typ}
	switch typ {
	case RecordEvent:
		var row RawPowerEvent
		if err := json.Unmarshal(raw.Value, &row); err != nil {
			return Record{}, fmt.Errorf("parse event record: %w", err)
		}
		ev, err := row.Parse()
		if err != nil {
			return Record{}, err
		}
		rec.Event = &ev
		rec.ID = generateID(typ, ev.Timestamp.UTC().Format(time.RFC3339Nano), string(ev.State))
	case RecordAttack:
		var row RawAttack
		if err := json.Unmarshal(raw.Value, &row); err != nil {
			return Record{}, fmt.Errorf("parse attack record: %w", err)
		}
		a, err := row.Parse()
		if err != nil {
			return Record{}, err
		}
		rec.Attack = &a
		rec.ID = generateID(typ, a.Start.UTC().Format(time.RFC3339Nano), fmt.Sprintf("%g", a.DurationHours), a.Description)
	case RecordSchedule:
		var row RawScheduleSlot
		if err := json.Unmarshal(raw.Value, &row); err != nil {
			return Record{}, fmt.Errorf("parse schedule record: %w", err)
		}
		iv, err := row.Parse()
		if err != nil {
			return Record{}, err
		}
		rec.Slot = &iv
		rec.ID = generateID(typ, iv.Start.UTC().Format(time.RFC3339Nano), iv.End.UTC().Format(time.RFC3339Nano), string(iv.Kind))
	default:
		return Record{}, fmt.Errorf("unknown record type %q", typ)
	}

	rec.ReceivedAt = clock.Now()
	return rec, nil
}

// Parse validates an events row.
func (r RawPowerEvent) Parse() (PowerEvent, error) {
	ts, err := parseTimestamp(r.EventTime)
	if err != nil {
		return PowerEvent{}, fmt.Errorf("event_time: %w", err)
	}
	state, err := parseState(r.Type)
	if err != nil {
		return PowerEvent{}, err
	}
	return PowerEvent{Timestamp: ts, State: state}, nil
}

// Parse validates an attacks row.
func (r RawAttack) Parse() (AttackEntry, error) {
	ts, err := parseTimestamp(r.StartTime)
	if err != nil {
		return AttackEntry{}, fmt.Errorf("start_time: %w", err)
	}
	return AttackEntry{Start: ts, DurationHours: r.DurationHours, Description: r.Description}, nil
}

// Parse validates a schedule row.
func (r RawScheduleSlot) Parse() (ScheduleInterval, error) {
	start, err := parseTimestamp(r.StartTime)
	if err != nil {
		return ScheduleInterval{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseTimestamp(r.EndTime)
	if err != nil {
		return ScheduleInterval{}, fmt.Errorf("end_time: %w", err)
	}
	kind, err := parseSlotKind(r.Type)
	if err != nil {
		return ScheduleInterval{}, err
	}
	return ScheduleInterval{Start: start, End: end, Kind: kind}, nil
}

// timestampLayouts are tried in order. Zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseState(s string) (PowerState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return StateOn, nil
	case "OFF":
		return StateOff, nil
	default:
		return "", fmt.Errorf("unknown power state %q", s)
	}
}

// parseSlotKind accepts the published "black"/"green" tags and the
// normalized names.
func parseSlotKind(s string) (SlotKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black", "blackout":
		return SlotBlackout, nil
	case "green", "available":
		return SlotAvailable, nil
	default:
		return "", fmt.Errorf("unknown schedule type %q", s)
	}
}

// generateID hashes the record type and key fields so replays of the same
// record map to the same row.
func generateID(typ RecordType, fields ...string) string {
	input := string(typ) + "|" + strings.Join(fields, "|")
	hash := sha256.Sum256([]byte(input))
	return string(typ) + "-" + hex.EncodeToString(hash[:8])
}
