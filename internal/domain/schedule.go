package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	dateKeyLayout = "2006-01-02"
	clockLayout   = "15:04"

	// MidnightClock is the end-clock of a slot that runs to the end of its day.
	MidnightClock = "24:00"

	minutesPerDay = 24 * 60
)

// DateKey formats t as YYYY-MM-DD in t's own location.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

type slotKey struct {
	date, start, end string
}

// ScheduleBook holds normalized schedule slots keyed by date. Slots with the
// same date, start, and end are kept once, whichever kind arrived first.
type ScheduleBook struct {
	byDate map[string][]ScheduleSlot
	seen   map[slotKey]struct{}
}

// NewScheduleBook returns an empty book.
func NewScheduleBook() *ScheduleBook {
	return &ScheduleBook{
		byDate: make(map[string][]ScheduleSlot),
		seen:   make(map[slotKey]struct{}),
	}
}

// NormalizeSchedule splits every interval at local midnights in loc.
func NormalizeSchedule(intervals []ScheduleInterval, loc *time.Location) *ScheduleBook {
	b := NewScheduleBook()
	for _, iv := range intervals {
		b.Add(iv, loc)
	}
	return b
}

// Add splits iv at every local midnight it crosses and records one slot per
// affected day. A piece that ends exactly at midnight gets the "24:00" end.
func (b *ScheduleBook) Add(iv ScheduleInterval, loc *time.Location) {
	if b.byDate == nil {
		b.byDate = make(map[string][]ScheduleSlot)
		b.seen = make(map[slotKey]struct{})
	}

	end := iv.End.In(loc)
	for cur := iv.Start.In(loc); cur.Before(end); {
		y, m, d := cur.Date()
		nextMidnight := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		segEnd := earlierOf(end, nextMidnight)

		endClock := segEnd.Format(clockLayout)
		if segEnd.Equal(nextMidnight) {
			endClock = MidnightClock
		}

		key := slotKey{date: DateKey(cur), start: cur.Format(clockLayout), end: endClock}
		if _, dup := b.seen[key]; !dup {
			b.seen[key] = struct{}{}
			b.byDate[key.date] = append(b.byDate[key.date], ScheduleSlot{
				DateKey: key.date,
				Start:   key.start,
				End:     key.end,
				Kind:    iv.Kind,
			})
		}
		cur = nextMidnight
	}
}

// Slots returns the slots for a date in insertion order.
func (b *ScheduleBook) Slots(dateKey string) []ScheduleSlot {
	if b == nil {
		return nil
	}
	return b.byDate[dateKey]
}

// Dates returns every date key with at least one slot, ascending.
func (b *ScheduleBook) Dates() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.byDate))
	for k := range b.byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the total number of normalized slots.
func (b *ScheduleBook) Len() int {
	if b == nil {
		return 0
	}
	return len(b.seen)
}

// StartMinute returns the slot start as minutes since local midnight.
func (s ScheduleSlot) StartMinute() int {
	return parseClock(s.Start)
}

// EndMinute returns the slot end as minutes since local midnight. Both
// "24:00" and "00:00" mean the end of the day.
func (s ScheduleSlot) EndMinute() int {
	m := parseClock(s.End)
	if m == 0 {
		return minutesPerDay
	}
	return m
}

// parseClock converts "HH:MM" to minutes. Malformed input yields 0.
func parseClock(s string) int {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0
	}
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil {
		return 0
	}
	return h*60 + m
}
