package domain

import "time"

const (
	outagePenaltyStep = 0.06
	outagePenaltyCap  = 0.45
)

// Options tunes day generation.
type Options struct {
	// PadMonth starts the calendar at the first of the first event's month.
	// Days before the first event's day are emitted with HasData=false.
	PadMonth bool
}

// carry is the state threaded from one day to the next.
type carry struct {
	state PowerState
	next  int  // index of the first unconsumed event
	prior bool // an earlier day with data has been processed
}

type generator struct {
	events   []PowerEvent
	attacks  map[string]AttackRecord
	schedule *ScheduleBook
	firstLog time.Time
	now      time.Time
	loc      *time.Location
}

// GenerateDays reconstructs one Day per calendar date from the first event's
// date through now's date, newest first. Calendar days and clock hours are
// taken in now's location. Events must be sorted ascending; an empty event
// list yields an empty result.
func GenerateDays(in Inputs, now time.Time, opts Options) []Day {
	if len(in.Events) == 0 {
		return []Day{}
	}

	loc := now.Location()
	g := &generator{
		events:   in.Events,
		attacks:  indexAttacks(in.Attacks),
		schedule: in.Schedule,
		firstLog: in.Events[0].Timestamp.In(loc),
		now:      now,
		loc:      loc,
	}

	start := startOfDay(g.firstLog)
	if opts.PadMonth {
		y, m, _ := start.Date()
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
	today := startOfDay(now)

	// The state before the first event is the first event's own state, so
	// logging onto an already-running outage is not counted as a transition.
	c := carry{state: in.Events[0].State}

	var days []Day
	for date := start; !date.After(today); date = nextDay(date) {
		var day Day
		day, c = g.step(c, date)
		days = append(days, day)
	}

	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days
}

// step builds the Day for date and returns the carry for the following day.
func (g *generator) step(c carry, date time.Time) (Day, carry) {
	key := DateKey(date)
	y, m, d := date.Date()
	dayEnd := time.Date(y, m, d, 23, 59, 59, 0, g.loc)
	slots := g.schedule.Slots(key)

	day := Day{
		Date:             date,
		Key:              key,
		Segments:         []Segment{},
		ScheduleSegments: append([]ScheduleSlot{}, slots...),
	}
	if a, ok := g.attacks[key]; ok {
		day.Attack = &a
	}

	if dayEnd.Before(g.firstLog) {
		return day, c
	}
	day.HasData = true

	isToday := key == DateKey(g.now)
	pointer := laterOf(date, g.firstLog)

	potentialEnd := dayEnd
	if isToday {
		potentialEnd = g.now
	}
	day.PotentialWeight = WeightedDuration(pointer, potentialEnd)

	state := c.state
	next := c.next
	for next < len(g.events) && !g.events[next].Timestamp.After(dayEnd) {
		ev := g.events[next]
		ts := ev.Timestamp.In(g.loc)
		if state == StateOn && ev.State == StateOff && !ts.Before(date) {
			day.OutageCount++
		}
		if ts.After(pointer) {
			AppendSegment(&day, pointer, ts, SegmentKind(state), g.now)
			pointer = ts
		}
		state = ev.State
		next++
	}

	if isToday {
		if g.now.After(pointer) {
			AppendSegment(&day, pointer, g.now, SegmentKind(state), g.now)
		}
		AppendSegment(&day, laterOf(g.now, pointer), dayEnd, SegmentFuture, g.now)
	} else {
		AppendSegment(&day, pointer, dayEnd, SegmentKind(state), g.now)
	}

	// An outage already running on the first day with data has no ON->OFF
	// event inside the log, so it is counted here once.
	if !c.prior && len(day.Segments) > 0 && day.Segments[0].Kind == SegmentOff {
		day.OutageCount++
	}

	day.QualityIndex = qualityIndex(day.EffectiveMinutes, day.PotentialWeight, day.OutageCount)

	if len(slots) > 0 {
		day.MatchMinutes, day.ScheduleMinutesTotal = ScoreSchedule(day.Segments, slots)
	}

	return day, carry{state: state, next: next, prior: true}
}

// qualityIndex is the weighted availability ratio reduced by 6% per outage,
// capped at a 45% reduction.
func qualityIndex(effective, potential float64, outages int) float64 {
	if potential <= 0 {
		return 0
	}
	penalty := float64(outages) * outagePenaltyStep
	if penalty > outagePenaltyCap {
		penalty = outagePenaltyCap
	}
	return effective / potential * (1 - penalty)
}

// indexAttacks keeps the first attack recorded for each date.
func indexAttacks(attacks []AttackRecord) map[string]AttackRecord {
	idx := make(map[string]AttackRecord, len(attacks))
	for _, a := range attacks {
		if _, ok := idx[a.DateKey]; !ok {
			idx[a.DateKey] = a
		}
	}
	return idx
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
