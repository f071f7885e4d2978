package domain

import (
	"sort"
	"time"
)

// ScheduleToleranceMinutes is how far an unscheduled outage minute may sit
// from a blackout boundary and still count as following the schedule.
const ScheduleToleranceMinutes = 10

// span is a half-open range of minutes since local midnight.
type span struct {
	from, to int
}

// ScoreSchedule compares the realised timeline against the published slots
// minute by minute over every ON and OFF segment:
//
//   - scheduled off, actually off: match
//   - scheduled on, actually on: match
//   - scheduled on, actually off: match only within the tolerance of a
//     blackout boundary
//   - scheduled off, actually on: never a match
//
// It works on merged minute ranges rather than visiting each minute.
func ScoreSchedule(segments []Segment, slots []ScheduleSlot) (match, total int) {
	var blackout, accepted []span
	for _, s := range slots {
		if s.Kind != SlotBlackout {
			continue
		}
		start, end := s.StartMinute(), s.EndMinute()
		blackout = append(blackout, span{start, end})
		accepted = append(accepted,
			span{start, end},
			toleranceSpan(start),
			toleranceSpan(end),
		)
	}
	blackout = mergeSpans(blackout)
	accepted = mergeSpans(accepted)

	for _, seg := range segments {
		if seg.Kind == SegmentFuture {
			continue
		}
		from := clockMinute(seg.Start)
		to := clockMinute(seg.End)
		if to == 0 {
			to = minutesPerDay
		}
		if to <= from {
			continue
		}

		total += to - from
		switch seg.Kind {
		case SegmentOn:
			match += (to - from) - overlap(blackout, from, to)
		case SegmentOff:
			match += overlap(accepted, from, to)
		}
	}
	return match, total
}

// toleranceSpan covers every minute m with |m - boundary| <= tolerance.
func toleranceSpan(boundary int) span {
	return span{boundary - ScheduleToleranceMinutes, boundary + ScheduleToleranceMinutes + 1}
}

func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].from < spans[j].from })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.from <= last.to {
			if s.to > last.to {
				last.to = s.to
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// overlap returns how many minutes of [from, to) fall inside the merged spans.
func overlap(spans []span, from, to int) int {
	n := 0
	for _, s := range spans {
		lo := max(s.from, from)
		hi := min(s.to, to)
		if hi > lo {
			n += hi - lo
		}
	}
	return n
}

func clockMinute(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
