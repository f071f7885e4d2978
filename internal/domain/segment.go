package domain

import "time"

// currentWindow is how close a segment end must be to "now" for the segment
// to be labelled as the state in effect right now.
const currentWindow = time.Minute

// Segment status labels.
const (
	StatusOnNow  = "POWER ON"
	StatusOnWas  = "POWER WAS ON"
	StatusOffNow = "POWER OFF"
	StatusOffWas = "POWER WAS OFF"
	StatusFuture = "UPCOMING"
)

// AppendSegment adds the run [start, end) of the given kind to the day and
// folds it into the day totals. Runs shorter than a whole minute are dropped.
// Only ON and OFF runs count toward totals; only ON runs add effective minutes.
func AppendSegment(day *Day, start, end time.Time, kind SegmentKind, now time.Time) {
	mins := int(end.Sub(start) / time.Minute)
	if mins <= 0 {
		return
	}

	current := kind != SegmentFuture && absDuration(end.Sub(now)) < currentWindow

	switch kind {
	case SegmentOn:
		day.TotalOnMinutes += mins
		if mins > day.MaxOnMinutes {
			day.MaxOnMinutes = mins
		}
		day.EffectiveMinutes += WeightedDuration(start, end)
	case SegmentOff:
		day.TotalOffMinutes += mins
	}

	day.Segments = append(day.Segments, Segment{
		Kind:            kind,
		Start:           start,
		End:             end,
		DurationMinutes: mins,
		Status:          segmentStatus(kind, current),
		Current:         current,
		Label:           FormatDuration(mins),
	})
}

func segmentStatus(kind SegmentKind, current bool) string {
	switch kind {
	case SegmentOn:
		if current {
			return StatusOnNow
		}
		return StatusOnWas
	case SegmentOff:
		if current {
			return StatusOffNow
		}
		return StatusOffWas
	default:
		return StatusFuture
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
