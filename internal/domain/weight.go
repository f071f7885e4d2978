package domain

import "time"

const (
	// Waking hours [08:00, 23:00) count in full; the overnight band is discounted.
	dayBandStartHour = 8
	dayBandEndHour   = 23
	dayBandWeight    = 1.0
	nightBandWeight  = 0.3
)

// WeightedDuration returns the length of [start, end) in minute-equivalents,
// weighting each local clock hour by how much an outage in it is felt.
// Hours are taken in start's location. Empty or inverted intervals yield 0.
func WeightedDuration(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}

	loc := start.Location()
	y, m, d := start.Date()
	hour := time.Date(y, m, d, start.Hour(), 0, 0, 0, loc)

	var weight float64
	for hour.Before(end) {
		next := hour.Add(time.Hour)
		segStart := laterOf(start, hour)
		segEnd := earlierOf(end, next)
		if segEnd.After(segStart) {
			weight += segEnd.Sub(segStart).Minutes() * hourWeight(hour.In(loc).Hour())
		}
		hour = next
	}
	return weight
}

func hourWeight(h int) float64 {
	if h >= dayBandStartHour && h < dayBandEndHour {
		return dayBandWeight
	}
	return nightBandWeight
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
