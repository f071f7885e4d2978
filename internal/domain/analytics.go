package domain

import (
	"math"
	"time"
)

const (
	recentWindow     = 7
	offHoursWindow   = 30
	trendThreshold   = 5.0
	shortRunMinutes  = 60
	mediumRunMinutes = 240
)

// TrendVerdict summarizes how the recent week compares to the one before.
type TrendVerdict string

const (
	TrendStable TrendVerdict = "STABLE"
	TrendBetter TrendVerdict = "BETTER"
	TrendWorse  TrendVerdict = "WORSE"
)

// StabilityBuckets counts ON runs by length.
type StabilityBuckets struct {
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

// Trend compares weighted quality of two consecutive windows of completed days.
type Trend struct {
	Current       float64      `json:"current"`
	Previous      float64      `json:"previous"`
	ChangePercent float64      `json:"change_percent"`
	Verdict       TrendVerdict `json:"verdict"`
}

// OffHoursPoint is one day of the off-hours series.
type OffHoursPoint struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// DayStat names a day and the value that made it stand out.
type DayStat struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

// MonthExtremes holds the best and worst day of a month, when any.
type MonthExtremes struct {
	Best  *DayStat `json:"best,omitempty"`
	Worst *DayStat `json:"worst,omitempty"`
}

// Status is the state in effect at the most recent event.
type Status struct {
	Known   bool       `json:"known"`
	State   PowerState `json:"state,omitempty"`
	Since   time.Time  `json:"since,omitempty"`
	Minutes int        `json:"minutes"`
}

// Summary bundles the analytics shown next to the timeline.
type Summary struct {
	RealFeel           float64          `json:"real_feel"`
	HourlyAvailability [24]int          `json:"hourly_availability"`
	Stability          StabilityBuckets `json:"stability"`
	Trend              *Trend           `json:"trend,omitempty"`
	ScheduleAccuracy   float64          `json:"schedule_accuracy"`
	OffHours           []OffHoursPoint  `json:"off_hours"`
}

// Summarize computes every analytic over days (newest first).
func Summarize(days []Day, now time.Time) Summary {
	s := Summary{
		RealFeel:           RealFeel(days),
		HourlyAvailability: HourlyAvailability(days),
		Stability:          Stability(days),
		ScheduleAccuracy:   ScheduleAccuracy(days),
		OffHours:           OffHoursSeries(days),
	}
	if t, ok := ComputeTrend(days, now); ok {
		s.Trend = &t
	}
	return s
}

// RealFeel is the potential-weighted mean quality of the last week with data,
// as a percentage.
func RealFeel(days []Day) float64 {
	return weightedQuality(recentWithData(days, recentWindow)) * 100
}

// HourlyAvailability returns, for each clock hour, the rounded percentage of
// the last week's data days during which power was on.
func HourlyAvailability(days []Day) [24]int {
	var pct [24]int
	recent := recentWithData(days, recentWindow)
	if len(recent) == 0 {
		return pct
	}

	var counts [24]int
	for _, d := range recent {
		for _, seg := range d.Segments {
			if seg.Kind != SegmentOn {
				continue
			}
			from, to := clockMinute(seg.Start), clockMinute(seg.End)
			if to < from {
				to = minutesPerDay
			}
			for m := from; m < to; m++ {
				counts[m/60]++
			}
		}
	}

	possible := float64(len(recent) * 60)
	for h, c := range counts {
		pct[h] = int(math.Round(float64(c) / possible * 100))
	}
	return pct
}

// Stability buckets the last week's ON runs into short, medium, and long.
func Stability(days []Day) StabilityBuckets {
	var b StabilityBuckets
	for _, d := range recentWithData(days, recentWindow) {
		for _, seg := range d.Segments {
			if seg.Kind != SegmentOn {
				continue
			}
			switch {
			case seg.DurationMinutes < shortRunMinutes:
				b.Short++
			case seg.DurationMinutes < mediumRunMinutes:
				b.Medium++
			default:
				b.Long++
			}
		}
	}
	return b
}

// ComputeTrend compares the newest week of completed days with the week
// before it. It reports false when fewer than two completed days exist.
func ComputeTrend(days []Day, now time.Time) (Trend, bool) {
	today := DateKey(now)
	var completed []Day
	for _, d := range days {
		if d.HasData && d.Key != today && d.FutureMinutes() == 0 {
			completed = append(completed, d)
		}
	}
	if len(completed) < 2 {
		return Trend{}, false
	}

	cur := weightedQuality(window(completed, 0, recentWindow))
	prev := weightedQuality(window(completed, recentWindow, 2*recentWindow))

	t := Trend{Current: cur, Previous: prev, Verdict: TrendStable}
	if prev != 0 {
		t.ChangePercent = (cur - prev) / prev * 100
	}
	if math.Abs(t.ChangePercent) >= trendThreshold {
		if t.ChangePercent > 0 {
			t.Verdict = TrendBetter
		} else {
			t.Verdict = TrendWorse
		}
	}
	return t, true
}

// ScheduleAccuracy pools match minutes over the newest week of scored days.
func ScheduleAccuracy(days []Day) float64 {
	var match, total, n int
	for _, d := range days {
		if n == recentWindow {
			break
		}
		if !d.HasData || d.ScheduleMinutesTotal == 0 {
			continue
		}
		match += d.MatchMinutes
		total += d.ScheduleMinutesTotal
		n++
	}
	if total == 0 {
		return 0
	}
	return float64(match) / float64(total) * 100
}

// FindMonthExtremes returns the day with the most power and the data day
// with the least, within one calendar month. Ties go to the newer day.
func FindMonthExtremes(days []Day, year int, month time.Month) MonthExtremes {
	var ext MonthExtremes
	for _, d := range DaysInMonth(days, year, month) {
		if d.TotalOnMinutes > 0 && (ext.Best == nil || d.TotalOnMinutes > ext.Best.Minutes) {
			ext.Best = &DayStat{Date: d.Key, Minutes: d.TotalOnMinutes}
		}
		if d.HasData && d.TotalOffMinutes > 0 && (ext.Worst == nil || d.TotalOffMinutes > ext.Worst.Minutes) {
			ext.Worst = &DayStat{Date: d.Key, Minutes: d.TotalOffMinutes}
		}
	}
	return ext
}

// OffHoursSeries lists hours without power for the newest 30 data days,
// oldest first.
func OffHoursSeries(days []Day) []OffHoursPoint {
	recent := recentWithData(days, offHoursWindow)
	points := make([]OffHoursPoint, len(recent))
	for i, d := range recent {
		points[len(recent)-1-i] = OffHoursPoint{
			Date:  d.Key,
			Hours: math.Round(float64(d.TotalOffMinutes)/60*10) / 10,
		}
	}
	return points
}

// CurrentStatus reports the state set by the last event and how many whole
// minutes ago it happened.
func CurrentStatus(events []PowerEvent, now time.Time) Status {
	if len(events) == 0 {
		return Status{}
	}
	last := events[len(events)-1]
	mins := int(now.Sub(last.Timestamp) / time.Minute)
	if mins < 0 {
		mins = 0
	}
	return Status{Known: true, State: last.State, Since: last.Timestamp, Minutes: mins}
}

// DaysInMonth keeps the days that fall in the given calendar month.
func DaysInMonth(days []Day, year int, month time.Month) []Day {
	var out []Day
	for _, d := range days {
		if d.Date.Year() == year && d.Date.Month() == month {
			out = append(out, d)
		}
	}
	return out
}

func recentWithData(days []Day, n int) []Day {
	out := make([]Day, 0, n)
	for _, d := range days {
		if len(out) == n {
			break
		}
		if d.HasData {
			out = append(out, d)
		}
	}
	return out
}

func window(days []Day, from, to int) []Day {
	if from >= len(days) {
		return nil
	}
	return days[from:min(to, len(days))]
}

func weightedQuality(days []Day) float64 {
	var sum, weight float64
	for _, d := range days {
		sum += d.QualityIndex * d.PotentialWeight
		weight += d.PotentialWeight
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}
